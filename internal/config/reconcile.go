package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ReconcileConfig holds configuration for the reconcile command.
type ReconcileConfig struct {
	Deposits      string
	Fills         string
	Refunds       string
	Chains        string
	Tokens        string
	Prices        string
	PGDSN         string
	ExportDir     string
	ReportsDir    string
	Lookback      time.Duration
	StableSymbols []string
	Workers       int
	Manifest      string
	MetricsAddr   string
	LogLevel      string
}

// LoadReconcile merges config file, environment variables, and flags into
// ReconcileConfig.
func LoadReconcile(cfgFile string, flags *pflag.FlagSet) (ReconcileConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("deposits", "./data/normalized/deposits.jsonl")
	v.SetDefault("fills", "./data/normalized/fills.jsonl")
	v.SetDefault("refunds", "./data/normalized/refund_batches.jsonl")
	v.SetDefault("reports-dir", "./data/reports")
	v.SetDefault("lookback", 168*time.Hour)
	v.SetDefault("workers", 4)
	v.SetDefault("manifest", "./data/reconcile_manifest.json")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return ReconcileConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return ReconcileConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return ReconcileConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := ReconcileConfig{
		Deposits:      v.GetString("deposits"),
		Fills:         v.GetString("fills"),
		Refunds:       v.GetString("refunds"),
		Chains:        v.GetString("chains"),
		Tokens:        v.GetString("tokens"),
		Prices:        v.GetString("prices"),
		PGDSN:         v.GetString("pg-dsn"),
		ExportDir:     v.GetString("export-dir"),
		ReportsDir:    v.GetString("reports-dir"),
		Lookback:      v.GetDuration("lookback"),
		StableSymbols: getStringSlice(v, "stable-symbols"),
		Workers:       v.GetInt("workers"),
		Manifest:      v.GetString("manifest"),
		MetricsAddr:   v.GetString("metrics-addr"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}
