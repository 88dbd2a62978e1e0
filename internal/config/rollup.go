package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RollupConfig holds configuration for the rollup command. Tier thresholds
// default to the operational policy values and can be overridden per run.
type RollupConfig struct {
	PGDSN              string
	Chains             string
	Window             string
	FeeTierOverpriced  float64
	FeeTierHigh        float64
	FeeTierCompetitive float64
	FeeTierAggressive  float64
	LatencyCritical    uint64
	LatencyHigh        uint64
	LatencyModerate    uint64
	Manifest           string
	MetricsAddr        string
	LogLevel           string
}

// LoadRollup merges config file, environment variables, and flags into
// RollupConfig.
func LoadRollup(cfgFile string, flags *pflag.FlagSet) (RollupConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("window", "1h")
	v.SetDefault("fee-tier-overpriced", 0.5)
	v.SetDefault("fee-tier-high", 0.1)
	v.SetDefault("fee-tier-competitive", 0.02)
	v.SetDefault("fee-tier-aggressive", 0.005)
	v.SetDefault("latency-critical", uint64(100))
	v.SetDefault("latency-high", uint64(30))
	v.SetDefault("latency-moderate", uint64(15))
	v.SetDefault("manifest", "./data/rollup_manifest.json")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return RollupConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return RollupConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return RollupConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := RollupConfig{
		PGDSN:              v.GetString("pg-dsn"),
		Chains:             v.GetString("chains"),
		Window:             v.GetString("window"),
		FeeTierOverpriced:  v.GetFloat64("fee-tier-overpriced"),
		FeeTierHigh:        v.GetFloat64("fee-tier-high"),
		FeeTierCompetitive: v.GetFloat64("fee-tier-competitive"),
		FeeTierAggressive:  v.GetFloat64("fee-tier-aggressive"),
		LatencyCritical:    v.GetUint64("latency-critical"),
		LatencyHigh:        v.GetUint64("latency-high"),
		LatencyModerate:    v.GetUint64("latency-moderate"),
		Manifest:           v.GetString("manifest"),
		MetricsAddr:        v.GetString("metrics-addr"),
		LogLevel:           v.GetString("log-level"),
	}

	return cfg, nil
}
