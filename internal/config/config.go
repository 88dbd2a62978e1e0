package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Source identifies one raw event file to normalize: the chain it came from,
// the event kind it carries, and its path.
type Source struct {
	ChainID uint64 `mapstructure:"chain-id"`
	Kind    string `mapstructure:"kind"`
	Path    string `mapstructure:"path"`
}

// FieldMappings maps chain id (as a string key) to event kind to
// canonical-field -> source-field renames.
type FieldMappings map[string]map[string]map[string]string

// NormalizeConfig holds configuration for the normalize command.
type NormalizeConfig struct {
	Sources     []Source
	Mappings    FieldMappings
	Chains      string
	OutDir      string
	Report      string
	Manifest    string
	Workers     int
	MetricsAddr string
	LogLevel    string
}

// LoadNormalize merges config file, environment variables, and flags into
// NormalizeConfig. The config file also carries the source list and optional
// field-mapping overrides, which have no flag form.
func LoadNormalize(cfgFile string, flags *pflag.FlagSet) (NormalizeConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out-dir", "./data/normalized")
	v.SetDefault("report", "./data/reports/dropped_records.jsonl")
	v.SetDefault("manifest", "./data/normalize_manifest.json")
	v.SetDefault("workers", 4)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return NormalizeConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return NormalizeConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return NormalizeConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var sources []Source
	if err := v.UnmarshalKey("sources", &sources); err != nil {
		return NormalizeConfig{}, fmt.Errorf("parse sources: %w", err)
	}

	var mappings FieldMappings
	if err := v.UnmarshalKey("mappings", &mappings); err != nil {
		return NormalizeConfig{}, fmt.Errorf("parse mappings: %w", err)
	}

	cfg := NormalizeConfig{
		Sources:     sources,
		Mappings:    mappings,
		Chains:      v.GetString("chains"),
		OutDir:      v.GetString("out-dir"),
		Report:      v.GetString("report"),
		Manifest:    v.GetString("manifest"),
		Workers:     v.GetInt("workers"),
		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
