// Package config holds the runtime settings shared by the commands: where
// the database lives, the batch concurrency cap, and the analysis defaults.
// Resolution order is defaults, then an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// #region types

// Config bundles the runtime settings.
type Config struct {
	DBPath          string  `yaml:"db_path"`
	BatchLimit      int     `yaml:"batch_limit"`
	ForecastHorizon int     `yaml:"forecast_horizon"`
	PassMin         float64 `yaml:"pass_min"`
	ReviewMin       float64 `yaml:"review_min"`
	Geo             string  `yaml:"geo"`
	LogLevel        string  `yaml:"log_level"`
}

// #endregion types

// #region defaults

// DefaultConfig returns the baseline configuration with environment
// overrides applied. Reads from env vars: INSIGHT_DB_PATH,
// INSIGHT_BATCH_LIMIT, INSIGHT_FORECAST_HORIZON, INSIGHT_PASS_MIN,
// INSIGHT_REVIEW_MIN, INSIGHT_GEO, INSIGHT_LOG_LEVEL.
func DefaultConfig() Config {
	cfg := Config{
		DBPath:          "insight.db",
		BatchLimit:      3,
		ForecastHorizon: 6,
		PassMin:         0.65,
		ReviewMin:       0.35,
		LogLevel:        "info",
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INSIGHT_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("INSIGHT_BATCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchLimit = n
		}
	}
	if v := os.Getenv("INSIGHT_FORECAST_HORIZON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ForecastHorizon = n
		}
	}
	if v := os.Getenv("INSIGHT_PASS_MIN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.PassMin = f
		}
	}
	if v := os.Getenv("INSIGHT_REVIEW_MIN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ReviewMin = f
		}
	}
	if v := os.Getenv("INSIGHT_GEO"); v != "" {
		c.Geo = v
	}
	if v := os.Getenv("INSIGHT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// #endregion defaults

// #region load

// Load reads a YAML config file over the defaults, then applies environment
// overrides on top so the environment always wins.
func Load(path string) (Config, error) {
	cfg := Config{
		DBPath:          "insight.db",
		BatchLimit:      3,
		ForecastHorizon: 6,
		PassMin:         0.65,
		ReviewMin:       0.35,
		LogLevel:        "info",
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PassMin < c.ReviewMin {
		return fmt.Errorf("pass_min %.2f below review_min %.2f", c.PassMin, c.ReviewMin)
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("batch_limit must be at least 1, got %d", c.BatchLimit)
	}
	return nil
}

// #endregion load
