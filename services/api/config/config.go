// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the service configuration from a YAML file
// merged with environment overrides. Zero configuration produces a
// working local server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings.
type Config struct {
	// Listen is the HTTP listen address.
	// Default: ":8080"
	Listen string `yaml:"listen"`

	// DataDir is the Badger database directory. Empty means in-memory.
	// Default: "./data"
	DataDir string `yaml:"data_dir"`

	// SessionTTL is how long issued sessions stay valid.
	// Default: 720h (30 days)
	SessionTTL time.Duration `yaml:"session_ttl"`

	// SessionSecret keys the session token HMAC. Empty generates a
	// random secret at startup, invalidating sessions on restart.
	SessionSecret string `yaml:"session_secret"`

	// RateLimit is requests per second per client.
	// Default: 10
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the per-client burst capacity.
	// Default: 20
	RateBurst int `yaml:"rate_burst"`

	// RedisAddr enables the Redis trending cache when set
	// (host:port). Empty uses the in-process cache.
	RedisAddr string `yaml:"redis_addr"`

	// PaymentGatewayURL enables real payment charges when set. Empty
	// uses the built-in fake gateway.
	PaymentGatewayURL string `yaml:"payment_gateway_url"`

	// PaymentGatewayKey is the bearer key for the payment gateway.
	PaymentGatewayKey string `yaml:"payment_gateway_key"`

	// BackupDir receives local store snapshots.
	// Default: "./backups"
	BackupDir string `yaml:"backup_dir"`

	// BackupBucket streams snapshots to this GCS bucket when set.
	BackupBucket string `yaml:"backup_bucket"`

	// RuleDir holds extra scanner rule YAML files, hot reloaded.
	RuleDir string `yaml:"rule_dir"`

	// LogLevel is one of debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// LogDir enables JSON file logging when set.
	LogDir string `yaml:"log_dir"`
}

// Default returns the zero-config local setup.
func Default() Config {
	return Config{
		Listen:     ":8080",
		DataDir:    "./data",
		SessionTTL: 720 * time.Hour,
		RateLimit:  10,
		RateBurst:  20,
		BackupDir:  "./backups",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads the config file at path (optional), applies environment
// overrides, and validates the result. An empty path skips the file;
// a named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays SNIPPETIA_* environment variables.
func (c *Config) applyEnv() {
	setString(&c.Listen, "SNIPPETIA_LISTEN")
	setString(&c.DataDir, "SNIPPETIA_DATA_DIR")
	setString(&c.SessionSecret, "SNIPPETIA_SESSION_SECRET")
	setString(&c.RedisAddr, "SNIPPETIA_REDIS_ADDR")
	setString(&c.PaymentGatewayURL, "SNIPPETIA_PAYMENT_GATEWAY_URL")
	setString(&c.PaymentGatewayKey, "SNIPPETIA_PAYMENT_GATEWAY_KEY")
	setString(&c.BackupDir, "SNIPPETIA_BACKUP_DIR")
	setString(&c.BackupBucket, "SNIPPETIA_BACKUP_BUCKET")
	setString(&c.RuleDir, "SNIPPETIA_RULE_DIR")
	setString(&c.LogLevel, "SNIPPETIA_LOG_LEVEL")
	setString(&c.LogFormat, "SNIPPETIA_LOG_FORMAT")
	setString(&c.LogDir, "SNIPPETIA_LOG_DIR")

	if v := os.Getenv("SNIPPETIA_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SessionTTL = d
		}
	}
	if v := os.Getenv("SNIPPETIA_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit = f
		}
	}
	if v := os.Getenv("SNIPPETIA_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %v", c.RateLimit)
	}
	if c.RateBurst <= 0 {
		return fmt.Errorf("rate_burst must be positive, got %d", c.RateBurst)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
