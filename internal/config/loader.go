package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays MODELGATE_* environment variables onto cfg. Set
// variables win over file values; unset ones leave cfg untouched.
func ApplyEnv(cfg Config) Config {
	setString(&cfg.Addr, "MODELGATE_ADDR")
	setString(&cfg.RuntimeURL, "MODELGATE_RUNTIME_URL")
	setInt(&cfg.RequestTimeoutS, "MODELGATE_REQUEST_TIMEOUT_S")
	setInt(&cfg.LoadTimeoutS, "MODELGATE_LOAD_TIMEOUT_S")
	setInt(&cfg.RAMBudgetMB, "MODELGATE_RAM_BUDGET_MB")
	setInt(&cfg.MaxConcurrent, "MODELGATE_MAX_CONCURRENT")
	setInt(&cfg.EvictIntervalS, "MODELGATE_EVICT_INTERVAL_S")
	setInt(&cfg.BreakerFailThreshold, "MODELGATE_BREAKER_FAIL_THRESHOLD")
	setInt(&cfg.BreakerResetTimeoutS, "MODELGATE_BREAKER_RESET_TIMEOUT_S")
	setInt(&cfg.BreakerHalfOpenMax, "MODELGATE_BREAKER_HALF_OPEN_MAX")
	setInt(&cfg.RetryMaxAttempts, "MODELGATE_RETRY_MAX_ATTEMPTS")
	setInt(&cfg.RetryBackoffBaseMS, "MODELGATE_RETRY_BACKOFF_BASE_MS")
	setFloat(&cfg.RetryBackoffFactor, "MODELGATE_RETRY_BACKOFF_FACTOR")
	setFloat(&cfg.RateLimitRPS, "MODELGATE_RATE_LIMIT_RPS")
	setInt(&cfg.RateLimitBurst, "MODELGATE_RATE_LIMIT_BURST")
	setInt64(&cfg.MaxBodyBytes, "MODELGATE_MAX_BODY_BYTES")
	setBool(&cfg.CORSEnabled, "MODELGATE_CORS_ENABLED")
	setStrings(&cfg.CORSOrigins, "MODELGATE_CORS_ORIGINS")
	setString(&cfg.LogLevel, "MODELGATE_LOG_LEVEL")
	setBool(&cfg.LogJSON, "MODELGATE_LOG_JSON")
	setString(&cfg.Baseline, "MODELGATE_BASELINE")
	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
