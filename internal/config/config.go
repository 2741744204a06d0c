package config

import (
	"time"

	"modelgate/internal/lifecycle"
	"modelgate/pkg/types"
)

// Config holds runtime parameters for the gateway.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	RuntimeURL string `json:"runtime_url" yaml:"runtime_url" toml:"runtime_url"`

	RequestTimeoutS int `json:"request_timeout_s" yaml:"request_timeout_s" toml:"request_timeout_s"`
	LoadTimeoutS    int `json:"load_timeout_s" yaml:"load_timeout_s" toml:"load_timeout_s"`

	RAMBudgetMB    int `json:"ram_budget_mb" yaml:"ram_budget_mb" toml:"ram_budget_mb"`
	MaxConcurrent  int `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	EvictIntervalS int `json:"evict_interval_s" yaml:"evict_interval_s" toml:"evict_interval_s"`

	BreakerFailThreshold int `json:"breaker_fail_threshold" yaml:"breaker_fail_threshold" toml:"breaker_fail_threshold"`
	BreakerResetTimeoutS int `json:"breaker_reset_timeout_s" yaml:"breaker_reset_timeout_s" toml:"breaker_reset_timeout_s"`
	BreakerHalfOpenMax   int `json:"breaker_half_open_max" yaml:"breaker_half_open_max" toml:"breaker_half_open_max"`

	RetryMaxAttempts   int     `json:"retry_max_attempts" yaml:"retry_max_attempts" toml:"retry_max_attempts"`
	RetryBackoffBaseMS int     `json:"retry_backoff_base_ms" yaml:"retry_backoff_base_ms" toml:"retry_backoff_base_ms"`
	RetryBackoffFactor float64 `json:"retry_backoff_factor" yaml:"retry_backoff_factor" toml:"retry_backoff_factor"`

	RateLimitRPS   float64 `json:"rate_limit_rps" yaml:"rate_limit_rps" toml:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst" yaml:"rate_limit_burst" toml:"rate_limit_burst"`

	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogJSON  bool   `json:"log_json" yaml:"log_json" toml:"log_json"`

	// Optional catalog override. Empty means the built-in catalog.
	Models []ModelConfig `json:"models" yaml:"models" toml:"models"`
	// Optional fallback chain override, keyed by model name.
	Fallbacks map[string][]string `json:"fallbacks" yaml:"fallbacks" toml:"fallbacks"`
	// Optional mode-to-model override, keyed by mode name.
	ModeModels map[string]string `json:"mode_models" yaml:"mode_models" toml:"mode_models"`
	// Baseline model name. Defaults to the first pinned catalog entry.
	Baseline string `json:"baseline" yaml:"baseline" toml:"baseline"`
}

// ModelConfig is one catalog entry as written in a config file.
type ModelConfig struct {
	Name          string   `json:"name" yaml:"name" toml:"name"`
	RAMEstimateMB int      `json:"ram_estimate_mb" yaml:"ram_estimate_mb" toml:"ram_estimate_mb"`
	ContextWindow int      `json:"context_window" yaml:"context_window" toml:"context_window"`
	IdleTimeoutS  int      `json:"idle_timeout_s" yaml:"idle_timeout_s" toml:"idle_timeout_s"`
	AlwaysLoaded  bool     `json:"always_loaded" yaml:"always_loaded" toml:"always_loaded"`
	PrimaryMode   string   `json:"primary_mode" yaml:"primary_mode" toml:"primary_mode"`
	Strengths     []string `json:"strengths" yaml:"strengths" toml:"strengths"`
}

// ApplyDefaults fills unspecified fields with production defaults.
func ApplyDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RuntimeURL == "" {
		cfg.RuntimeURL = "http://127.0.0.1:11434"
	}
	if cfg.RequestTimeoutS <= 0 {
		cfg.RequestTimeoutS = 30
	}
	if cfg.LoadTimeoutS <= 0 {
		cfg.LoadTimeoutS = 120
	}
	if cfg.RAMBudgetMB <= 0 {
		cfg.RAMBudgetMB = 20480
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.EvictIntervalS <= 0 {
		cfg.EvictIntervalS = 60
	}
	if cfg.BreakerFailThreshold <= 0 {
		cfg.BreakerFailThreshold = 5
	}
	if cfg.BreakerResetTimeoutS <= 0 {
		cfg.BreakerResetTimeoutS = 30
	}
	if cfg.BreakerHalfOpenMax <= 0 {
		cfg.BreakerHalfOpenMax = 3
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBackoffBaseMS <= 0 {
		cfg.RetryBackoffBaseMS = 250
	}
	if cfg.RetryBackoffFactor <= 0 {
		cfg.RetryBackoffFactor = 2.0
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

// Catalog converts the configured model list into descriptors. An empty
// list yields the built-in catalog.
func (c Config) Catalog() []types.ModelDescriptor {
	if len(c.Models) == 0 {
		return lifecycle.DefaultCatalog()
	}
	out := make([]types.ModelDescriptor, 0, len(c.Models))
	for _, m := range c.Models {
		d := types.ModelDescriptor{
			Name:          m.Name,
			RAMEstimateMB: m.RAMEstimateMB,
			ContextWindow: m.ContextWindow,
			IdleTimeout:   time.Duration(m.IdleTimeoutS) * time.Second,
			AlwaysLoaded:  m.AlwaysLoaded,
			Strengths:     append([]string(nil), m.Strengths...),
		}
		if mode, ok := types.ParseMode(m.PrimaryMode); ok {
			d.PrimaryMode = mode
		}
		out = append(out, d)
	}
	return out
}

// ModeModelMap converts the configured mode assignments. An empty map
// yields the built-in assignments.
func (c Config) ModeModelMap() map[types.Mode]string {
	if len(c.ModeModels) == 0 {
		return lifecycle.DefaultModeModels()
	}
	out := make(map[types.Mode]string, len(c.ModeModels))
	for k, v := range c.ModeModels {
		if mode, ok := types.ParseMode(k); ok {
			out[mode] = v
		}
	}
	return out
}

// FallbackMap returns the configured fallback chains, or the built-in
// chains when unset.
func (c Config) FallbackMap() map[string][]string {
	if len(c.Fallbacks) == 0 {
		return lifecycle.DefaultFallbacks()
	}
	return c.Fallbacks
}
