package types

import "time"

// ChatRequest is the payload accepted by POST /route. It is never mutated
// after decoding.
type ChatRequest struct {
	// Free-text message to classify and route.
	// example: Write a quicksort in Go
	Message string `json:"message" example:"Write a quicksort in Go"`
	// Optional mode override. Skips intent detection when set.
	// example: code
	ExplicitMode string `json:"mode,omitempty" example:"code"`
	// Optional model override. Takes priority over everything else.
	// example: qwen2.5-coder:7b
	ExplicitModel string `json:"model,omitempty" example:"qwen2.5-coder:7b"`
	// Free-form caller context, passed through untouched.
	Context map[string]any `json:"context,omitempty"`
	// Time the request was created. Filled by the server when omitted.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// RoutingDecision names the model chosen for one request. Immutable once
// returned.
type RoutingDecision struct {
	// Detected or overridden operating mode.
	// example: code
	Mode Mode `json:"mode" example:"code"`
	// Model that will actually serve the request. May differ from the
	// preferred model when a fallback was substituted.
	// example: qwen2.5-coder:7b
	Model string `json:"model" example:"qwen2.5-coder:7b"`
	// Classifier confidence in [0,1]. Fixed at 1.0 for explicit overrides.
	// example: 0.85
	Confidence float64 `json:"confidence" example:"0.85"`
	// Human-readable explanation of the decision.
	// example: detected mode=code (score 4.5, margin 3.0)
	Reasoning string `json:"reasoning" example:"detected mode=code (score 4.5, margin 3.0)"`
	// True when the preferred model could not be made resident and a
	// substitute from the fallback chain was used.
	// example: false
	IsFallback bool `json:"is_fallback" example:"false"`
	// Keywords and pattern hints that contributed to the winning mode.
	DetectedKeywords []string `json:"detected_keywords,omitempty"`
	// Time the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// LoadedModelStatus summarizes one resident model for GET /status.
type LoadedModelStatus struct {
	// Model name.
	// example: qwen2.5-coder:7b
	Name string `json:"name" example:"qwen2.5-coder:7b"`
	// Time the model became resident (unix seconds).
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
	// Last time the model served a request (unix seconds).
	// example: 1700000060
	LastUsed int64 `json:"last_used_unix" example:"1700000060"`
	// Seconds the model has been idle.
	// example: 42
	IdleSeconds int64 `json:"idle_seconds" example:"42"`
	// Configured idle eviction timeout in seconds (0 = never evicted).
	// example: 600
	IdleTimeoutSeconds int64 `json:"idle_timeout_seconds" example:"600"`
	// Estimated RAM in MB counted against the budget.
	// example: 5200
	RAMEstimateMB int `json:"ram_estimate_mb" example:"5200"`
	// Pinned models are never evicted.
	// example: false
	AlwaysLoaded bool `json:"always_loaded" example:"false"`
}

// BreakerSnapshot is a read-only view of the circuit breaker for status
// reporting.
type BreakerSnapshot struct {
	// Breaker state: closed, open or half_open.
	// example: closed
	State string `json:"state" example:"closed"`
	// Consecutive failures observed.
	// example: 0
	ConsecutiveFailures int `json:"consecutive_failures" example:"0"`
	// Seconds since the breaker opened; zero unless open.
	// example: 0
	OpenSeconds float64 `json:"open_seconds" example:"0"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Currently resident models.
	LoadedModels []LoadedModelStatus `json:"loaded_models"`
	// RAM budget in MB across all resident models.
	// example: 20480
	RAMBudgetMB int `json:"ram_budget_mb" example:"20480"`
	// Estimated RAM in MB currently counted as used.
	// example: 13200
	RAMUsedMB int `json:"ram_used_mb" example:"13200"`
	// Maximum non-pinned models resident at once.
	// example: 2
	MaxConcurrent int `json:"max_concurrent" example:"2"`
	// Seconds between eviction passes.
	// example: 60
	EvictIntervalSeconds int64 `json:"evict_interval_seconds" example:"60"`
	// Total model loads since start.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total idle evictions since start.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Total fallback substitutions since start.
	// example: 3
	FallbacksTotal uint64 `json:"fallbacks_total" example:"3"`
	// Uptime of the gateway in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Circuit breaker view of the inference runtime.
	Breaker BreakerSnapshot `json:"breaker"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Overall status: ok when the runtime is reachable, degraded otherwise.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Whether the inference runtime answered its health endpoint.
	// example: true
	RuntimeReachable bool `json:"runtime_reachable" example:"true"`
	// Every model in the static catalog.
	AvailableModels []string `json:"available_models"`
	// Models currently resident.
	LoadedModels []string `json:"loaded_models"`
}

// RoutingStats aggregates the in-process routing history.
type RoutingStats struct {
	// Number of decisions recorded.
	// example: 128
	TotalDecisions int `json:"total_decisions" example:"128"`
	// Decisions per mode.
	ModeDistribution map[Mode]int `json:"mode_distribution"`
	// Decisions per serving model.
	ModelDistribution map[string]int `json:"model_distribution"`
	// Fraction of decisions that used a fallback model.
	// example: 0.05
	FallbackRate float64 `json:"fallback_rate" example:"0.05"`
	// Mean confidence across all decisions.
	// example: 0.87
	AverageConfidence float64 `json:"average_confidence" example:"0.87"`
}

// ModelsResponse wraps the catalog returned by GET /models.
type ModelsResponse struct {
	// Every known model descriptor.
	Models []ModelDescriptor `json:"models"`
}
