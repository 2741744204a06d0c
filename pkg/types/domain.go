package types

import "time"

// Mode is an operating mode a request can be classified into. Each mode
// maps to a preferred serving model.
type Mode string

const (
	// ModeChat is the default fast-response conversational mode.
	ModeChat Mode = "chat"
	// ModeCode targets code generation and review.
	ModeCode Mode = "code"
	// ModeReasoning targets multi-step analysis and planning.
	ModeReasoning Mode = "reasoning"
	// ModeCreative targets open-ended writing.
	ModeCreative Mode = "creative"
	// ModeExplain targets help, explanation and how-to questions.
	ModeExplain Mode = "explain"
)

// Modes lists every known mode in a stable order.
func Modes() []Mode {
	return []Mode{ModeChat, ModeCode, ModeReasoning, ModeCreative, ModeExplain}
}

// ParseMode validates a mode string. Unknown values return false.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeChat, ModeCode, ModeReasoning, ModeCreative, ModeExplain:
		return Mode(s), true
	}
	return "", false
}

// ModelDescriptor is the static catalog entry for one known model.
// Descriptors are immutable after process start; RAM estimates are
// advisory numbers trusted by admission control, never measured live.
type ModelDescriptor struct {
	// Model name as known to the inference runtime.
	// example: qwen2.5-coder:7b
	Name string `json:"name" example:"qwen2.5-coder:7b"`
	// Estimated resident RAM in MB, used for admission accounting.
	// example: 5200
	RAMEstimateMB int `json:"ram_estimate_mb" example:"5200"`
	// Context window in tokens.
	// example: 32768
	ContextWindow int `json:"context_window,omitempty" example:"32768"`
	// Idle duration after which the model may be evicted. Zero means never.
	IdleTimeout time.Duration `json:"idle_timeout_ns,omitempty" swaggertype:"integer"`
	// Pinned models are never evicted and do not count against the
	// concurrency cap.
	// example: false
	AlwaysLoaded bool `json:"always_loaded,omitempty" example:"false"`
	// Mode this model primarily serves, if any.
	// example: code
	PrimaryMode Mode `json:"primary_mode,omitempty" example:"code"`
	// Free-form capability tags.
	Strengths []string `json:"strengths,omitempty"`
}
