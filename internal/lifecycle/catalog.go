package lifecycle

import (
	"time"

	"modelgate/pkg/types"
)

// DefaultCatalog is the built-in model catalog, used when the config file
// does not provide one. The baseline chat model is pinned resident.
func DefaultCatalog() []types.ModelDescriptor {
	return []types.ModelDescriptor{
		{
			Name:          "llama3.2:3b",
			RAMEstimateMB: 3200,
			ContextWindow: 8192,
			AlwaysLoaded:  true,
			PrimaryMode:   types.ModeChat,
			Strengths:     []string{"chat", "quick-answers"},
		},
		{
			Name:          "qwen2.5-coder:7b",
			RAMEstimateMB: 5200,
			ContextWindow: 32768,
			IdleTimeout:   10 * time.Minute,
			PrimaryMode:   types.ModeCode,
			Strengths:     []string{"code", "refactoring", "debugging"},
		},
		{
			Name:          "deepseek-r1:8b",
			RAMEstimateMB: 5600,
			ContextWindow: 16384,
			IdleTimeout:   5 * time.Minute,
			PrimaryMode:   types.ModeReasoning,
			Strengths:     []string{"reasoning", "math", "planning"},
		},
		{
			Name:          "mistral-nemo:12b",
			RAMEstimateMB: 7800,
			ContextWindow: 16384,
			IdleTimeout:   10 * time.Minute,
			PrimaryMode:   types.ModeCreative,
			Strengths:     []string{"writing", "style"},
		},
	}
}

// DefaultModeModels maps each operating mode to its preferred model.
func DefaultModeModels() map[types.Mode]string {
	return map[types.Mode]string{
		types.ModeChat:      "llama3.2:3b",
		types.ModeCode:      "qwen2.5-coder:7b",
		types.ModeReasoning: "deepseek-r1:8b",
		types.ModeCreative:  "mistral-nemo:12b",
		types.ModeExplain:   "llama3.2:3b",
	}
}

// DefaultFallbacks maps each model to its ordered substitution chain.
// Chains are normalized at construction so the always-loaded baseline is
// always the final entry.
func DefaultFallbacks() map[string][]string {
	return map[string][]string{
		"qwen2.5-coder:7b": {"deepseek-r1:8b", "llama3.2:3b"},
		"deepseek-r1:8b":   {"qwen2.5-coder:7b", "llama3.2:3b"},
		"mistral-nemo:12b": {"llama3.2:3b"},
	}
}
