package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// Lifecycle is the slice of the lifecycle manager the router needs.
type Lifecycle interface {
	EnsureLoadedWithFallback(ctx context.Context, name string) (string, bool)
	ModelForMode(mode types.Mode) (string, bool)
	Descriptor(name string) (types.ModelDescriptor, bool)
	Catalog() []types.ModelDescriptor
	LoadedNames() []string
	Baseline() string
	RuntimeHealth(ctx context.Context) error
}

// Config holds router construction parameters.
type Config struct {
	Lifecycle Lifecycle
	Logger    zerolog.Logger
	// HistorySize bounds the in-process decision history. Defaults to
	// defaultHistorySize.
	HistorySize int
}

// Router maps requests to a (mode, model) pair and guarantees, via the
// lifecycle manager, that the chosen model is actually servable.
type Router struct {
	lc       Lifecycle
	log      zerolog.Logger
	detector *Detector
	history  *history

	now func() time.Time // test hook
}

// New constructs a Router with compiled detection tables.
func New(cfg Config) *Router {
	size := cfg.HistorySize
	if size <= 0 {
		size = defaultHistorySize
	}
	return &Router{
		lc:       cfg.Lifecycle,
		log:      cfg.Logger,
		detector: NewDetector(),
		history:  newHistory(size),
		now:      time.Now,
	}
}

// Route produces a RoutingDecision for one request. Priority order:
// explicit model override, explicit mode override, detected intent.
// The decision always names a servable model; fallbacks are reflected in
// IsFallback and the reasoning text.
func (r *Router) Route(ctx context.Context, req types.ChatRequest) types.RoutingDecision {
	var dec types.RoutingDecision
	switch {
	case req.ExplicitModel != "":
		dec = r.routeExplicitModel(ctx, req.ExplicitModel)
	case req.ExplicitMode != "":
		dec = r.routeExplicitMode(ctx, req)
	default:
		dec = r.routeDetected(ctx, req.Message)
	}
	dec.Timestamp = r.now()

	r.history.add(dec)
	result := "primary"
	if dec.IsFallback {
		result = "fallback"
	}
	routeDecisions.WithLabelValues(string(dec.Mode), result).Inc()
	r.log.Info().Str("mode", string(dec.Mode)).Str("model", dec.Model).
		Bool("fallback", dec.IsFallback).Float64("confidence", dec.Confidence).
		Msg("routed request")
	return dec
}

func (r *Router) routeExplicitModel(ctx context.Context, name string) types.RoutingDecision {
	mode := r.modeForModel(name)
	actual, primary := r.lc.EnsureLoadedWithFallback(ctx, name)
	reason := fmt.Sprintf("explicit model override: %s", name)
	if !primary {
		reason += fmt.Sprintf(" (unavailable, substituted %s)", actual)
	}
	return types.RoutingDecision{
		Mode:       mode,
		Model:      actual,
		Confidence: 1.0,
		Reasoning:  reason,
		IsFallback: !primary,
	}
}

func (r *Router) routeExplicitMode(ctx context.Context, req types.ChatRequest) types.RoutingDecision {
	mode, ok := types.ParseMode(req.ExplicitMode)
	if !ok {
		// Unknown mode string: treat the request as free text.
		r.log.Warn().Str("mode", req.ExplicitMode).Msg("unknown explicit mode, detecting instead")
		return r.routeDetected(ctx, req.Message)
	}
	preferred, ok := r.lc.ModelForMode(mode)
	if !ok {
		preferred = r.lc.Baseline()
	}
	actual, primary := r.lc.EnsureLoadedWithFallback(ctx, preferred)
	reason := fmt.Sprintf("explicit mode override: %s -> %s", mode, preferred)
	if !primary {
		reason += fmt.Sprintf(" (unavailable, substituted %s)", actual)
	}
	return types.RoutingDecision{
		Mode:       mode,
		Model:      actual,
		Confidence: 1.0,
		Reasoning:  reason,
		IsFallback: !primary,
	}
}

func (r *Router) routeDetected(ctx context.Context, message string) types.RoutingDecision {
	det := r.detector.Detect(message)
	preferred, ok := r.lc.ModelForMode(det.Mode)
	if !ok {
		preferred = r.lc.Baseline()
	}
	actual, primary := r.lc.EnsureLoadedWithFallback(ctx, preferred)
	reason := det.Reasoning
	if !primary {
		reason += fmt.Sprintf("; %s unavailable, substituted %s", preferred, actual)
	}
	return types.RoutingDecision{
		Mode:             det.Mode,
		Model:            actual,
		Confidence:       det.Confidence,
		Reasoning:        reason,
		IsFallback:       !primary,
		DetectedKeywords: det.Keywords,
	}
}

// modeForModel infers a mode for an explicitly named model: the catalog's
// primary mode when known, name-substring heuristics as a last resort.
func (r *Router) modeForModel(name string) types.Mode {
	if d, ok := r.lc.Descriptor(name); ok && d.PrimaryMode != "" {
		return d.PrimaryMode
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "coder") || strings.Contains(lower, "code"):
		return types.ModeCode
	case strings.Contains(lower, "r1") || strings.Contains(lower, "think") || strings.Contains(lower, "reason"):
		return types.ModeReasoning
	}
	return types.ModeChat
}

// Health reports runtime reachability plus the catalog and loaded sets.
func (r *Router) Health(ctx context.Context) types.HealthResponse {
	resp := types.HealthResponse{
		Status:           "ok",
		RuntimeReachable: true,
		LoadedModels:     r.lc.LoadedNames(),
	}
	for _, d := range r.lc.Catalog() {
		resp.AvailableModels = append(resp.AvailableModels, d.Name)
	}
	if err := r.lc.RuntimeHealth(ctx); err != nil {
		resp.Status = "degraded"
		resp.RuntimeReachable = false
	}
	return resp
}

// Stats aggregates the routing history.
func (r *Router) Stats() types.RoutingStats { return r.history.stats() }
