// Package lifecycle is the admission controller for a fixed catalog of
// models sharing one RAM/concurrency budget. It decides whether a model
// may become resident, evicts idle models in the background, and
// substitutes fallback models when the preferred one cannot be loaded.
// Budgets are advisory: static per-model estimates, never measured memory.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelgate/internal/runtime"
	"modelgate/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxConcurrent = 2
	defaultEvictInterval = 60 * time.Second
	unloadCallTimeout    = 15 * time.Second
)

// Runtime is the narrow slice of the inference runtime the manager needs.
// *runtime.Client satisfies it; tests substitute fakes.
type Runtime interface {
	TriggerLoad(ctx context.Context, model string) error
	TriggerUnload(ctx context.Context, model string) error
	ListLoaded(ctx context.Context) ([]runtime.ResidentModel, error)
	Health(ctx context.Context) error
}

// loadedModel is the dynamic state for one resident model.
type loadedModel struct {
	name          string
	loadedAt      time.Time
	lastUsed      time.Time
	ramEstimateMB int
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Catalog    []types.ModelDescriptor
	Fallbacks  map[string][]string
	ModeModels map[types.Mode]string
	// Baseline is the always-loaded model terminating every fallback
	// chain. Defaults to the first always-loaded catalog entry.
	Baseline string

	// MaxRAMMB is the shared budget; 0 means unlimited.
	MaxRAMMB int
	// MaxConcurrent caps resident non-pinned models.
	MaxConcurrent int
	EvictInterval time.Duration

	Runtime   Runtime
	Logger    zerolog.Logger
	Publisher EventPublisher
}

// Manager tracks which models are resident and enforces the budgets.
type Manager struct {
	mu     sync.Mutex
	loaded map[string]*loadedModel
	usedMB int

	catalog    map[string]types.ModelDescriptor
	order      []string
	fallbacks  map[string][]string
	modeModels map[types.Mode]string
	baseline   string

	maxRAMMB      int
	maxConcurrent int
	evictInterval time.Duration

	rt  Runtime
	log zerolog.Logger
	pub EventPublisher

	loads        uint64
	evictions    uint64
	fallbackHits uint64

	started   bool
	startTime time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	now func() time.Time // test hook
}

// NewWithConfig constructs a Manager, applying defaults for unset fields
// and normalizing every fallback chain to terminate in the baseline.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		loaded:        make(map[string]*loadedModel),
		catalog:       make(map[string]types.ModelDescriptor),
		fallbacks:     make(map[string][]string),
		modeModels:    cfg.ModeModels,
		baseline:      cfg.Baseline,
		maxRAMMB:      cfg.MaxRAMMB,
		maxConcurrent: cfg.MaxConcurrent,
		evictInterval: cfg.EvictInterval,
		rt:            cfg.Runtime,
		log:           cfg.Logger,
		pub:           cfg.Publisher,
		now:           time.Now,
	}
	catalog := cfg.Catalog
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}
	for _, d := range catalog {
		m.catalog[d.Name] = d
		m.order = append(m.order, d.Name)
	}
	if m.baseline == "" {
		for _, name := range m.order {
			if m.catalog[name].AlwaysLoaded {
				m.baseline = name
				break
			}
		}
	}
	fallbacks := cfg.Fallbacks
	if len(fallbacks) == 0 {
		fallbacks = DefaultFallbacks()
	}
	for name, chain := range fallbacks {
		m.fallbacks[name] = normalizeChain(chain, m.baseline)
	}
	if m.modeModels == nil {
		m.modeModels = DefaultModeModels()
	}
	if m.maxConcurrent <= 0 {
		m.maxConcurrent = defaultMaxConcurrent
	}
	if m.evictInterval <= 0 {
		m.evictInterval = defaultEvictInterval
	}
	if m.pub == nil {
		m.pub = noopPublisher{}
	}
	m.startTime = m.now()
	return m
}

// normalizeChain guarantees the baseline is the final chain entry.
func normalizeChain(chain []string, baseline string) []string {
	out := append([]string(nil), chain...)
	if baseline == "" {
		return out
	}
	if len(out) == 0 || out[len(out)-1] != baseline {
		out = append(out, baseline)
	}
	return out
}

// Start launches the background eviction loop and preloads pinned models.
// Idempotent: only the first call does anything. A sync pass against the
// runtime's loaded list seeds the map first, so models the runtime still
// has resident after a gateway restart are not loaded twice.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	m.syncResident(ctx)

	for _, name := range m.order {
		d := m.catalog[name]
		if !d.AlwaysLoaded {
			continue
		}
		if !m.EnsureLoaded(ctx, name) {
			m.log.Warn().Str("model", name).Msg("pinned model preload failed")
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.evictLoop(loopCtx)
	return nil
}

// Stop cancels the eviction loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// syncResident seeds the loaded map from the runtime's own view.
// Best effort: an unreachable runtime just leaves the map empty.
func (m *Manager) syncResident(ctx context.Context) {
	resident, err := m.rt.ListLoaded(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("resident sync failed")
		return
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rm := range resident {
		d, known := m.catalog[rm.Name]
		if !known {
			continue
		}
		if _, ok := m.loaded[rm.Name]; ok {
			continue
		}
		m.loaded[rm.Name] = &loadedModel{
			name:          rm.Name,
			loadedAt:      now,
			lastUsed:      now,
			ramEstimateMB: d.RAMEstimateMB,
		}
		m.usedMB += d.RAMEstimateMB
	}
	m.updateGaugesLocked()
}

// Descriptor returns the catalog entry for a model name.
func (m *Manager) Descriptor(name string) (types.ModelDescriptor, bool) {
	d, ok := m.catalog[name]
	return d, ok
}

// Catalog returns every descriptor in declaration order.
func (m *Manager) Catalog() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.catalog[name])
	}
	return out
}

// FallbackChain returns the ordered substitution chain for a model.
// Models with no configured chain fall straight to the baseline.
func (m *Manager) FallbackChain(name string) []string {
	if chain, ok := m.fallbacks[name]; ok {
		return append([]string(nil), chain...)
	}
	if m.baseline != "" && name != m.baseline {
		return []string{m.baseline}
	}
	return nil
}

// ModelForMode resolves a mode to its preferred model.
func (m *Manager) ModelForMode(mode types.Mode) (string, bool) {
	name, ok := m.modeModels[mode]
	return name, ok
}

// Baseline returns the always-loaded last-resort model.
func (m *Manager) Baseline() string { return m.baseline }

// RuntimeHealth probes the runtime's health endpoint.
func (m *Manager) RuntimeHealth(ctx context.Context) error { return m.rt.Health(ctx) }

// updateGaugesLocked refreshes the prometheus gauges from current state.
func (m *Manager) updateGaugesLocked() {
	residentModels.Set(float64(len(m.loaded)))
	ramUsedMB.Set(float64(m.usedMB))
}
