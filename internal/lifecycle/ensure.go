package lifecycle

import (
	"context"
)

// EnsureLoaded guarantees one model is resident, evicting idle models to
// make room when the budget is tight. The admission decision is finalized
// under the state mutex; the runtime load trigger runs outside it so a
// slow cold load never blocks other callers. Returns false when the model
// is unknown, admission cannot be satisfied, or the load trigger fails.
func (m *Manager) EnsureLoaded(ctx context.Context, name string) bool {
	m.mu.Lock()
	if lm, ok := m.loaded[name]; ok {
		lm.lastUsed = m.now()
		m.mu.Unlock()
		return true
	}
	d, known := m.catalog[name]
	if !known {
		m.mu.Unlock()
		m.log.Warn().Str("model", name).Msg("ensure: unknown model")
		return false
	}

	var victims []string
	if !m.canLoadLocked(d) {
		victims = m.makeRoomLocked(d)
	}
	admitted := m.canLoadLocked(d)
	m.mu.Unlock()

	// Evictions chosen under the lock are committed; fire the unload
	// triggers now (fail-open: the entries are already gone).
	for _, v := range victims {
		m.triggerUnload(ctx, v, "make_room")
	}
	if !admitted {
		m.log.Warn().Str("model", name).Int("ram_mb", d.RAMEstimateMB).
			Msg("ensure: admission denied")
		return false
	}

	if err := m.rt.TriggerLoad(ctx, name); err != nil {
		loadFailuresTotal.Inc()
		m.log.Warn().Err(err).Str("model", name).Msg("ensure: load trigger failed")
		return false
	}

	now := m.now()
	m.mu.Lock()
	// Atomic check-then-insert: a concurrent caller may have won the race.
	if lm, ok := m.loaded[name]; ok {
		lm.lastUsed = now
		m.mu.Unlock()
		return true
	}
	m.loaded[name] = &loadedModel{
		name:          name,
		loadedAt:      now,
		lastUsed:      now,
		ramEstimateMB: d.RAMEstimateMB,
	}
	m.usedMB += d.RAMEstimateMB
	m.loads++
	m.updateGaugesLocked()
	m.mu.Unlock()

	loadsTotal.Inc()
	m.pub.Publish(Event{Name: "model_loaded", Model: name, Fields: map[string]any{"ram_mb": d.RAMEstimateMB}})
	m.log.Info().Str("model", name).Int("ram_mb", d.RAMEstimateMB).Msg("model loaded")
	return true
}

// EnsureLoadedWithFallback never fails to name a model: the primary is
// tried first, then its fallback chain, and the always-loaded baseline is
// returned unconditionally as the last resort. The second return value is
// true only when the primary itself was loadable.
func (m *Manager) EnsureLoadedWithFallback(ctx context.Context, name string) (string, bool) {
	if m.EnsureLoaded(ctx, name) {
		return name, true
	}
	for _, alt := range m.FallbackChain(name) {
		if alt == name {
			continue
		}
		if m.EnsureLoaded(ctx, alt) {
			m.recordFallback(name, alt)
			return alt, false
		}
	}
	// Should not happen: the baseline terminates every chain and is
	// assumed always loadable. Name it anyway.
	m.recordFallback(name, m.baseline)
	return m.baseline, false
}

func (m *Manager) recordFallback(wanted, got string) {
	m.mu.Lock()
	m.fallbackHits++
	m.mu.Unlock()
	fallbacksTotal.Inc()
	m.pub.Publish(Event{Name: "fallback", Model: got, Fields: map[string]any{"wanted": wanted}})
	m.log.Info().Str("wanted", wanted).Str("using", got).Msg("fallback model substituted")
}
