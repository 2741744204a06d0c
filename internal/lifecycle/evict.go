package lifecycle

import (
	"context"
	"time"
)

// evictLoop runs the periodic idle-eviction pass until ctx is canceled.
func (m *Manager) evictLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictIdle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// evictIdle removes every resident model that has been idle longer than
// its descriptor timeout. Pinned models are never inspected. Eviction is
// fail-open: the in-memory entry goes away even when the runtime unload
// call fails, so a phantom "loaded" entry can never block admission.
func (m *Manager) evictIdle(ctx context.Context) {
	m.mu.Lock()
	expired := m.evictableByIdleLocked()
	for _, lm := range expired {
		delete(m.loaded, lm.name)
		m.usedMB -= lm.ramEstimateMB
		if m.usedMB < 0 {
			m.usedMB = 0
		}
		m.evictions++
	}
	if len(expired) > 0 {
		m.updateGaugesLocked()
	}
	m.mu.Unlock()

	for _, lm := range expired {
		idle := m.now().Sub(lm.lastUsed)
		m.log.Info().Str("model", lm.name).Dur("idle", idle).Msg("evicting idle model")
		m.triggerUnload(ctx, lm.name, "idle")
	}
}

// Unload explicitly removes a resident model, with the same fail-open
// accounting as idle eviction.
func (m *Manager) Unload(ctx context.Context, name string) error {
	if _, known := m.catalog[name]; !known {
		return ErrModelNotFound(name)
	}
	m.mu.Lock()
	lm, ok := m.loaded[name]
	if !ok {
		m.mu.Unlock()
		return notResidentError{name: name}
	}
	delete(m.loaded, name)
	m.usedMB -= lm.ramEstimateMB
	if m.usedMB < 0 {
		m.usedMB = 0
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.triggerUnload(ctx, name, "explicit")
	return nil
}

// triggerUnload fires the runtime unload call with a short timeout and
// records the outcome. Failures are logged only: the entry is already
// removed from the loaded map.
func (m *Manager) triggerUnload(ctx context.Context, name, reason string) {
	cctx, cancel := context.WithTimeout(ctx, unloadCallTimeout)
	defer cancel()
	if err := m.rt.TriggerUnload(cctx, name); err != nil {
		m.log.Warn().Err(err).Str("model", name).Str("reason", reason).
			Msg("unload trigger failed, dropping tracking anyway")
	}
	evictionsTotal.WithLabelValues(reason).Inc()
	m.pub.Publish(Event{Name: "model_unloaded", Model: name, Fields: map[string]any{"reason": reason}})
}
