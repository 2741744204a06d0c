package lifecycle

import (
	"sort"

	"modelgate/pkg/types"
)

// Status builds the detailed admission/budget view for GET /status.
// The breaker snapshot is filled in by the HTTP layer, which owns the
// runtime client.
func (m *Manager) Status() types.StatusResponse {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := types.StatusResponse{
		LoadedModels:         make([]types.LoadedModelStatus, 0, len(m.loaded)),
		RAMBudgetMB:          m.maxRAMMB,
		RAMUsedMB:            m.usedMB,
		MaxConcurrent:        m.maxConcurrent,
		EvictIntervalSeconds: int64(m.evictInterval.Seconds()),
		LoadsTotal:           m.loads,
		EvictionsTotal:       m.evictions,
		FallbacksTotal:       m.fallbackHits,
		UptimeSeconds:        int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:       now.Unix(),
	}
	for name, lm := range m.loaded {
		d := m.catalog[name]
		resp.LoadedModels = append(resp.LoadedModels, types.LoadedModelStatus{
			Name:               name,
			LoadedAt:           lm.loadedAt.Unix(),
			LastUsed:           lm.lastUsed.Unix(),
			IdleSeconds:        int64(now.Sub(lm.lastUsed).Seconds()),
			IdleTimeoutSeconds: int64(d.IdleTimeout.Seconds()),
			RAMEstimateMB:      lm.ramEstimateMB,
			AlwaysLoaded:       d.AlwaysLoaded,
		})
	}
	sort.Slice(resp.LoadedModels, func(i, j int) bool {
		return resp.LoadedModels[i].Name < resp.LoadedModels[j].Name
	})
	return resp
}

// Ready reports whether the manager has started and the baseline model is
// resident. Readiness gates traffic, not liveness.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return false
	}
	_, ok := m.loaded[m.baseline]
	return ok
}

// LoadedNames returns the names of currently resident models, sorted.
func (m *Manager) LoadedNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
