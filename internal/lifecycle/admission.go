package lifecycle

import (
	"sort"

	"modelgate/pkg/types"
)

// canLoadLocked is the admission check. Caller holds m.mu.
// Rules, in order: unknown models never admit (checked by the caller);
// already-resident models always admit; pinned models are exempt from the
// concurrency cap but still count toward the RAM budget; everything else
// must fit both budgets.
func (m *Manager) canLoadLocked(d types.ModelDescriptor) bool {
	if _, ok := m.loaded[d.Name]; ok {
		return true
	}
	if !d.AlwaysLoaded && m.nonPinnedCountLocked()+1 > m.maxConcurrent {
		return false
	}
	if m.maxRAMMB > 0 && m.usedMB+d.RAMEstimateMB > m.maxRAMMB {
		return false
	}
	return true
}

func (m *Manager) nonPinnedCountLocked() int {
	n := 0
	for name := range m.loaded {
		if !m.catalog[name].AlwaysLoaded {
			n++
		}
	}
	return n
}

// makeRoomLocked evicts resident non-pinned models, oldest lastUsed
// first, one at a time, re-checking admission after each, until the
// candidate fits or candidates run out. Entries are removed from the map
// immediately; the caller fires the runtime unload triggers after
// releasing the lock. Returns the evicted names in eviction order.
func (m *Manager) makeRoomLocked(d types.ModelDescriptor) []string {
	var victims []string
	for !m.canLoadLocked(d) {
		lru := m.oldestEvictableLocked()
		if lru == nil {
			break
		}
		delete(m.loaded, lru.name)
		m.usedMB -= lru.ramEstimateMB
		if m.usedMB < 0 {
			m.usedMB = 0
		}
		m.evictions++
		victims = append(victims, lru.name)
	}
	if len(victims) > 0 {
		m.updateGaugesLocked()
	}
	return victims
}

// oldestEvictableLocked picks the least-recently-used non-pinned model.
func (m *Manager) oldestEvictableLocked() *loadedModel {
	var lru *loadedModel
	for name, lm := range m.loaded {
		if m.catalog[name].AlwaysLoaded {
			continue
		}
		if lru == nil || lm.lastUsed.Before(lru.lastUsed) {
			lru = lm
		}
	}
	return lru
}

// evictableByIdleLocked returns non-pinned models whose idle time exceeds
// their descriptor timeout, oldest first. Caller holds m.mu.
func (m *Manager) evictableByIdleLocked() []*loadedModel {
	now := m.now()
	var out []*loadedModel
	for name, lm := range m.loaded {
		d := m.catalog[name]
		if d.AlwaysLoaded || d.IdleTimeout <= 0 {
			continue
		}
		if now.Sub(lm.lastUsed) > d.IdleTimeout {
			out = append(out, lm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].lastUsed.Before(out[j].lastUsed) })
	return out
}
