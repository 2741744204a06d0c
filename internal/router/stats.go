package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"modelgate/pkg/types"
)

const defaultHistorySize = 1000

var routeDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "modelgate",
	Subsystem: "router",
	Name:      "decisions_total",
	Help:      "Routing decisions by mode and outcome",
}, []string{"mode", "result"})

func init() {
	prometheus.MustRegister(routeDecisions)
}

// history is a bounded in-process ring of routing decisions, read only by
// the stats endpoint.
type history struct {
	mu   sync.Mutex
	buf  []types.RoutingDecision
	next int
	full bool
}

func newHistory(size int) *history {
	return &history{buf: make([]types.RoutingDecision, size)}
}

func (h *history) add(d types.RoutingDecision) {
	h.mu.Lock()
	h.buf[h.next] = d
	h.next++
	if h.next == len(h.buf) {
		h.next = 0
		h.full = true
	}
	h.mu.Unlock()
}

func (h *history) stats() types.RoutingStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.next
	if h.full {
		n = len(h.buf)
	}
	out := types.RoutingStats{
		TotalDecisions:    n,
		ModeDistribution:  make(map[types.Mode]int),
		ModelDistribution: make(map[string]int),
	}
	if n == 0 {
		return out
	}
	fallbacks := 0
	confSum := 0.0
	for i := 0; i < n; i++ {
		d := h.buf[i]
		out.ModeDistribution[d.Mode]++
		out.ModelDistribution[d.Model]++
		if d.IsFallback {
			fallbacks++
		}
		confSum += d.Confidence
	}
	out.FallbackRate = float64(fallbacks) / float64(n)
	out.AverageConfidence = confSum / float64(n)
	return out
}
