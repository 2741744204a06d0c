package runtime

import (
	"github.com/prometheus/client_golang/prometheus"

	"modelgate/internal/breaker"
)

var (
	breakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "modelgate",
		Subsystem: "runtime",
		Name:      "breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half_open, 2=open)",
	})

	retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "modelgate",
		Subsystem: "runtime",
		Name:      "retries_total",
		Help:      "Total retried runtime calls",
	})
)

func init() {
	prometheus.MustRegister(breakerState, retriesTotal)
}

// observeBreaker mirrors the breaker state into the gauge.
func (c *Client) observeBreaker() {
	switch breaker.State(c.br.Snapshot().State) {
	case breaker.StateOpen:
		breakerState.Set(2)
	case breaker.StateHalfOpen:
		breakerState.Set(1)
	default:
		breakerState.Set(0)
	}
}
