package lifecycle

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "modelgate",
		Subsystem: "lifecycle",
		Name:      "loads_total",
		Help:      "Total successful model loads",
	})

	loadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "modelgate",
		Subsystem: "lifecycle",
		Name:      "load_failures_total",
		Help:      "Total failed model load attempts",
	})

	evictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelgate",
		Subsystem: "lifecycle",
		Name:      "evictions_total",
		Help:      "Total model evictions",
	}, []string{"reason"})

	fallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "modelgate",
		Subsystem: "lifecycle",
		Name:      "fallbacks_total",
		Help:      "Total fallback substitutions",
	})

	residentModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "modelgate",
		Subsystem: "lifecycle",
		Name:      "resident_models",
		Help:      "Models currently resident",
	})

	ramUsedMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "modelgate",
		Subsystem: "lifecycle",
		Name:      "ram_used_mb",
		Help:      "Estimated RAM in MB counted against the budget",
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, loadFailuresTotal, evictionsTotal, fallbacksTotal, residentModels, ramUsedMB)
}
