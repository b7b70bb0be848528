package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	// genTotal counts terminal generation outcomes by request kind and status.
	genTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_total",
			Help: "Total number of completed generation attempts.",
		},
		[]string{"kind", "status"},
	)

	// genDuration records backend generation time in seconds. Buckets are
	// tuned for image renders, which take seconds to minutes rather than
	// milliseconds.
	genDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Duration of backend generation calls in seconds.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	// queueDepth gauges the number of requests waiting for dispatch.
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generation_queue_depth",
			Help: "Current number of queued generation requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(genTotal, genDuration, queueDepth)
}
