package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workerTickSeconds, workerTickErrors) }

var workerTickSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "fleet_worker_tick_seconds",
		Help:    "Worker tick duration distribution.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	},
	[]string{"worker"},
)

var workerTickErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleet_worker_tick_errors_total",
		Help: "Errors recovered at worker tick boundaries.",
	},
	[]string{"worker"},
)

func ObserveTick(worker string, seconds float64) {
	workerTickSeconds.WithLabelValues(norm(worker)).Observe(seconds)
}

func IncTickError(worker string) { workerTickErrors.WithLabelValues(norm(worker)).Inc() }
