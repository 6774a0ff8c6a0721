package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricepulse",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of pricing endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricepulse",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by pricing endpoint and error kind",
		},
		[]string{"endpoint", "kind"},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pricepulse",
			Subsystem: "api",
			Name:      "batch_items",
			Help:      "Items per batch analyze request",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, BatchSize)
	})
}
