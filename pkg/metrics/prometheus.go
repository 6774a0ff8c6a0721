package metrics

import (
	"PricePulse/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ repository.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	resolutions     *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	products        prometheus.Gauge
	categories      prometheus.Gauge
	snapshotVersion prometheus.Gauge
}

// New creates a recorder registered on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		resolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_resolutions_total",
				Help: "Resolved product queries by source kind",
			},
			[]string{"source_kind"},
		),
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_recommendations_total",
				Help: "Recommendations issued by action",
			},
			[]string{"action"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricepulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		products: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricepulse_store_products",
			Help: "Products in the active price snapshot",
		}),
		categories: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricepulse_store_categories",
			Help: "Categories in the active price snapshot",
		}),
		snapshotVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricepulse_store_version",
			Help: "Version of the active price snapshot",
		}),
	}
}

// RecordResolution counts a successful resolution.
func (r *Recorder) RecordResolution(kind string) {
	r.resolutions.WithLabelValues(kind).Inc()
}

// RecordRecommendation counts an issued recommendation.
func (r *Recorder) RecordRecommendation(action string) {
	r.recommendations.WithLabelValues(action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSnapshot publishes the size and version of the installed snapshot.
func (r *Recorder) RecordSnapshot(products, categories int, version uint64) {
	r.products.Set(float64(products))
	r.categories.Set(float64(categories))
	r.snapshotVersion.Set(float64(version))
}
