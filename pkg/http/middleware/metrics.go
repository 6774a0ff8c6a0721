package middleware

import (
	"strconv"
	"time"

	applogger "PricePulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds the request series of one server.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	size     *prometheus.HistogramVec
	cache    *prometheus.CounterVec
}

// NewHTTPMetrics registers the request series on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)
	return &HTTPMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricepulse_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricepulse_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "class"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricepulse_http_in_flight_requests",
			Help: "Requests currently being served",
		}),
		size: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricepulse_http_response_size_bytes",
			Help:    "Response body size",
			Buckets: prometheus.ExponentialBuckets(128, 4, 8),
		}, []string{"route"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricepulse_http_cache_total",
			Help: "Forecast responses by X-Cache result",
		}, []string{"route", "result"}),
	}
}

// Middleware labels series by route template, so query strings and path
// parameters do not create new series. Server errors are logged as errors and
// requests at or above slow as warnings.
func (m *HTTPMetrics) Middleware(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			elapsed := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			res := c.Response()
			method := c.Request().Method

			m.requests.WithLabelValues(route, method, strconv.Itoa(res.Status)).Inc()
			m.latency.WithLabelValues(route, method, statusClass(res.Status)).Observe(elapsed.Seconds())
			m.size.WithLabelValues(route).Observe(float64(res.Size))
			if hit := res.Header().Get("X-Cache"); hit != "" {
				m.cache.WithLabelValues(route, hit).Inc()
			}

			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.Int("status", res.Status),
				applogger.Duration("duration_ms", elapsed),
				applogger.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if res.Status >= 500 {
				l.Error("http request failed", fields...)
			} else if slow > 0 && elapsed >= slow {
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
