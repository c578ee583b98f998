// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	CurvesComputed        *prometheus.CounterVec
	VolatilityEvaluations *prometheus.CounterVec
	ClassifierFallbacks   *prometheus.CounterVec
	ATRSamplesRecorded    prometheus.Counter
	ReportsGenerated      prometheus.Counter

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Feed metrics
	FeedBarsReceived prometheus.Counter
	FeedBarsStored   prometheus.Counter
	FeedReconnects   prometheus.Counter
	FeedBufferSize   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil registerer uses the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "equity_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CurvesComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "curves_computed_total",
			Help:      "Total number of curves computed by kind",
		}, []string{"kind"}),
		VolatilityEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "volatility",
			Name:      "evaluations_total",
			Help:      "Total number of volatility evaluations by resulting state",
		}, []string{"state"}),
		ClassifierFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "volatility",
			Name:      "fallbacks_total",
			Help:      "Total number of classifier fallbacks to the neutral state by reason",
		}, []string{"reason"}),
		ATRSamplesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "volatility",
			Name:      "atr_samples_recorded_total",
			Help:      "Total number of ATR samples appended to the sample store",
		}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"cache", "result"}),

		FeedBarsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_received_total",
			Help:      "Total number of minute bars received from the feed",
		}),
		FeedBarsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_stored_total",
			Help:      "Total number of minute bars flushed to storage",
		}),
		FeedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect attempts",
		}),
		FeedBufferSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "buffer_size",
			Help:      "Current number of buffered minute bars awaiting flush",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordCurveComputed increments the curves computed counter.
func RecordCurveComputed(kind string) {
	DefaultMetrics.CurvesComputed.WithLabelValues(kind).Inc()
}

// RecordVolatilityEvaluation records the state a volatility evaluation produced.
func RecordVolatilityEvaluation(state string) {
	DefaultMetrics.VolatilityEvaluations.WithLabelValues(state).Inc()
}

// RecordClassifierFallback records a fallback to the neutral volatility state.
func RecordClassifierFallback(reason string) {
	DefaultMetrics.ClassifierFallbacks.WithLabelValues(reason).Inc()
}

// RecordATRSample increments the ATR samples recorded counter.
func RecordATRSample() {
	DefaultMetrics.ATRSamplesRecorded.Inc()
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordCacheResult records a cache hit or miss.
func RecordCacheResult(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheRequests.WithLabelValues(cache, result).Inc()
}

// RecordFeedBars increments the received bars counter.
func RecordFeedBars(n int) {
	DefaultMetrics.FeedBarsReceived.Add(float64(n))
}

// RecordFeedFlush records a flush of buffered bars to storage.
func RecordFeedFlush(stored, remaining int) {
	DefaultMetrics.FeedBarsStored.Add(float64(stored))
	DefaultMetrics.FeedBufferSize.Set(float64(remaining))
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records HTTP request latency.
func RecordHTTPRequest(path string, status int, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(path, statusClass(status)).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
