package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Analysis metrics
	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_analyses_total",
			Help: "Total number of analyses",
		},
		[]string{"transport", "verdict"}, // verdict: SUITABLE|UNSUITABLE|error
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cropadvisor_analysis_duration_seconds",
			Help:    "Analysis latency in seconds, cache lookups included",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"transport"},
	)

	RecommendationsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_recommendations_total",
			Help: "Total number of recommendation lines returned",
		},
		[]string{"direction"}, // direction: increase|decrease|fallback
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_cache_lookups_total",
			Help: "Analysis cache lookups",
		},
		[]string{"result"}, // result: hit|miss|error
	)

	// Model metrics
	ModelReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_model_reloads_total",
			Help: "Total number of model load attempts",
		},
		[]string{"status"}, // status: ready|partially_ready|failed
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cropadvisor_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cropadvisor_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Transport metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_kafka_messages_total",
			Help: "Total Kafka messages produced/consumed",
		},
		[]string{"topic", "direction", "status"}, // direction: produced|consumed
	)

	NotifyCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropadvisor_notify_calls_total",
			Help: "Calls to the notification server",
		},
		[]string{"status"}, // status: success|error
	)

	HTTPRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cropadvisor_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	initOnce sync.Once
)

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			Analyses,
			AnalysisDuration,
			RecommendationsEmitted,
			CacheLookups,
			ModelReloads,
			WorkerExecutions,
			WorkerDuration,
			WorkerLastRun,
			KafkaMessages,
			NotifyCalls,
			HTTPRateLimited,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAnalysis records one analysis outcome. verdict is empty on error.
func RecordAnalysis(transport, verdict string, duration time.Duration) {
	if verdict == "" {
		verdict = "error"
	}
	Analyses.WithLabelValues(transport, verdict).Inc()
	AnalysisDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// RecordRecommendation counts one emitted recommendation line
func RecordRecommendation(direction string) {
	RecommendationsEmitted.WithLabelValues(direction).Inc()
}

// RecordCacheLookup records a cache hit, miss or error
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordModelReload records a model load attempt by resulting state
func RecordModelReload(status string) {
	ModelReloads.WithLabelValues(status).Inc()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, statusOf(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordKafkaMessage records a consumed or produced message
func RecordKafkaMessage(topic, direction string, err error) {
	KafkaMessages.WithLabelValues(topic, direction, statusOf(err)).Inc()
}

// RecordNotify records a notification call
func RecordNotify(err error) {
	NotifyCalls.WithLabelValues(statusOf(err)).Inc()
}

// RecordHTTPRateLimited counts a request rejected by the rate limiter
func RecordHTTPRateLimited() {
	HTTPRateLimited.Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
