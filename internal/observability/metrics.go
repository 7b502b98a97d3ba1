package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fairyhunter13/redisqueue/domain"
)

var (
	pushLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_push_latency_seconds",
			Help:    "Time to durably enqueue a document.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)
	idleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_consumer_idle_seconds",
			Help:    "Time the consumer's blocking pop spent waiting for work.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"queue"},
	)
	executeWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_execute_wait_seconds",
			Help:    "Time spent waiting for the handler to accept dispatch.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)
	restoreBlocked = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_restore_blocked_seconds",
			Help:    "Time the reaper spent restoring a lost in-flight document.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)
	readyLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_ready_length",
			Help: "Cached length of the ready list (refreshed at most every 15s).",
		},
		[]string{"queue"},
	)
	serializationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_serialization_errors_total",
			Help: "Count of documents dropped for serialization/deserialization failure.",
		},
		[]string{"queue"},
	)

	registerOnce sync.Once
)

// InitMetrics registers the queue's Prometheus collectors with the default
// registry. It is safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			pushLatency,
			idleDuration,
			executeWait,
			restoreBlocked,
			readyLength,
			serializationErrors,
		)
	})
}

// PrometheusRecorder implements domain.Recorder against the package-level
// collectors registered by InitMetrics.
type PrometheusRecorder struct{}

// NewPrometheusRecorder returns a domain.Recorder backed by Prometheus.
// Call InitMetrics once at process start before using it.
func NewPrometheusRecorder() PrometheusRecorder { return PrometheusRecorder{} }

func (PrometheusRecorder) ObservePushLatency(queue string, d time.Duration) {
	pushLatency.WithLabelValues(queue).Observe(d.Seconds())
}

func (PrometheusRecorder) ObserveIdle(queue string, d time.Duration) {
	idleDuration.WithLabelValues(queue).Observe(d.Seconds())
}

func (PrometheusRecorder) ObserveExecuteWait(queue string, d time.Duration) {
	executeWait.WithLabelValues(queue).Observe(d.Seconds())
}

func (PrometheusRecorder) ObserveRestoreBlocked(queue string, d time.Duration) {
	restoreBlocked.WithLabelValues(queue).Observe(d.Seconds())
}

func (PrometheusRecorder) SetReadyLength(queue string, n int64) {
	readyLength.WithLabelValues(queue).Set(float64(n))
}

func (PrometheusRecorder) IncSerializationError(queue string) {
	serializationErrors.WithLabelValues(queue).Inc()
}

var _ domain.Recorder = PrometheusRecorder{}

// NoopRecorder discards every observation. Useful for embedding the queue
// core without wiring Prometheus.
type NoopRecorder struct{}

func (NoopRecorder) ObservePushLatency(string, time.Duration)    {}
func (NoopRecorder) ObserveIdle(string, time.Duration)           {}
func (NoopRecorder) ObserveExecuteWait(string, time.Duration)    {}
func (NoopRecorder) ObserveRestoreBlocked(string, time.Duration) {}
func (NoopRecorder) SetReadyLength(string, int64)                {}
func (NoopRecorder) IncSerializationError(string)                {}

var _ domain.Recorder = NoopRecorder{}
