package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions      prometheus.Gauge
	SessionEvents       *prometheus.CounterVec
	GenerationFailures  *prometheus.CounterVec
	TranscriptionErrors prometheus.Counter
	TurnLatency         prometheus.Histogram

	// Turns is an in-process rolling window of turn latency per interview
	// stage, exposed on the perf endpoint for quick operator inspection.
	Turns *StageLatencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of interview sessions not yet completed.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		GenerationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Generation capability failures by outcome.",
		}, []string{"outcome"}),
		TranscriptionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Audio inputs that could not be transcribed.",
		}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end latency of one answer/question turn in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}),
		Turns: NewStageLatencyWindow(0),
	}
}

func (m *Metrics) ObserveTurn(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.TurnLatency.Observe(ms)
	m.Turns.Observe(stage, ms)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
