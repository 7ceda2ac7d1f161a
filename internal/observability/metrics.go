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
	ActiveSessions prometheus.Gauge
	Turns          *prometheus.CounterVec
	NodeExecutions *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	TurnLatency    prometheus.Histogram

	turnStages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of planning sessions that have not reached the terminal status.",
		}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed conversation turns by outcome.",
		}, []string{"outcome"}),
		NodeExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "State-machine node executions by node.",
		}, []string{"node"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Collaborator errors by provider and code.",
		}, []string{"provider", "code"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "Latency of one full conversation turn in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}),
		turnStages: newTurnStageWindow(256),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(float64(d.Milliseconds()))
	m.ObserveTurnStage("turn_total", d)
}

// ObserveTurnStage feeds the rolling perf window exposed at the latency
// snapshot endpoint.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	m.turnStages.Observe(stage, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveTurnIndicator(name string) {
	m.turnStages.ObserveIndicator(name)
}

func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	return m.turnStages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
