package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes engine counters for Prometheus scraping. A nil *Metrics
// is valid and records nothing, so tests and library embedders can skip
// metric wiring.
type Metrics struct {
	stageTransitions     *prometheus.CounterVec
	tasksGenerated       *prometheus.CounterVec
	tasksCompleted       prometheus.Counter
	unknownTemplates     prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewMetrics registers engine metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		stageTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientflow",
			Name:      "stage_transitions_total",
			Help:      "Stage transitions committed, by target stage.",
		}, []string{"stage"}),
		tasksGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientflow",
			Name:      "tasks_generated_total",
			Help:      "Tasks instantiated from templates, by provenance kind.",
		}, []string{"origin"}),
		tasksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clientflow",
			Name:      "tasks_completed_total",
			Help:      "Tasks transitioned to completed.",
		}),
		unknownTemplates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clientflow",
			Name:      "unknown_templates_total",
			Help:      "Completion triggers skipped because no follow-up template was registered.",
		}),
		notificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clientflow",
			Name:      "notification_failures_total",
			Help:      "Best-effort notifications that failed to publish.",
		}),
	}
}

func (m *Metrics) stageTransition(stage Stage) {
	if m == nil {
		return
	}
	m.stageTransitions.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) generated(origin string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.tasksGenerated.WithLabelValues(origin).Add(float64(n))
}

func (m *Metrics) completed() {
	if m == nil {
		return
	}
	m.tasksCompleted.Inc()
}

func (m *Metrics) unknownTemplate() {
	if m == nil {
		return
	}
	m.unknownTemplates.Inc()
}

// NotificationFailure records a failed best-effort notification. Exposed
// for Notifier implementations.
func (m *Metrics) NotificationFailure() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}
