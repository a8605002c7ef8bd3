// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "taskflow"

const (
	LabelType    = "type"
	LabelOutcome = "outcome"
)

// Notification outcomes.
const (
	OutcomeStored     = "stored"
	OutcomeFailed     = "failed"
	OutcomeSuppressed = "suppressed"
)

// Reminder job outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeDropped = "dropped"
)

// Metrics holds the application's counters.
type Metrics struct {
	TaskEvents    *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	ReminderJobs  *prometheus.CounterVec
}

// New registers the counters with reg. Passing a fresh registry keeps tests
// independent of the global one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TaskEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "task_events_total",
			Help:      "Task lifecycle events by type",
		}, []string{LabelType}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by type and outcome",
		}, []string{LabelType, LabelOutcome}),
		ReminderJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reminder_jobs_total",
			Help:      "Due-date reminder jobs by outcome",
		}, []string{LabelOutcome}),
	}
}

// RecordNotification counts one dispatch attempt.
func (m *Metrics) RecordNotification(notificationType, outcome string) {
	m.Notifications.With(prometheus.Labels{LabelType: notificationType, LabelOutcome: outcome}).Inc()
}

// RecordReminderJob counts one reminder job outcome.
func (m *Metrics) RecordReminderJob(outcome string) {
	m.ReminderJobs.With(prometheus.Labels{LabelOutcome: outcome}).Inc()
}

// TaskEventRecorder counts task events as they are emitted.
type TaskEventRecorder struct {
	metrics *Metrics
}

// NewTaskEventRecorder returns an events.EventHandler backed by m.
func NewTaskEventRecorder(m *Metrics) *TaskEventRecorder {
	return &TaskEventRecorder{metrics: m}
}

var _ events.EventHandler = (*TaskEventRecorder)(nil)

// HandleEvent implements events.EventHandler.
func (r *TaskEventRecorder) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	r.metrics.TaskEvents.With(prometheus.Labels{LabelType: string(event.Type)}).Inc()
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
