package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the Prometheus collectors exported by the monitor.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	NotificationsSent    *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	BreachFlagFailures   *prometheus.CounterVec
	TimerFailures        *prometheus.CounterVec
	Runs                 *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	HTTPRequests         *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_notifications_sent_total",
			Help: "SLA notifications delivered, by notification type and timer",
		}, []string{"type", "timer"}),
		NotificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_notification_failures_total",
			Help: "SLA notification sends that failed, by recipient class",
		}, []string{"recipient_class"}),
		BreachFlagFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_breach_flag_failures_total",
			Help: "Breach flag writes that failed, by timer",
		}, []string{"timer"}),
		TimerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_timer_failures_total",
			Help: "Per-ticket timer failures captured in run summaries, by stage",
		}, []string{"stage"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_runs_total",
			Help: "SLA monitor runs, by final state",
		}, []string{"state"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_run_duration_seconds",
			Help:    "Wall time of SLA monitor runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_http_requests_total",
			Help: "HTTP requests served, by route, method and status",
		}, []string{"path", "method", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.NotificationsSent,
		m.NotificationFailures,
		m.BreachFlagFailures,
		m.TimerFailures,
		m.Runs,
		m.RunDuration,
		m.HTTPRequests,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordNotification counts a delivered notification.
func (m *Metrics) RecordNotification(kind, timer string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(kind, timer).Inc()
}

// RecordNotificationFailure counts a failed send.
func (m *Metrics) RecordNotificationFailure(recipientClass string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(recipientClass).Inc()
}

// RecordBreachFlagFailure counts a failed breach flag write.
func (m *Metrics) RecordBreachFlagFailure(timer string) {
	if m == nil {
		return
	}
	m.BreachFlagFailures.WithLabelValues(timer).Inc()
}

// RecordTimerFailure counts a failure that landed in a run summary.
func (m *Metrics) RecordTimerFailure(stage string) {
	if m == nil {
		return
	}
	m.TimerFailures.WithLabelValues(stage).Inc()
}

// RecordRun records the outcome and duration of a run.
func (m *Metrics) RecordRun(state string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(state).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}
