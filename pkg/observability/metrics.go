package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the concierge collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	nodeVisits    *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	confirmations *prometheus.CounterVec
	signals       *prometheus.CounterVec
	turnFailures  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them next to the Go runtime metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_node_visits_total",
				Help: "Routing graph nodes entered, by node and agent.",
			},
			[]string{"node", "agent"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_tool_calls_total",
				Help: "Tool executions by agent, tool and status.",
			},
			[]string{"agent", "tool", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "concierge_tool_duration_seconds",
				Help:    "Tool execution duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		confirmations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_confirmations_total",
				Help: "Confirmation gate outcomes: requested, approved, rejected.",
			},
			[]string{"agent", "outcome"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_signals_total",
				Help: "Transfers and escalations applied to the dialog stack.",
			},
			[]string{"kind", "from", "to"},
		),
		turnFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "concierge_turn_failures_total",
				Help: "Turns that failed, by error kind.",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.nodeVisits, m.toolCalls, m.toolDuration, m.confirmations, m.signals, m.turnFailures)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.Node, string(e.Agent)).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			status := "ok"
			if e.IsError {
				status = "error"
			}
			m.toolCalls.WithLabelValues(string(e.Agent), e.ToolName, status).Inc()
			m.toolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
		OnInterrupt: func(_ context.Context, e *domain.GateEvent) {
			m.confirmations.WithLabelValues(string(e.Agent), "requested").Inc()
		},
		OnResume: func(_ context.Context, e *domain.GateEvent) {
			outcome := "rejected"
			if e.Approved {
				outcome = "approved"
			}
			m.confirmations.WithLabelValues(string(e.Agent), outcome).Inc()
		},
		OnSignal: func(_ context.Context, e *domain.SignalEvent) {
			m.signals.WithLabelValues(SignalKind(e.Signal), string(e.From), string(e.To)).Inc()
		},
	}
}

// TurnFailed records a failed Chat or Resume. Nil errors are ignored.
func (m *Metrics) TurnFailed(err error) {
	if err == nil {
		return
	}
	m.turnFailures.WithLabelValues(ErrorKind(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// SignalKind names a signal for labels and logs.
func SignalKind(sig domain.Signal) string {
	switch s := sig.(type) {
	case domain.Transfer:
		return "transfer"
	case domain.Escalation:
		return "escalation_" + string(s.Kind)
	}
	return "unknown"
}

// ErrorKind maps an error onto the taxonomy for labels.
func ErrorKind(err error) string {
	kinds := []struct {
		err  error
		name string
	}{
		{domain.ErrExternalService, "external_service"},
		{domain.ErrNoResponse, "no_response"},
		{domain.ErrStepLimit, "step_limit"},
		{domain.ErrThreadNotFound, "thread_not_found"},
		{domain.ErrNoPendingConfirmation, "no_pending_confirmation"},
		{domain.ErrStaleConfirmation, "stale_confirmation"},
		{domain.ErrUnauthorizedAccess, "unauthorized"},
		{domain.ErrInvalidInput, "invalid_input"},
		{domain.ErrStackViolation, "stack_violation"},
		{context.Canceled, "canceled"},
		{context.DeadlineExceeded, "deadline_exceeded"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
