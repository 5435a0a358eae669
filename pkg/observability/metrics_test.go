package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())
	h := m.Hooks()

	h.OnNodeEnter(ctx, &domain.NodeEvent{Node: "router", Agent: domain.Router})
	h.OnNodeEnter(ctx, &domain.NodeEvent{Node: "router", Agent: domain.Router})
	h.OnToolReturn(ctx, &domain.ToolEvent{Agent: domain.Appointment, ToolName: "book_appointment", Duration: 20 * time.Millisecond})
	h.OnToolReturn(ctx, &domain.ToolEvent{Agent: domain.Appointment, ToolName: "book_appointment", IsError: true})
	h.OnInterrupt(ctx, &domain.GateEvent{Agent: domain.Appointment})
	h.OnResume(ctx, &domain.GateEvent{Agent: domain.Appointment, Approved: true})
	h.OnResume(ctx, &domain.GateEvent{Agent: domain.Parking})
	h.OnSignal(ctx, &domain.SignalEvent{From: domain.Router, To: domain.Parking, Signal: domain.Transfer{Target: domain.Parking}})
	h.OnSignal(ctx, &domain.SignalEvent{From: domain.Parking, To: domain.Router, Signal: domain.Escalation{Kind: domain.EscalationCancel}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.nodeVisits.WithLabelValues("router", "router")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("appointment", "book_appointment", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("appointment", "book_appointment", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.toolDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmations.WithLabelValues("appointment", "requested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmations.WithLabelValues("appointment", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmations.WithLabelValues("parking", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("transfer", "router", "parking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("escalation_cancel", "parking", "router")))
}

func TestMetrics_TurnFailed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.TurnFailed(nil)
	m.TurnFailed(&runtime.TurnError{ThreadID: "t", Err: fmt.Errorf("%w: openai: 500", domain.ErrExternalService)})
	m.TurnFailed(domain.ErrNoResponse)
	m.TurnFailed(io.EOF)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnFailures.WithLabelValues("external_service")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnFailures.WithLabelValues("no_response")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnFailures.WithLabelValues("internal")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.TurnFailed(domain.ErrStepLimit)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `concierge_turn_failures_total{kind="step_limit"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := LogHooks(logger)

	h.OnToolCall(context.Background(), &domain.ToolEvent{EventBase: domain.EventBase{ThreadID: "t-1"}, ToolName: "web_search"})
	h.OnSignal(context.Background(), &domain.SignalEvent{Signal: domain.Escalation{Kind: domain.EscalationComplete}})

	out := buf.String()
	require.Contains(t, out, "tool_call")
	assert.Contains(t, out, "thread_id=t-1")
	assert.Contains(t, out, "kind=escalation_complete")
}
