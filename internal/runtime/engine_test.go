package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/internal/testutils"
	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
	"github.com/aretw0/concierge/pkg/specialist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine   *runtime.Engine
	model    *testutils.ScriptedModel
	store    *memory.Store
	booked   atomic.Int32
	canceled atomic.Int32
	conv     *domain.Conversation

	// onCancel runs inside cancel_appointment before it commits.
	onCancel func()
}

type doctorQuery struct {
	Name    string `json:"name"`
	DelayMS int    `json:"delay_ms"`
}

func newFixture(t *testing.T, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	f := &fixture{model: testutils.NewScriptedModel(), store: memory.NewStore()}

	reg := registry.NewRegistry()
	reg.MustRegister(
		registry.Tool{
			Name: "get_medical_expenses",
			Fn: func(ctx context.Context, _ map[string]any) (any, error) {
				id, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"patient_id": id, "total": 120.5}, nil
			},
		},
		registry.Tool{
			Name:       "search_doctors",
			Parameters: registry.Object(map[string]any{"name": registry.String(""), "delay_ms": registry.Integer("")}),
			Fn: registry.Typed(func(ctx context.Context, in doctorQuery) (any, error) {
				time.Sleep(time.Duration(in.DelayMS) * time.Millisecond)
				return "Dr. " + in.Name, nil
			}),
		},
		registry.Tool{
			Name:       "book_appointment",
			Capability: domain.Sensitive,
			Parameters: registry.Object(map[string]any{
				"doctor_id":        registry.Integer("Doctor"),
				"appointment_time": registry.String("When"),
			}),
			Fn: func(ctx context.Context, _ map[string]any) (any, error) {
				f.booked.Add(1)
				return "Appointment successfully booked! Appointment ID: 7", nil
			},
		},
		registry.Tool{
			Name:       "cancel_appointment",
			Capability: domain.Sensitive,
			Parameters: registry.Object(map[string]any{"appointment_id": registry.Integer("Appointment")}),
			Fn: func(ctx context.Context, _ map[string]any) (any, error) {
				if f.onCancel != nil {
					f.onCancel()
				}
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				f.canceled.Add(1)
				return "Appointment canceled.", nil
			},
		},
	)

	roster, err := specialist.NewRoster(reg,
		specialist.Config{ID: domain.Router, Prompt: "router for {{.UserInfo}}", SafeTools: []string{"get_medical_expenses"}},
		specialist.Config{
			ID: domain.Appointment, Name: "Medical Appointment Assistant", Prompt: "appointments",
			SafeTools:      []string{"search_doctors"},
			SensitiveTools: []string{"book_appointment", "cancel_appointment"},
			Transfer:       &specialist.TransferSpec{Tool: "to_appointment_assistant"},
		},
		specialist.Config{
			ID: domain.Direction, Name: "Direction Assistant", Prompt: "directions",
			Transfer: &specialist.TransferSpec{Tool: "to_direction_assistant"},
		},
	)
	require.NoError(t, err)

	opts = append([]runtime.EngineOption{runtime.WithCheckpointStore(f.store)}, opts...)
	f.engine = runtime.NewEngine(roster, f.model, opts...)
	f.conv = domain.NewConversation("thread-1", "patient-1", time.Now())
	return f
}

func (f *fixture) send(t *testing.T, text string) *domain.Turn {
	t.Helper()
	turn, err := f.engine.Send(context.Background(), f.conv, text)
	require.NoError(t, err)
	return turn
}

func toolMessages(conv *domain.Conversation) []domain.Message {
	var out []domain.Message
	for _, m := range conv.Messages {
		if m.Role == domain.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

// assertCorrelated checks that every tool call in the log has exactly one result.
func assertCorrelated(t *testing.T, conv *domain.Conversation) {
	t.Helper()
	results := map[string]int{}
	for _, m := range conv.Messages {
		if m.Role == domain.RoleTool {
			results[m.ToolCallID]++
		}
	}
	for _, m := range conv.Messages {
		for _, c := range m.ToolCalls {
			assert.Equal(t, 1, results[c.ID], "call %s (%s) must have exactly one result", c.ID, c.Name)
		}
	}
}

func TestEngine_DirectAnswer(t *testing.T) {
	f := newFixture(t)
	f.model.Push(testutils.Say("Hello! How can I help?"))

	turn := f.send(t, "hi")

	assert.Equal(t, domain.StatusIdle, turn.Status)
	assert.Equal(t, domain.Router, turn.Active)
	assert.Equal(t, "Hello! How can I help?", turn.Text())
	require.Len(t, f.conv.Messages, 2)
	assert.Equal(t, domain.AwaitUser, f.conv.Next)

	stored, err := f.store.Load(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, stored.Status)
	assert.Len(t, stored.Messages, 2)
}

func TestEngine_ScenarioA_BookWithApproval(t *testing.T) {
	f := newFixture(t)
	f.model.Push(
		testutils.Call("c1", "to_appointment_assistant", map[string]any{"request": "Dr. Smith tomorrow 10am"}),
		testutils.Call("c2", "book_appointment", map[string]any{"doctor_id": 1, "appointment_time": "2026-01-06 10:00"}),
	)

	turn := f.send(t, "book me with Dr. Smith tomorrow at 10am")

	require.Equal(t, domain.StatusPendingConfirmation, turn.Status)
	pending := turn.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, domain.Appointment, pending.Agent)
	assert.Contains(t, pending.Description, "book_appointment")
	assert.Equal(t, int32(0), f.booked.Load(), "nothing runs before approval")
	assert.Equal(t, domain.DialogStack{domain.Appointment}, f.conv.DialogStack)

	framing := toolMessages(f.conv)
	require.Len(t, framing, 1)
	assert.Equal(t, "c1", framing[0].ToolCallID)
	assert.Contains(t, framing[0].Content, "The assistant is now the Medical Appointment Assistant.")

	stored, err := f.store.Load(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SensitiveToolsNode(domain.Appointment), stored.Next, "the gate is checkpointed")

	f.model.Push(testutils.Say("Done! Your Appointment ID: 7"))
	turn, err = f.engine.Resume(context.Background(), f.conv, runtime.Decision{Approve: true, ConfirmationID: pending.ID})
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.booked.Load())
	assert.Equal(t, domain.StatusIdle, turn.Status)
	assert.Equal(t, domain.Appointment, turn.Active)
	assert.Contains(t, turn.Text(), "Appointment ID")
	assert.Nil(t, f.conv.Pending)
	assertCorrelated(t, f.conv)

	// Replaying the approval must not book twice.
	_, err = f.engine.Resume(context.Background(), f.conv, runtime.Decision{Approve: true, ConfirmationID: pending.ID})
	assert.ErrorIs(t, err, domain.ErrNoPendingConfirmation)
	assert.Equal(t, int32(1), f.booked.Load())
}

func TestEngine_ScenarioB_EscalationReturnsToRouter(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(
		testutils.Call("e1", specialist.EscalationTool, map[string]any{"cancel": true, "reason": "user asks about lab results"}),
		testutils.Say("Here are your lab results."),
	)

	var signals []domain.Signal
	f.engine = runtime.NewEngine(f.engine.Roster(), f.model, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnSignal: func(_ context.Context, e *domain.SignalEvent) { signals = append(signals, e.Signal) },
	}))

	turn := f.send(t, "never mind, tell me about my lab results")

	assert.Empty(t, f.conv.DialogStack)
	assert.Equal(t, domain.Router, turn.Active)
	assert.Equal(t, "Here are your lab results.", turn.Text())

	reqs := f.model.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "appointments", reqs[0].System, "the sticky specialist answers first")
	assert.True(t, strings.HasPrefix(reqs[1].System, "router"), "the router re-handles after the pop")

	tools := toolMessages(f.conv)
	require.Len(t, tools, 1)
	assert.Equal(t, specialist.LeaveMessage, tools[0].Content)
	assert.Equal(t, "e1", tools[0].ToolCallID)

	require.Len(t, signals, 1)
	assert.Equal(t, domain.EscalationCancel, signals[0].(domain.Escalation).Kind)
}

func TestEngine_MalformedEscalationStaysWithSpecialist(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(
		testutils.Call("e1", specialist.EscalationTool, map[string]any{"cancel": "maybe"}),
		testutils.Say("Could you tell me what you need instead?"),
	)

	turn := f.send(t, "actually, never mind")

	assert.Equal(t, domain.DialogStack{domain.Appointment}, f.conv.DialogStack, "nothing is popped")
	assert.Equal(t, domain.Appointment, turn.Active)
	results := toolMessages(f.conv)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, "please fix your mistakes")
	assertCorrelated(t, f.conv)
}

func TestEngine_ScenarioC_RejectionReachesSameAgent(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(testutils.Call("c2", "book_appointment", map[string]any{}))

	turn := f.send(t, "book 10am")
	pending := turn.Pending()
	require.NotNil(t, pending)

	f.model.Push(testutils.Say("Which time would suit you better?"))
	turn, err := f.engine.Resume(context.Background(), f.conv, runtime.Decision{Approve: false, Reason: "wrong time"})
	require.NoError(t, err)

	assert.Equal(t, int32(0), f.booked.Load(), "rejection executes nothing")
	assert.Equal(t, domain.StatusIdle, turn.Status)
	last := f.model.LastRequest()
	assert.Equal(t, "appointments", last.System)
	denial := last.Messages[len(last.Messages)-1]
	assert.Equal(t, "c2", denial.ToolCallID)
	assert.Equal(t, specialist.DeniedMessage("wrong time"), denial.Content)
	assertCorrelated(t, f.conv)
}

func TestEngine_NewMessageWhilePendingRejects(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(testutils.Call("c2", "book_appointment", map[string]any{}))
	f.send(t, "book it")

	f.model.Push(testutils.Say("Okay, I will look for the afternoon."))
	turn := f.send(t, "actually make it the afternoon")

	assert.Equal(t, int32(0), f.booked.Load())
	assert.Equal(t, domain.StatusIdle, turn.Status)
	last, _ := f.conv.LastMessage()
	assert.Equal(t, "Okay, I will look for the afternoon.", last.Content)
	assert.Contains(t, toolMessages(f.conv)[0].Content, "Reason: 'actually make it the afternoon'")
}

func TestEngine_ResumeGuards(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Resume(context.Background(), f.conv, runtime.Decision{Approve: true})
	assert.ErrorIs(t, err, domain.ErrNoPendingConfirmation)

	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(testutils.Call("c2", "book_appointment", map[string]any{}))
	f.send(t, "book it")

	_, err = f.engine.Resume(context.Background(), f.conv, runtime.Decision{Approve: true, ConfirmationID: "stale"})
	assert.ErrorIs(t, err, domain.ErrStaleConfirmation)
	assert.Equal(t, int32(0), f.booked.Load())
	assert.Equal(t, domain.StatusPendingConfirmation, f.conv.Status)
}

func TestEngine_SafeBatchNeverSuspends(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(
		testutils.Batch(
			domain.ToolCall{ID: "s1", Name: "search_doctors", Args: map[string]any{"name": "Slow", "delay_ms": 40}},
			domain.ToolCall{ID: "s2", Name: "search_doctors", Args: map[string]any{"name": "Fast"}},
			domain.ToolCall{ID: "s3", Name: "teleport"},
			domain.ToolCall{ID: "s4", Name: "search_doctors", Args: map[string]any{"name": 12, "bogus": true}},
		),
		testutils.Say("Found Dr. Slow and Dr. Fast."),
	)

	turn := f.send(t, "who is available?")

	assert.Equal(t, domain.StatusIdle, turn.Status)
	assert.Nil(t, turn.Pending())

	tools := toolMessages(f.conv)
	require.Len(t, tools, 4)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, []string{tools[0].ToolCallID, tools[1].ToolCallID, tools[2].ToolCallID, tools[3].ToolCallID}, "results keep request order")
	assert.Equal(t, "Dr. Slow", tools[0].Content)
	assert.Equal(t, "Dr. Fast", tools[1].Content)
	assert.True(t, tools[2].IsError)
	assert.True(t, strings.HasPrefix(tools[2].Content, "Error: teleport is not a valid tool"))
	assert.True(t, strings.HasSuffix(tools[3].Content, "\n please fix your mistakes."))
}

func TestEngine_MixedBatchIsGatedAsWhole(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(testutils.Batch(
		domain.ToolCall{ID: "s1", Name: "search_doctors", Args: map[string]any{"name": "Smith"}},
		domain.ToolCall{ID: "b1", Name: "book_appointment", Args: map[string]any{}},
	))

	turn := f.send(t, "find Smith and book")
	require.NotNil(t, turn.Pending())
	assert.Len(t, turn.Pending().Calls, 2)
	assert.Empty(t, toolMessages(f.conv), "no call of a gated batch runs early")

	f.model.Push(testutils.Say("Booked."))
	_, err := f.engine.Resume(context.Background(), f.conv, runtime.Decision{Approve: true})
	require.NoError(t, err)
	assert.Len(t, toolMessages(f.conv), 2)
	assert.Equal(t, int32(1), f.booked.Load())
}

func TestEngine_IdentityReachesTools(t *testing.T) {
	f := newFixture(t)
	f.model.Push(testutils.Call("x1", "get_medical_expenses", nil), testutils.Say("You owe 120.5"))
	f.send(t, "what do I owe?")
	assert.Contains(t, toolMessages(f.conv)[0].Content, `"patient_id":"patient-1"`)

	f = newFixture(t)
	f.conv.UserContextID = ""
	f.model.Push(testutils.Call("x1", "get_medical_expenses", nil), testutils.Say("I need your patient id."))
	f.send(t, "what do I owe?")
	assert.Contains(t, toolMessages(f.conv)[0].Content, "No patient ID configured.")
}

func TestEngine_DegenerateOutputRetries(t *testing.T) {
	f := newFixture(t)
	f.model.Push(testutils.Empty(), testutils.Empty(), testutils.Say("Sorry, here I am."))

	turn := f.send(t, "hello?")
	assert.Equal(t, "Sorry, here I am.", turn.Text())

	reqs := f.model.Requests()
	require.Len(t, reqs, 3)
	last := reqs[2].Messages[len(reqs[2].Messages)-1]
	assert.Equal(t, specialist.RetryInstruction, last.Content)
	for _, m := range f.conv.Messages {
		assert.NotEqual(t, specialist.RetryInstruction, m.Content, "the retry instruction is never persisted")
	}
}

func TestEngine_DegenerateOutputGivesUp(t *testing.T) {
	f := newFixture(t)
	f.model.Push(testutils.Empty(), testutils.Empty(), testutils.Empty())

	_, err := f.engine.Send(context.Background(), f.conv, "hello?")
	require.ErrorIs(t, err, domain.ErrNoResponse)
	var te *runtime.TurnError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domain.AgentNode(domain.Router), te.Node)

	assert.Equal(t, domain.StatusIdle, f.conv.Status)
	assert.Len(t, f.conv.Messages, 1, "the user message is kept")
}

func TestEngine_ModelFailureIsExternal(t *testing.T) {
	f := newFixture(t)
	f.model.Push(testutils.Fail(errors.New("502 bad gateway")))

	_, err := f.engine.Send(context.Background(), f.conv, "hello?")
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestEngine_StepLimit(t *testing.T) {
	f := newFixture(t, runtime.WithMaxSteps(5))
	for i := 0; i < 10; i++ {
		f.model.Push(testutils.Call(fmt.Sprintf("x%d", i), "get_medical_expenses", nil))
	}

	_, err := f.engine.Send(context.Background(), f.conv, "loop")
	assert.ErrorIs(t, err, domain.ErrStepLimit)
	assert.Equal(t, domain.StatusIdle, f.conv.Status)
	assertCorrelated(t, f.conv)
}

func TestEngine_StackNeverExceedsSpecialists(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Direction, domain.Appointment}
	f.model.Push(
		testutils.Call("e1", specialist.EscalationTool, map[string]any{"reason": "done", "cancel": false}),
		testutils.Call("t1", "to_direction_assistant", map[string]any{"request": "route"}),
		testutils.Say("How else can I help?"),
	)

	f.send(t, "thanks")

	assert.Equal(t, domain.DialogStack{domain.Direction}, f.conv.DialogStack)
	assert.LessOrEqual(t, len(f.conv.DialogStack), f.engine.Roster().MaxDepth())
	tools := toolMessages(f.conv)
	require.Len(t, tools, 2)
	assert.True(t, tools[1].IsError, "a duplicate push is answered with an error")
	assertCorrelated(t, f.conv)
}

func TestEngine_TransferPreemptsOtherCalls(t *testing.T) {
	f := newFixture(t)
	f.model.Push(
		testutils.Batch(
			domain.ToolCall{ID: "x1", Name: "get_medical_expenses"},
			domain.ToolCall{ID: "t1", Name: "to_appointment_assistant", Args: map[string]any{"request": "book"}},
		),
		testutils.Say("Which doctor?"),
	)

	f.send(t, "book and show my bills")

	assert.Equal(t, domain.DialogStack{domain.Appointment}, f.conv.DialogStack)
	tools := toolMessages(f.conv)
	require.Len(t, tools, 2)
	assert.Equal(t, specialist.SkippedMessage, tools[0].Content)
	assertCorrelated(t, f.conv)
}

func TestEngine_RecoversInterruptedTurn(t *testing.T) {
	f := newFixture(t)
	f.conv.Append(
		domain.Message{ID: "u0", Role: domain.RoleUser, Content: "my bills?"},
		domain.Message{ID: "a0", Role: domain.RoleAssistant, Agent: domain.Router,
			ToolCalls: []domain.ToolCall{{ID: "x1", Name: "get_medical_expenses"}}},
	)
	f.conv.Status = domain.StatusRunning
	f.conv.Next = domain.SafeToolsNode(domain.Router)

	f.model.Push(testutils.Say("You owe 120.5"), testutils.Say("Anything else?"))
	turn := f.send(t, "hello again")

	assert.Equal(t, "You owe 120.5\nAnything else?", turn.Text())
	assertCorrelated(t, f.conv)
	assert.Equal(t, domain.StatusIdle, f.conv.Status)
}

func TestEngine_InterruptedApprovalRunsRemainingCallsOnce(t *testing.T) {
	f := newFixture(t)
	f.conv.DialogStack = domain.DialogStack{domain.Appointment}
	f.model.Push(testutils.Batch(
		domain.ToolCall{ID: "b1", Name: "book_appointment", Args: map[string]any{"doctor_id": 1}},
		domain.ToolCall{ID: "k1", Name: "cancel_appointment", Args: map[string]any{"appointment_id": 3}},
	))
	pending := f.send(t, "book Dr. Smith and cancel my old visit").Pending()
	require.NotNil(t, pending)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.onCancel = cancel
	_, err := f.engine.Resume(ctx, f.conv, runtime.Decision{Approve: true, ConfirmationID: pending.ID})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), f.booked.Load())
	assert.Equal(t, int32(0), f.canceled.Load())

	// A new process picks the thread up from the store.
	stored, err := f.store.Load(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, stored.Status)
	assert.Equal(t, domain.SensitiveToolsNode(domain.Appointment), stored.Next)
	require.NotNil(t, stored.Pending)
	results := toolMessages(stored)
	require.Len(t, results, 1, "the committed booking is checkpointed")
	assert.Equal(t, "b1", results[0].ToolCallID)

	f.onCancel = nil
	f.model.Push(testutils.Say("Booked and canceled."), testutils.Say("Hello!"))
	turn, err := f.engine.Send(context.Background(), stored, "hello?")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.booked.Load(), "the booking is not repeated")
	assert.Equal(t, int32(1), f.canceled.Load())
	assert.Equal(t, "Booked and canceled.\nHello!", turn.Text())
	assert.Nil(t, stored.Pending)
	assertCorrelated(t, stored)
}

func TestEngine_RoundTripOrder(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.model.Push(testutils.Call(fmt.Sprintf("x%d", i), "get_medical_expenses", nil), testutils.Say(fmt.Sprintf("answer %d", i)))
		f.send(t, fmt.Sprintf("question %d", i))
	}

	stored, err := f.store.Load(context.Background(), "thread-1")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 12)
	for i := 0; i < 3; i++ {
		turn := stored.Messages[i*4 : i*4+4]
		assert.Equal(t, fmt.Sprintf("question %d", i), turn[0].Content)
		assert.Equal(t, turn[1].ToolCalls[0].ID, turn[2].ToolCallID)
		assert.Equal(t, fmt.Sprintf("answer %d", i), turn[3].Content)
	}
	assert.Greater(t, stored.Version, 0)
}

func TestEngine_Hooks(t *testing.T) {
	var interrupts, resumes, toolCalls atomic.Int32
	var nodes []string
	f := newFixture(t, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeEnter:  func(_ context.Context, e *domain.NodeEvent) { nodes = append(nodes, e.Node) },
		OnInterrupt:  func(context.Context, *domain.GateEvent) { interrupts.Add(1) },
		OnResume:     func(_ context.Context, e *domain.GateEvent) { resumes.Add(1); assert.True(t, e.Approved) },
		OnToolReturn: func(context.Context, *domain.ToolEvent) { toolCalls.Add(1) },
	}))
	f.model.Push(
		testutils.Call("c1", "to_appointment_assistant", map[string]any{"request": "book"}),
		testutils.Call("c2", "book_appointment", map[string]any{}),
	)
	f.send(t, "book")
	f.model.Push(testutils.Say("Done"))
	_, err := f.engine.Resume(context.Background(), f.conv, runtime.Decision{Approve: true})
	require.NoError(t, err)

	assert.Equal(t, int32(1), interrupts.Load())
	assert.Equal(t, int32(1), resumes.Load())
	assert.Equal(t, int32(1), toolCalls.Load())
	assert.Equal(t, []string{"router", "appointment.entry", "appointment.agent", "appointment.sensitive_tools", "appointment.agent"}, nodes)
}
