package hospital_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/adapters/maps"
	"github.com/aretw0/concierge/internal/adapters/sqlite"
	"github.com/aretw0/concierge/internal/hospital"
	"github.com/aretw0/concierge/internal/testutils"
	"github.com/aretw0/concierge/internal/tools"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/specialist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday morning.
var clock = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func now() time.Time { return clock }

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "hospital.db"),
		sqlite.WithClock(now), sqlite.WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(context.Background()))
	return store
}

func newAssistant(t *testing.T, store *sqlite.Store, model *testutils.ScriptedModel) *concierge.Assistant {
	t.Helper()
	roster, err := hospital.NewRoster(tools.Services{Hospital: store, Model: model})
	require.NoError(t, err)
	bot, err := concierge.New(roster, model,
		concierge.WithUserContextProvider(store),
		concierge.WithClock(now))
	require.NoError(t, err)
	return bot
}

func toolMessages(conv *domain.Conversation) []string {
	var out []string
	for _, m := range conv.Messages {
		if m.Role == domain.RoleTool {
			out = append(out, m.Content)
		}
	}
	return out
}

func TestNewRoster(t *testing.T) {
	roster, err := hospital.NewRoster(tools.Services{Hospital: openStore(t)})
	require.NoError(t, err)
	assert.Equal(t, 4, roster.MaxDepth())

	names := func(id domain.AgentID) []string {
		var out []string
		for _, s := range roster.Tools(id) {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{
		tools.SearchMedicalRecords, tools.GetMedicalExpenses, tools.WebSearch,
		hospital.ToAppointment, hospital.ToAIDoctor, hospital.ToDirection, hospital.ToParking,
	}, names(domain.Router))
	assert.Contains(t, names(domain.Parking), specialist.EscalationTool)

	for _, tool := range []string{tools.BookAppointment, tools.UpdateAppointment, tools.CancelAppointment, tools.SubmitDoctorReview} {
		c, ok := roster.Capability(domain.Appointment, tool)
		require.True(t, ok, tool)
		assert.Equal(t, domain.Sensitive, c, tool)
	}
	c, _ := roster.Capability(domain.Parking, tools.ReserveParkingSpot)
	assert.Equal(t, domain.Sensitive, c)

	sig, ok := roster.Signal(domain.Router, domain.ToolCall{ID: "x", Name: hospital.ToDirection, Args: map[string]any{"request": "route please"}})
	require.True(t, ok)
	transfer := sig.(domain.Transfer)
	assert.Equal(t, domain.Direction, transfer.Target)
	assert.Equal(t, maps.HospitalAddress, transfer.Payload["destination"])
}

// "book me with Dr. Smith tomorrow at 10am", approved, then "never mind,
// tell me about my lab results".
func TestScenario_BookThenChangeTopic(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	model := testutils.NewScriptedModel(
		testutils.Call("c1", hospital.ToAppointment, map[string]any{"request": "Dr. Smith tomorrow at 10am"}),
		testutils.Call("c2", tools.BookAppointment, map[string]any{
			"doctor_id": 1, "scheduled_time": "2026-03-03 10:00", "symptoms": "Blood pressure check",
		}),
	)
	bot := newAssistant(t, store, model)

	turn, err := bot.Chat(ctx, "t-a", sqlite.DemoPatientID, "book me with Dr. Smith tomorrow at 10am")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingConfirmation, turn.Status)
	pending := turn.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, tools.BookAppointment, pending.Calls[0].Name)
	assert.Contains(t, model.Requests()[0].System, "John Doe", "the patient profile reaches the router")

	before, err := store.UpcomingAppointments(ctx, sqlite.DemoPatientID)
	require.NoError(t, err)

	model.Push(testutils.Say("You're booked with Dr. Smith tomorrow at 10:00."))
	turn, err = bot.Resume(ctx, "t-a", concierge.Decision{Approve: true, ConfirmationID: pending.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.Appointment, turn.Active)

	snap, err := bot.Snapshot(ctx, "t-a")
	require.NoError(t, err)
	msgs := toolMessages(snap)
	assert.Contains(t, msgs[len(msgs)-1], "Appointment successfully booked! Appointment ID:")

	after, err := store.UpcomingAppointments(ctx, sqlite.DemoPatientID)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	model.Push(
		testutils.Call("c3", specialist.EscalationTool, map[string]any{"cancel": true, "reason": "User asks about lab results"}),
		testutils.Call("c4", tools.SearchMedicalRecords, nil),
		testutils.Say("Your last lipid panel showed LDL 145 mg/dL."),
	)
	turn, err = bot.Chat(ctx, "t-a", sqlite.DemoPatientID, "never mind, tell me about my lab results")
	require.NoError(t, err)
	assert.Equal(t, domain.Router, turn.Active)
	assert.Contains(t, turn.Text(), "LDL 145")

	snap, err = bot.Snapshot(ctx, "t-a")
	require.NoError(t, err)
	assert.Empty(t, snap.DialogStack)
	msgs = toolMessages(snap)
	assert.Contains(t, msgs[len(msgs)-1], "Lipid panel")
}

// Rejecting the booking with "wrong time" executes nothing and hands the
// reason to the appointment assistant.
func TestScenario_RejectBooking(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	model := testutils.NewScriptedModel(
		testutils.Call("c1", hospital.ToAppointment, map[string]any{"request": "book Dr. Lee"}),
		testutils.Call("c2", tools.BookAppointment, map[string]any{"doctor_id": 5, "scheduled_time": "2026-03-03 10:00"}),
		testutils.Say("Which time would suit you better?"),
	)
	bot := newAssistant(t, store, model)

	turn, err := bot.Chat(ctx, "t-c", sqlite.DemoPatientID, "book me with Dr. Lee")
	require.NoError(t, err)
	require.NotNil(t, turn.Pending())

	turn, err = bot.Resume(ctx, "t-c", concierge.Decision{Approve: false, Reason: "wrong time"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, turn.Status)
	assert.Equal(t, domain.Appointment, turn.Active)

	last := model.LastRequest()
	var denied bool
	for _, m := range last.Messages {
		if m.Role == domain.RoleTool && strings.Contains(m.Content, "Action denied by the user. Reason: 'wrong time'") {
			denied = true
		}
	}
	assert.True(t, denied, "the appointment assistant sees the reason")

	upcoming, err := store.UpcomingAppointments(ctx, sqlite.DemoPatientID)
	require.NoError(t, err)
	for _, a := range upcoming {
		assert.NotEqual(t, 5, a.DoctorID, "nothing was booked")
	}
}

// Cancelling an appointment 10 hours ahead is refused and the appointment
// stays scheduled.
func TestScenario_LateCancellation(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	id, err := store.BookAppointment(ctx, sqlite.DemoPatientID, sqlite.Booking{
		DoctorID:      6,
		ScheduledTime: clock.Add(10 * time.Hour),
	})
	require.NoError(t, err)

	model := testutils.NewScriptedModel(
		testutils.Call("c1", hospital.ToAppointment, map[string]any{"request": "cancel tonight's appointment"}),
		testutils.Call("c2", tools.CancelAppointment, map[string]any{"appointment_id": int(id), "reason": "Schedule conflict"}),
		testutils.Say("I'm sorry, it is too late to cancel online."),
	)
	bot := newAssistant(t, store, model)

	turn, err := bot.Chat(ctx, "t-d", sqlite.DemoPatientID, "cancel my appointment tonight")
	require.NoError(t, err)
	pending := turn.Pending()
	require.NotNil(t, pending)

	_, err = bot.Resume(ctx, "t-d", concierge.Decision{Approve: true, ConfirmationID: pending.ID})
	require.NoError(t, err)

	snap, err := bot.Snapshot(ctx, "t-d")
	require.NoError(t, err)
	msgs := toolMessages(snap)
	assert.Equal(t, "Error: Cannot cancel appointments less than 24 hours before scheduled time.\n please fix your mistakes.", msgs[len(msgs)-1])

	appt, err := store.GetAppointment(ctx, int(id))
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusScheduled, appt.Status)
}
