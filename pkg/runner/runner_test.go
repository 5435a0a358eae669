package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAssistant replays turns and records what it was sent.
type fakeAssistant struct {
	mu        sync.Mutex
	chats     []string
	decisions []concierge.Decision
	turns     []*domain.Turn
	errs      []error
	block     bool
}

func (f *fakeAssistant) next(ctx context.Context) (*domain.Turn, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if len(f.turns) == 0 {
		return nil, errors.New("fake: no more turns")
	}
	turn, err := f.turns[0], f.errs[0]
	f.turns, f.errs = f.turns[1:], f.errs[1:]
	return turn, err
}

func (f *fakeAssistant) push(turn *domain.Turn, err error) {
	f.turns = append(f.turns, turn)
	f.errs = append(f.errs, err)
}

func (f *fakeAssistant) Chat(ctx context.Context, _, _, text string) (*domain.Turn, error) {
	f.mu.Lock()
	f.chats = append(f.chats, text)
	f.mu.Unlock()
	return f.next(ctx)
}

func (f *fakeAssistant) Resume(ctx context.Context, _ string, d concierge.Decision) (*domain.Turn, error) {
	f.mu.Lock()
	f.decisions = append(f.decisions, d)
	f.mu.Unlock()
	return f.next(ctx)
}

func say(id, text string) domain.Output {
	return domain.Output{Type: domain.OutputText, MessageID: id, Text: text}
}

func confirm(id, desc string) domain.Output {
	return domain.Output{Type: domain.OutputConfirmation, Confirmation: &domain.PendingConfirmation{ID: id, Description: desc}}
}

func TestRunner_ConfirmAndDeduplicate(t *testing.T) {
	bot := &fakeAssistant{}
	bot.push(&domain.Turn{Status: domain.StatusPendingConfirmation, Outputs: []domain.Output{
		say("m1", "Let me book that."), confirm("p-1", "book_appointment(doctor_id=1)"),
	}}, nil)
	bot.push(&domain.Turn{Outputs: []domain.Output{
		say("m1", "Let me book that."), say("m2", "Appointment ID: 7"),
	}}, nil)

	var out bytes.Buffer
	in := strings.NewReader("book me with Dr. Smith\ny\nquit\n")
	r := New(bot, WithHandler(NewTextHandler(in, &out)), WithInterruptSource(make(chan struct{})))

	require.NoError(t, r.Run(context.Background(), "t-1", "p-1001"))

	assert.Equal(t, []string{"book me with Dr. Smith"}, bot.chats)
	require.Len(t, bot.decisions, 1)
	assert.Equal(t, concierge.Decision{Approve: true, ConfirmationID: "p-1"}, bot.decisions[0])
	assert.Equal(t, 1, strings.Count(out.String(), "Let me book that."), "messages print once")
	assert.Contains(t, out.String(), "Appointment ID: 7")
	assert.Contains(t, out.String(), ConfirmationPrompt)
}

func TestRunner_RejectionReason(t *testing.T) {
	bot := &fakeAssistant{}
	bot.push(&domain.Turn{Outputs: []domain.Output{confirm("p-1", "cancel_appointment(3)")}}, nil)
	bot.push(&domain.Turn{Outputs: []domain.Output{say("m2", "Which time suits you?")}}, nil)

	r := New(bot,
		WithHandler(NewTextHandler(strings.NewReader("cancel it\nwrong time\n"), io.Discard)),
		WithInterruptSource(make(chan struct{})))

	require.NoError(t, r.Run(context.Background(), "t-1", ""), "EOF ends the session")
	require.Len(t, bot.decisions, 1)
	assert.False(t, bot.decisions[0].Approve)
	assert.Equal(t, "wrong time", bot.decisions[0].Reason)
}

func TestRunner_TurnErrorKeepsGoing(t *testing.T) {
	bot := &fakeAssistant{}
	bot.push(nil, fmt.Errorf("%w: openai: 503", domain.ErrExternalService))
	bot.push(&domain.Turn{Outputs: []domain.Output{say("m1", "Back online.")}}, nil)

	var out bytes.Buffer
	var observed []error
	r := New(bot,
		WithHandler(NewTextHandler(strings.NewReader("hello\nhello again\nexit\n"), &out)),
		WithTurnObserver(func(err error) { observed = append(observed, err) }),
		WithInterruptSource(make(chan struct{})))

	require.NoError(t, r.Run(context.Background(), "t-1", ""))
	assert.Contains(t, out.String(), "Error: ")
	assert.Contains(t, out.String(), "Back online.")
	require.Len(t, observed, 2)
	assert.ErrorIs(t, observed[0], domain.ErrExternalService)
	assert.NoError(t, observed[1])
}

func TestRunner_AutoApprove(t *testing.T) {
	bot := &fakeAssistant{}
	bot.push(&domain.Turn{Outputs: []domain.Output{confirm("p-1", "reserve_parking_spot")}}, nil)
	bot.push(&domain.Turn{Outputs: []domain.Output{say("m1", "Reserved.")}}, nil)

	var out bytes.Buffer
	r := New(bot,
		WithHandler(NewJSONHandler(strings.NewReader(`{"text":"park"}`+"\n"), &out)),
		WithApprover(AutoApprove()),
		WithInterruptSource(make(chan struct{})))

	require.NoError(t, r.Run(context.Background(), "t-1", ""))
	require.Len(t, bot.decisions, 1)
	assert.True(t, bot.decisions[0].Approve)
	assert.Equal(t, 2, strings.Count(out.String(), "\n"), "confirmation and reply, each once")
}

func TestRunner_InterruptCancelsTurn(t *testing.T) {
	bot := &fakeAssistant{block: true}
	interrupts := make(chan struct{}, 1)
	pr, pw := io.Pipe()

	var out bytes.Buffer
	var mu sync.Mutex
	r := New(bot,
		WithHandler(NewTextHandler(pr, &lockedWriter{w: &out, mu: &mu})),
		WithInterruptSource(interrupts))

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), "t-1", "") }()

	_, err := io.WriteString(pw, "slow question\n")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		bot.mu.Lock()
		defer bot.mu.Unlock()
		return len(bot.chats) == 1
	}, time.Second, 5*time.Millisecond)

	interrupts <- struct{}{}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Contains(out.String(), "Interrupted.")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, pw.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
