package domain

// OutputType discriminates caller-visible outputs.
type OutputType string

const (
	OutputText         OutputType = "text"
	OutputConfirmation OutputType = "confirmation"
)

// Output is one item a transport renders to the user.
type Output struct {
	Type         OutputType           `json:"type"`
	Agent        AgentID              `json:"agent,omitempty"`
	Text         string               `json:"text,omitempty"`
	MessageID    string               `json:"message_id,omitempty"`
	Confirmation *PendingConfirmation `json:"confirmation,omitempty"`
}

// Turn is the result of processing one inbound message or resume.
type Turn struct {
	ThreadID string        `json:"thread_id"`
	Status   Status        `json:"status"`
	Active   AgentID       `json:"active"`
	Outputs  []Output      `json:"outputs"`
	Snapshot *Conversation `json:"-"`
}

// Pending returns the confirmation request of the turn, if any.
func (t *Turn) Pending() *PendingConfirmation {
	for _, o := range t.Outputs {
		if o.Type == OutputConfirmation {
			return o.Confirmation
		}
	}
	return nil
}

// Text concatenates the text outputs of the turn.
func (t *Turn) Text() string {
	var out string
	for _, o := range t.Outputs {
		if o.Type != OutputText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += o.Text
	}
	return out
}
