package domain

import "slices"

// ConversationDiff represents the changes between two snapshots of a thread.
// It is serialized to JSON for streaming updates to clients.
type ConversationDiff struct {
	// ThreadID is always present to identify the target.
	ThreadID string `json:"thread_id"`

	Status      *Status              `json:"status,omitempty"`
	DialogStack *DialogStack         `json:"dialog_stack,omitempty"`
	Pending     *PendingConfirmation `json:"pending,omitempty"`

	// Appended contains the messages added since the old snapshot.
	// The log is append-only, so a shorter or equal log yields no messages.
	Appended []Message `json:"appended,omitempty"`
}

// Diff calculates the difference between old and new.
// If old is nil, it returns a diff representing the entire new snapshot (initial load).
// It returns nil when nothing changed.
func Diff(old, new *Conversation) *ConversationDiff {
	if new == nil {
		return nil
	}

	diff := &ConversationDiff{ThreadID: new.ThreadID}

	if old == nil || old.Status != new.Status {
		status := new.Status
		diff.Status = &status
	}
	if old == nil || !slices.Equal(old.DialogStack, new.DialogStack) {
		stack := append(DialogStack{}, new.DialogStack...)
		diff.DialogStack = &stack
	}
	if new.Pending != nil && (old == nil || old.Pending == nil || old.Pending.ID != new.Pending.ID) {
		diff.Pending = new.Pending
	}

	from := 0
	if old != nil {
		from = len(old.Messages)
	}
	if len(new.Messages) > from {
		diff.Appended = new.Messages[from:]
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ConversationDiff) IsEmpty() bool {
	return d.Status == nil &&
		d.DialogStack == nil &&
		d.Pending == nil &&
		len(d.Appended) == 0
}
