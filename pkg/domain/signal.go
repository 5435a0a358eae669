package domain

// Signal is a routing instruction carried by an agent output.
// The set of variants is closed: Escalation and Transfer.
type Signal interface {
	// CallID is the id of the tool call that carried the signal.
	CallID() string
	signal()
}

// EscalationKind distinguishes why a specialist hands control back.
type EscalationKind string

const (
	EscalationCancel   EscalationKind = "cancel"
	EscalationComplete EscalationKind = "complete"
)

// Escalation returns control from a specialist to the router.
type Escalation struct {
	Call   string         `json:"call_id"`
	Kind   EscalationKind `json:"kind"`
	Reason string         `json:"reason"`
}

func (e Escalation) CallID() string { return e.Call }
func (Escalation) signal()          {}

// Transfer hands control from the router to a specialist.
type Transfer struct {
	Call   string  `json:"call_id"`
	Target AgentID `json:"target"`
	// Request summarizes the unresolved user intent.
	Request string `json:"request"`
	// Payload carries the specialist-specific handoff fields (symptoms, destination).
	Payload map[string]string `json:"payload,omitempty"`
}

func (t Transfer) CallID() string { return t.Call }
func (Transfer) signal()          {}
