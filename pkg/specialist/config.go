// Package specialist describes the agents of the orchestrator: the router and
// the specialists it delegates to. Each agent is a Config record; a Roster
// binds the records to a tool registry and is handed to the engine.
package specialist

import "github.com/aretw0/concierge/pkg/domain"

// Config is the static description of one agent.
type Config struct {
	ID domain.AgentID
	// Name is how the entry framing addresses the specialist.
	Name string
	// Prompt is a text/template rendered with PromptData on every model call.
	Prompt string

	SafeTools      []string
	SensitiveTools []string

	// Transfer describes the router tool that hands control to this agent.
	// Nil for the router itself.
	Transfer *TransferSpec
}

// TransferSpec is the schema of a transfer signal.
type TransferSpec struct {
	Tool        string
	Description string
	// RequestHelp documents the free-text request field.
	RequestHelp string
	Fields      []Field
}

// Field is one specialist-specific payload entry of a transfer.
type Field struct {
	Name        string
	Description string
	Default     string
	Required    bool
}

// IsSpecialist reports whether the config describes a delegate rather than the router.
func (c Config) IsSpecialist() bool { return c.ID != domain.Router }
