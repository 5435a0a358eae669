package domain

// Capability tags a tool as read-only or state-mutating.
type Capability string

const (
	Safe      Capability = "safe"
	Sensitive Capability = "sensitive"
)

// ToolSpec is what the model sees of a tool: name, description and JSON schema.
type ToolSpec struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}

// ToolResult is the outcome of one executed call, ready to become a tool message.
type ToolResult struct {
	ID       string `json:"id"` // Must match the ToolCall.ID
	Name     string `json:"name"`
	Result   any    `json:"result,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
	IsDenied bool   `json:"is_denied,omitempty"`
	Error    string `json:"error,omitempty"`
}
