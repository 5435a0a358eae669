package domain

import (
	"fmt"
	"strings"
)

// AgentID identifies the router or one of the specialists.
type AgentID string

const (
	Router      AgentID = "router"
	Appointment AgentID = "appointment"
	AIDoctor    AgentID = "ai_doctor"
	Direction   AgentID = "direction"
	Parking     AgentID = "parking"
)

// NodeKind is the role a graph node plays for its agent.
type NodeKind string

const (
	KindAgent          NodeKind = "agent"
	KindEntry          NodeKind = "entry"
	KindSafeTools      NodeKind = "safe_tools"
	KindSensitiveTools NodeKind = "sensitive_tools"
	KindLeaveSkill     NodeKind = "leave_skill"
)

// Node addresses one state of the routing graph.
// The zero value is the terminal await_user state.
type Node struct {
	Kind  NodeKind
	Agent AgentID
}

// AwaitUser is the terminal state of a turn.
var AwaitUser = Node{}

// LeaveSkill pops the dialog stack and returns control to the router.
var LeaveSkill = Node{Kind: KindLeaveSkill}

func AgentNode(id AgentID) Node          { return Node{Kind: KindAgent, Agent: id} }
func EntryNode(id AgentID) Node          { return Node{Kind: KindEntry, Agent: id} }
func SafeToolsNode(id AgentID) Node      { return Node{Kind: KindSafeTools, Agent: id} }
func SensitiveToolsNode(id AgentID) Node { return Node{Kind: KindSensitiveTools, Agent: id} }

// IsTerminal reports whether the node ends the turn.
func (n Node) IsTerminal() bool { return n == AwaitUser }

// String renders the node as "<agent>.<kind>", "router", "leave_skill" or "" for await_user.
func (n Node) String() string {
	switch {
	case n.IsTerminal():
		return ""
	case n.Kind == KindLeaveSkill:
		return string(KindLeaveSkill)
	case n.Kind == KindAgent && n.Agent == Router:
		return string(Router)
	default:
		return string(n.Agent) + "." + string(n.Kind)
	}
}

// ParseNode is the inverse of Node.String.
func ParseNode(s string) (Node, error) {
	switch s {
	case "":
		return AwaitUser, nil
	case string(KindLeaveSkill):
		return LeaveSkill, nil
	case string(Router):
		return AgentNode(Router), nil
	}
	agent, kind, ok := strings.Cut(s, ".")
	if !ok || agent == "" {
		return Node{}, fmt.Errorf("invalid node %q", s)
	}
	switch k := NodeKind(kind); k {
	case KindAgent, KindEntry, KindSafeTools, KindSensitiveTools:
		return Node{Kind: k, Agent: AgentID(agent)}, nil
	}
	return Node{}, fmt.Errorf("invalid node kind %q in %q", kind, s)
}

// MarshalText stores nodes as their string form in checkpoints.
func (n Node) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText parses a checkpointed node.
func (n *Node) UnmarshalText(b []byte) error {
	parsed, err := ParseNode(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
