package specialist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
)

// EscalationTool is the signal tool every specialist is bound with.
const EscalationTool = "complete_or_escalate"

// LeaveMessage acknowledges an escalation once the stack has been popped.
const LeaveMessage = "Resuming dialog with the host assistant. Please reflect on the past conversation and assist the user as needed."

// SkippedMessage answers calls of a batch that a signal pre-empted.
const SkippedMessage = "Not executed: control of the dialog changed before this call could run."

// RetryInstruction is injected, unpersisted, after a degenerate model output.
const RetryInstruction = "Respond with a real output."

// EntryMessage frames the conversation for a specialist taking over after a transfer.
func EntryMessage(name string, t domain.Transfer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The assistant is now the %s. Reflect on the above conversation between the host assistant and the user."+
		" The user's intent is unsatisfied. Use the provided tools to assist the user. Remember, you are %s,"+
		" and the action is not complete until after you have successfully invoked the appropriate tool."+
		" If the user changes their mind or needs help for other tasks, call the %s function to let the primary host assistant take control."+
		" Do not mention who you are - just act as the proxy for the assistant.", name, name, EscalationTool)

	keys := make([]string, 0, len(t.Payload))
	for k := range t.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, t.Payload[k])
	}
	if t.Request != "" {
		fmt.Fprintf(&b, "\nrequest: %s", t.Request)
	}
	return b.String()
}

// ToolErrorMessage is the corrective tool result for a failed call.
func ToolErrorMessage(err error) string {
	return fmt.Sprintf("Error: %s\n please fix your mistakes.", domain.UserMessage(err))
}

// DeniedMessage is the tool result for every call of a rejected batch.
func DeniedMessage(reason string) string {
	return fmt.Sprintf("Action denied by the user. Reason: '%s'. Continue assisting, accounting for the user's input.", reason)
}

func escalationSpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        EscalationTool,
		Description: "A tool to mark the current task as completed and/or to escalate control of the dialog to the main assistant, who can re-route the dialog based on the user's needs.",
		Parameters: registry.Object(map[string]any{
			"cancel": registry.Boolean("True when the user changed their mind or the task cannot be done here; false when the task is complete."),
			"reason": registry.String("Why control is handed back."),
		}, "reason"),
	}
}

func transferSpec(t *TransferSpec) domain.ToolSpec {
	props := map[string]any{}
	required := []string{"request"}
	for _, f := range t.Fields {
		desc := f.Description
		if f.Default != "" {
			desc += fmt.Sprintf(" (default: %s)", f.Default)
		}
		props[f.Name] = registry.String(desc)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	props["request"] = registry.String(t.RequestHelp)
	return domain.ToolSpec{
		Name:        t.Tool,
		Description: t.Description,
		Parameters:  registry.Object(props, required...),
	}
}

type escalationArgs struct {
	Cancel *bool  `json:"cancel"`
	Reason string `json:"reason"`
}

// parseEscalation reads validated arguments. A missing cancel flag means cancel.
func parseEscalation(call domain.ToolCall) (domain.Escalation, error) {
	var args escalationArgs
	if err := registry.Decode(call.Args, &args); err != nil {
		return domain.Escalation{}, err
	}

	kind := domain.EscalationCancel
	if args.Cancel != nil && !*args.Cancel {
		kind = domain.EscalationComplete
	}
	return domain.Escalation{Call: call.ID, Kind: kind, Reason: args.Reason}, nil
}

func parseTransfer(call domain.ToolCall, target domain.AgentID, spec *TransferSpec) domain.Transfer {
	t := domain.Transfer{Call: call.ID, Target: target}
	if v, ok := call.Args["request"]; ok {
		t.Request = fmt.Sprint(v)
	}
	for _, f := range spec.Fields {
		value := f.Default
		if v, ok := call.Args[f.Name]; ok && fmt.Sprint(v) != "" {
			value = fmt.Sprint(v)
		}
		if value == "" {
			continue
		}
		if t.Payload == nil {
			t.Payload = map[string]string{}
		}
		t.Payload[f.Name] = value
	}
	return t
}
