package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/pkg/domain"
)

// ConfirmationPrompt is shown under the pending action description.
const ConfirmationPrompt = "Do you approve of the above actions? Type 'y' to continue; otherwise, explain your requested changes."

// Approver answers a pending confirmation.
type Approver func(ctx context.Context, pending *domain.PendingConfirmation) (concierge.Decision, error)

// PromptApprover asks the user through handler. "y" or "yes" approves;
// any other answer rejects with the answer as the reason.
func PromptApprover(handler IOHandler) Approver {
	return func(ctx context.Context, pending *domain.PendingConfirmation) (concierge.Decision, error) {
		msg := fmt.Sprintf("%s\n%s", pending.Description, ConfirmationPrompt)
		if err := handler.SystemOutput(ctx, msg); err != nil {
			return concierge.Decision{}, err
		}

		input, err := handler.Input(ctx)
		if err != nil {
			return concierge.Decision{}, err
		}
		return ParseDecision(pending.ID, input), nil
	}
}

// ParseDecision interprets a free-text answer to the confirmation prompt.
func ParseDecision(confirmationID, answer string) concierge.Decision {
	answer = strings.TrimSpace(answer)
	switch strings.ToLower(answer) {
	case "y", "yes":
		return concierge.Decision{Approve: true, ConfirmationID: confirmationID}
	}
	return concierge.Decision{Approve: false, Reason: answer, ConfirmationID: confirmationID}
}

// AutoApprove approves everything. Meant for scripted runs.
func AutoApprove() Approver {
	return func(_ context.Context, pending *domain.PendingConfirmation) (concierge.Decision, error) {
		return concierge.Decision{Approve: true, ConfirmationID: pending.ID}, nil
	}
}

// AutoReject rejects everything with reason.
func AutoReject(reason string) Approver {
	return func(_ context.Context, pending *domain.PendingConfirmation) (concierge.Decision, error) {
		return concierge.Decision{Approve: false, Reason: reason, ConfirmationID: pending.ID}, nil
	}
}
