/*
Package domain contains the core domain models of the concierge dialog engine.

It defines the conversation snapshot that is checkpointed per thread, the messages
exchanged with the language model, the dialog stack that tracks which specialist owns
the conversation, and the closed set of routing signals (escalation and transfer).
The package is kept free of I/O and persistence concerns.

# Key Entities

  - Conversation: the per-thread state (messages, dialog stack, user context, gate status).
  - Message / ToolCall: the append-only model context and audit trail.
  - DialogStack: the active specialist nesting; push on entry, pop on escalation.
  - Signal: Escalation or Transfer, produced by agent outputs and consumed by the router.
  - PendingConfirmation: the sensitive tool batch waiting for external approval.
*/
package domain
