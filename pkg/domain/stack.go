package domain

import "fmt"

// DialogStack records the active specialist nesting. The last element is the top.
type DialogStack []AgentID

// Top returns the active specialist.
func (s DialogStack) Top() (AgentID, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

// Contains reports whether id is anywhere on the stack.
func (s DialogStack) Contains(id AgentID) bool {
	for _, a := range s {
		if a == id {
			return true
		}
	}
	return false
}

// Push returns the stack with id on top.
// A specialist already on the stack, the router, or a push past limit is rejected.
func (s DialogStack) Push(id AgentID, limit int) (DialogStack, error) {
	if id == Router || id == "" {
		return s, fmt.Errorf("%w: %q cannot be pushed", ErrStackViolation, id)
	}
	if s.Contains(id) {
		return s, fmt.Errorf("%w: %s is already active", ErrStackViolation, id)
	}
	if limit > 0 && len(s) >= limit {
		return s, fmt.Errorf("%w: depth %d reached", ErrStackViolation, limit)
	}
	return append(append(DialogStack{}, s...), id), nil
}

// Pop returns the stack without its top. Popping an empty stack is a no-op.
func (s DialogStack) Pop() DialogStack {
	if len(s) == 0 {
		return s
	}
	return append(DialogStack{}, s[:len(s)-1]...)
}
