// Package lifecycle implements the sequence run state machine.
package lifecycle

import (
	"fmt"

	"github.com/dwsmith1983/autosetup/pkg/types"
)

// Transition table: from -> allowed tos
var validTransitions = map[types.RunState][]types.RunState{
	types.RunNotStarted: {types.RunRunning},
	types.RunRunning:    {types.RunCompleted, types.RunCancelled},
	types.RunCompleted:  {},
	types.RunCancelled:  {},
}

// CanTransition checks if transitioning from one run state to another is valid.
func CanTransition(from, to types.RunState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates the move and returns the new state, or an error if the transition is invalid.
func Transition(from, to types.RunState) (types.RunState, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return to, nil
}

// IsTerminal returns true if the state is a terminal (final) state.
func IsTerminal(state types.RunState) bool {
	return state == types.RunCompleted || state == types.RunCancelled
}
