// Package engine implements the orchestration core: actions with a primary
// and fallback path, the fallback executor, the sequence runner and the
// outcome recorder.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds an action path when the action does not set its own.
const DefaultTimeout = 30 * time.Second

// Operation is one mechanism for reaching an action's effect. A nil error
// means the effect was reached; detail is a short human-readable note.
type Operation interface {
	Mechanism() string
	Invoke(ctx context.Context) (detail string, err error)
}

type funcOperation struct {
	mechanism string
	fn        func(ctx context.Context) (string, error)
}

func (o funcOperation) Mechanism() string { return o.mechanism }

func (o funcOperation) Invoke(ctx context.Context) (string, error) { return o.fn(ctx) }

// Op adapts a function into an Operation labelled with the given mechanism.
func Op(mechanism string, fn func(ctx context.Context) (string, error)) Operation {
	return funcOperation{mechanism: mechanism, fn: fn}
}

// Action is a single named unit of work. Actions are immutable once built
// and keep no state between invocations.
type Action struct {
	Name     string
	Primary  Operation
	Fallback Operation     // optional
	Requires Operation     // optional prerequisite check
	Timeout  time.Duration // per path; DefaultTimeout when zero
}

// ErrInvalidAction is returned when an action or sequence definition is malformed.
var ErrInvalidAction = errors.New("invalid action")

// Validate checks the action definition.
func (a Action) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAction)
	}
	if a.Primary == nil {
		return fmt.Errorf("%w: %s has no primary operation", ErrInvalidAction, a.Name)
	}
	if a.Timeout < 0 {
		return fmt.Errorf("%w: %s has negative timeout", ErrInvalidAction, a.Name)
	}
	return nil
}

func (a Action) timeout() time.Duration {
	if a.Timeout <= 0 {
		return DefaultTimeout
	}
	return a.Timeout
}

// Sequence is an ordered list of actions with unique names.
type Sequence struct {
	name    string
	actions []Action
}

// NewSequence validates the actions and returns a sequence that runs them in order.
func NewSequence(name string, actions ...Action) (*Sequence, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: sequence name is required", ErrInvalidAction)
	}
	seen := make(map[string]struct{}, len(actions))
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("sequence %s, action %d: %w", name, i, err)
		}
		if _, dup := seen[a.Name]; dup {
			return nil, fmt.Errorf("%w: sequence %s has duplicate action %q", ErrInvalidAction, name, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	cp := make([]Action, len(actions))
	copy(cp, actions)
	return &Sequence{name: name, actions: cp}, nil
}

// Name returns the sequence name.
func (s *Sequence) Name() string { return s.name }

// Len returns the number of actions.
func (s *Sequence) Len() int { return len(s.actions) }

// Actions returns a copy of the actions in execution order.
func (s *Sequence) Actions() []Action {
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}
