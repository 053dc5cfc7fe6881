// Package dispatch maps menu selections to actions, sequences and built-in
// commands.
package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dwsmith1983/autosetup/internal/engine"
)

// Command is a built-in selection with no engine action behind it.
type Command int

// Built-in commands.
const (
	CommandCopy Command = iota + 1
	CommandClear
	CommandExit
	CommandQuickExit
)

func (c Command) String() string {
	switch c {
	case CommandCopy:
		return "copy"
	case CommandClear:
		return "clear"
	case CommandExit:
		return "exit"
	case CommandQuickExit:
		return "quick-exit"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Target is what a selection runs: ActionTarget, SequenceTarget or CommandTarget.
type Target interface {
	isTarget()
}

// ActionTarget runs a single action.
type ActionTarget struct {
	Action engine.Action
}

// SequenceTarget runs a sequence and reports its summary.
type SequenceTarget struct {
	Sequence *engine.Sequence
}

// CommandTarget runs a built-in command.
type CommandTarget struct {
	Command Command
}

func (ActionTarget) isTarget()   {}
func (SequenceTarget) isTarget() {}
func (CommandTarget) isTarget()  {}

// Entry is one selectable menu item.
type Entry struct {
	Key     string
	Aliases []string
	Label   string
	Hidden  bool
	Target  Target
}

// ErrInvalidTable is returned for a malformed dispatch table.
var ErrInvalidTable = errors.New("invalid dispatch table")

// Table resolves selections. It is immutable after New.
type Table struct {
	entries []Entry
	byKey   map[string]int
	byAlias map[string]int
}

// New validates the entries and builds a Table. Keys and aliases must be
// unique across the whole table and every entry needs a usable target.
func New(entries ...Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
		byAlias: make(map[string]int),
	}
	for _, e := range entries {
		e.Key = strings.TrimSpace(e.Key)
		if e.Key == "" {
			return nil, fmt.Errorf("%w: entry %q has no key", ErrInvalidTable, e.Label)
		}
		if err := validateTarget(e); err != nil {
			return nil, err
		}
		if _, dup := t.byKey[e.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidTable, e.Key)
		}
		idx := len(t.entries)
		t.byKey[e.Key] = idx
		for _, a := range e.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" {
				return nil, fmt.Errorf("%w: empty alias on key %q", ErrInvalidTable, e.Key)
			}
			if _, dup := t.byAlias[a]; dup {
				return nil, fmt.Errorf("%w: duplicate alias %q", ErrInvalidTable, a)
			}
			t.byAlias[a] = idx
		}
		e.Aliases = append([]string(nil), e.Aliases...)
		t.entries = append(t.entries, e)
	}
	for a := range t.byAlias {
		if _, clash := t.byKey[a]; clash {
			return nil, fmt.Errorf("%w: alias %q shadows a key", ErrInvalidTable, a)
		}
	}
	return t, nil
}

func validateTarget(e Entry) error {
	switch tgt := e.Target.(type) {
	case ActionTarget:
		if err := tgt.Action.Validate(); err != nil {
			return fmt.Errorf("%w: key %q: %w", ErrInvalidTable, e.Key, err)
		}
	case SequenceTarget:
		if tgt.Sequence == nil {
			return fmt.Errorf("%w: key %q has a nil sequence", ErrInvalidTable, e.Key)
		}
	case CommandTarget:
		if tgt.Command < CommandCopy || tgt.Command > CommandQuickExit {
			return fmt.Errorf("%w: key %q has unknown %s", ErrInvalidTable, e.Key, tgt.Command)
		}
	default:
		return fmt.Errorf("%w: key %q has no target", ErrInvalidTable, e.Key)
	}
	return nil
}

// Resolve looks up a selection. Keys match exactly after trimming; aliases
// match case-insensitively. An unknown selection is not an error.
func (t *Table) Resolve(selection string) (Entry, bool) {
	s := strings.TrimSpace(selection)
	if s == "" {
		return Entry{}, false
	}
	if i, ok := t.byKey[s]; ok {
		return t.entries[i], true
	}
	if i, ok := t.byAlias[strings.ToLower(s)]; ok {
		return t.entries[i], true
	}
	return Entry{}, false
}

// Entries returns the visible entries in menu order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if !e.Hidden {
			out = append(out, e)
		}
	}
	return out
}
