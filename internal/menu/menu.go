// Package menu implements the interactive selection loop.
package menu

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dwsmith1983/autosetup/internal/dispatch"
	"github.com/dwsmith1983/autosetup/internal/engine"
	"github.com/dwsmith1983/autosetup/internal/report"
	"github.com/dwsmith1983/autosetup/pkg/types"
)

// clearScreen moves the cursor home and erases the display.
const clearScreen = "\033[H\033[2J"

// Runner executes the targets selected from the menu.
type Runner interface {
	Run(ctx context.Context, seq *engine.Sequence) types.SequenceSummary
	RunAction(ctx context.Context, a engine.Action) types.ExecutionResult
}

// CopyFunc builds the file copy action for the manual copy command.
type CopyFunc func(src, dstDir string) engine.Action

// Menu prompts for selections and runs them until the operator exits or
// input ends.
type Menu struct {
	table   *dispatch.Table
	runner  Runner
	console *report.Console
	in      io.Reader
	copy    CopyFunc
	logger  *slog.Logger
}

// Option configures a Menu.
type Option func(*Menu)

// WithInput sets the input the menu reads selections from (default os.Stdin).
func WithInput(r io.Reader) Option {
	return func(m *Menu) {
		if r != nil {
			m.in = r
		}
	}
}

// WithCopy sets the builder for the manual file copy action.
func WithCopy(fn CopyFunc) Option {
	return func(m *Menu) { m.copy = fn }
}

// WithLogger sets the menu logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Menu) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Menu over table.
func New(table *dispatch.Table, runner Runner, console *report.Console, opts ...Option) *Menu {
	m := &Menu{
		table:   table,
		runner:  runner,
		console: console,
		in:      os.Stdin,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run shows the menu until exit or end of input, both of which return nil.
// Cancellation of ctx returns ctx.Err().
func (m *Menu) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines := m.readLines(done)

	m.console.Separator("USAGE MENU")
	for {
		m.printOptions()
		choice, ok := m.prompt(ctx, lines, "Your choice: ")
		if !ok {
			return m.finish(ctx)
		}

		entry, found := m.table.Resolve(choice)
		if !found {
			m.console.Printf("Invalid selection!\n")
			continue
		}
		m.logger.Info("menu selection", "key", entry.Key, "label", entry.Label)

		exit, ok := m.dispatch(ctx, lines, entry)
		if exit {
			return nil
		}
		if !ok {
			return m.finish(ctx)
		}
	}
}

// dispatch runs one entry. It reports whether the menu should exit and
// whether input is still available.
func (m *Menu) dispatch(ctx context.Context, lines <-chan string, e dispatch.Entry) (exit, ok bool) {
	title := strings.ToUpper(e.Label)
	switch t := e.Target.(type) {
	case dispatch.ActionTarget:
		m.console.Separator(title)
		m.runner.RunAction(ctx, t.Action)
		m.console.Separator("")
		return false, m.waitForEnter(ctx, lines)

	case dispatch.SequenceTarget:
		m.console.Separator(title)
		summary := m.runner.Run(ctx, t.Sequence)
		m.console.Summary(summary)
		return false, m.waitForEnter(ctx, lines)

	case dispatch.CommandTarget:
		return m.command(ctx, lines, e, t.Command)
	}
	return false, true
}

func (m *Menu) command(ctx context.Context, lines <-chan string, e dispatch.Entry, cmd dispatch.Command) (exit, ok bool) {
	switch cmd {
	case dispatch.CommandCopy:
		src, ok := m.prompt(ctx, lines, "Enter source file path: ")
		if !ok {
			return false, false
		}
		dst, ok := m.prompt(ctx, lines, "Enter destination folder path: ")
		if !ok {
			return false, false
		}
		if src == "" || dst == "" || m.copy == nil {
			m.console.Printf("Source and destination are required.\n")
		} else {
			m.console.Separator(strings.ToUpper(e.Label))
			m.runner.RunAction(ctx, m.copy(src, dst))
			m.console.Separator("")
		}
		return false, m.waitForEnter(ctx, lines)

	case dispatch.CommandClear:
		m.console.Printf(clearScreen)
		return false, true

	case dispatch.CommandExit:
		answer, ok := m.prompt(ctx, lines, "Exit autosetup? [y/N]: ")
		if !ok {
			return false, false
		}
		if a := strings.ToLower(answer); a == "y" || a == "yes" {
			m.console.Printf("Exiting...\n")
			return true, true
		}
		return false, true

	case dispatch.CommandQuickExit:
		m.logger.Info("quick exit selected")
		m.console.Printf("Exiting...\n")
		return true, true
	}
	return false, true
}

func (m *Menu) printOptions() {
	for _, e := range m.table.Entries() {
		m.console.Printf("%s. %s\n", e.Key, e.Label)
	}
}

// prompt prints label and waits for the next trimmed input line. It returns
// false when input has ended or ctx is done.
func (m *Menu) prompt(ctx context.Context, lines <-chan string, label string) (string, bool) {
	m.console.Printf("%s", label)
	if ctx.Err() != nil {
		return "", false
	}
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-lines:
		if !ok {
			return "", false
		}
		return strings.TrimSpace(line), true
	}
}

func (m *Menu) waitForEnter(ctx context.Context, lines <-chan string) bool {
	_, ok := m.prompt(ctx, lines, "\nPress Enter to continue...")
	return ok
}

func (m *Menu) finish(ctx context.Context) error {
	m.console.Printf("\n")
	if err := ctx.Err(); err != nil {
		m.logger.Info("menu interrupted", "error", err)
		return err
	}
	m.logger.Info("input closed, leaving menu")
	return nil
}

// readLines feeds input lines to the returned channel until input ends or
// done is closed.
func (m *Menu) readLines(done <-chan struct{}) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(m.in)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	return out
}
