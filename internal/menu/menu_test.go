package menu

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/autosetup/internal/dispatch"
	"github.com/dwsmith1983/autosetup/internal/engine"
	"github.com/dwsmith1983/autosetup/internal/report"
	"github.com/dwsmith1983/autosetup/pkg/types"
)

func init() {
	color.NoColor = true
}

type fakeRunner struct {
	sequences []string
	actions   []string
}

func (f *fakeRunner) Run(_ context.Context, seq *engine.Sequence) types.SequenceSummary {
	f.sequences = append(f.sequences, seq.Name())
	return types.SequenceSummary{Sequence: seq.Name(), State: types.RunCompleted, Total: seq.Len(), Succeeded: seq.Len()}
}

func (f *fakeRunner) RunAction(_ context.Context, a engine.Action) types.ExecutionResult {
	f.actions = append(f.actions, a.Name)
	return types.ExecutionResult{ActionName: a.Name, Outcome: types.OutcomeSuccess}
}

func noop(name string) engine.Action {
	return engine.Action{
		Name:    name,
		Primary: engine.Op("noop", func(context.Context) (string, error) { return "", nil }),
	}
}

type harness struct {
	runner *fakeRunner
	out    *bytes.Buffer
	copies [][2]string
}

func (h *harness) menu(t *testing.T, input string) *Menu {
	t.Helper()
	seq, err := engine.NewSequence("power", noop("power-scheme"), noop("power-timeouts"))
	require.NoError(t, err)
	table, err := dispatch.New(
		dispatch.Entry{Key: "1", Label: "Optimize Power", Target: dispatch.SequenceTarget{Sequence: seq}},
		dispatch.Entry{Key: "2", Aliases: []string{"printer"}, Label: "Connect Printer", Target: dispatch.ActionTarget{Action: noop("printer")}},
		dispatch.Entry{Key: "8", Label: "Manual File Copy", Target: dispatch.CommandTarget{Command: dispatch.CommandCopy}},
		dispatch.Entry{Key: "10", Label: "Clear Console", Target: dispatch.CommandTarget{Command: dispatch.CommandClear}},
		dispatch.Entry{Key: "0", Label: "Exit", Target: dispatch.CommandTarget{Command: dispatch.CommandExit}},
		dispatch.Entry{Key: "01", Label: "Quick exit", Hidden: true, Target: dispatch.CommandTarget{Command: dispatch.CommandQuickExit}},
	)
	require.NoError(t, err)

	copyFn := func(src, dst string) engine.Action {
		h.copies = append(h.copies, [2]string{src, dst})
		return noop("file-copy")
	}
	return New(table, h.runner, report.NewConsole(h.out), WithInput(strings.NewReader(input)), WithCopy(copyFn))
}

func newHarness() *harness {
	return &harness{runner: &fakeRunner{}, out: &bytes.Buffer{}}
}

func TestMenu_ListsVisibleEntries(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "").Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "USAGE MENU")
	assert.Contains(t, out, "1. Optimize Power\n2. Connect Printer\n8. Manual File Copy\n10. Clear Console\n0. Exit\n")
	assert.NotContains(t, out, "Quick exit")
}

func TestMenu_RunsSequenceAndExits(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "1\n\n0\ny\n").Run(context.Background()))

	assert.Equal(t, []string{"power"}, h.runner.sequences)
	out := h.out.String()
	assert.Contains(t, out, "OPTIMIZE POWER")
	assert.Contains(t, out, "POWER SUMMARY")
	assert.Contains(t, out, "Press Enter to continue...")
	assert.Contains(t, out, "Exiting...")
}

func TestMenu_RunsActionByAlias(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "PRINTER\n\n").Run(context.Background()))

	assert.Equal(t, []string{"printer"}, h.runner.actions)
}

func TestMenu_InvalidSelection(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "99\nabc\n").Run(context.Background()))

	assert.Equal(t, 2, strings.Count(h.out.String(), "Invalid selection!"))
	assert.Empty(t, h.runner.actions)
	assert.Empty(t, h.runner.sequences)
}

func TestMenu_ExitNeedsConfirmation(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "0\nn\n2\n\n").Run(context.Background()))

	assert.NotContains(t, h.out.String(), "Exiting...")
	assert.Equal(t, []string{"printer"}, h.runner.actions, "declining exit returns to the menu")
}

func TestMenu_QuickExit(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "01\n2\n").Run(context.Background()))

	assert.Contains(t, h.out.String(), "Exiting...")
	assert.NotContains(t, h.out.String(), "Exit autosetup?")
	assert.Empty(t, h.runner.actions)
}

func TestMenu_FileCopy(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "8\n C:\\drivers\\nic.zip \nD:\\backup\n\n").Run(context.Background()))

	assert.Equal(t, [][2]string{{`C:\drivers\nic.zip`, `D:\backup`}}, h.copies)
	assert.Equal(t, []string{"file-copy"}, h.runner.actions)
	assert.Contains(t, h.out.String(), "Enter source file path: ")
	assert.Contains(t, h.out.String(), "Enter destination folder path: ")
}

func TestMenu_FileCopyNeedsBothPaths(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "8\n\nD:\\backup\n\n").Run(context.Background()))

	assert.Empty(t, h.copies)
	assert.Empty(t, h.runner.actions)
	assert.Contains(t, h.out.String(), "Source and destination are required.")
}

func TestMenu_ClearDoesNotWait(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.menu(t, "10\n").Run(context.Background()))

	assert.Contains(t, h.out.String(), clearScreen)
	assert.NotContains(t, h.out.String(), "Press Enter")
}

func TestMenu_Cancelled(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.menu(t, "1\n").Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.runner.sequences)
}

func TestMenu_CancelledWhileWaiting(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := h.menu(t, "")
	m.in = &cancelOnRead{cancel: cancel}

	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelOnRead cancels the context and fails the read, as a console does
// when the operator presses Ctrl+C.
type cancelOnRead struct {
	cancel context.CancelFunc
}

func (r *cancelOnRead) Read([]byte) (int, error) {
	r.cancel()
	return 0, errors.New("closed")
}
