package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/dwsmith1983/autosetup/pkg/types"
)

func init() {
	color.NoColor = true
}

func TestResultLine(t *testing.T) {
	tests := []struct {
		name string
		res  types.ExecutionResult
		want string
	}{
		{"primary", types.ExecutionResult{ActionName: "printer", Outcome: types.OutcomeSuccess, PathUsed: types.PathPrimary, Detail: "connected"}, "✓ printer: connected"},
		{"fallback", types.ExecutionResult{ActionName: "printer", Outcome: types.OutcomeSuccess, PathUsed: types.PathFallback}, "✓ printer (fallback)"},
		{"failed", types.ExecutionResult{ActionName: "group-policy", Outcome: types.OutcomeFailed, Detail: "exit 1"}, "✗ group-policy: exit 1"},
		{"timed out", types.ExecutionResult{ActionName: "sccm: x", Outcome: types.OutcomeTimedOut}, "✗ sccm: x (timed out)"},
		{"skipped", types.ExecutionResult{ActionName: "antivirus", Outcome: types.OutcomeSkipped, Detail: "not installed"}, "○ antivirus (skipped): not installed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultLine(tt.res))
		})
	}
}

func TestConsole_Progress(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.ActionStarted(2, 17, "printer")
	c.ActionFinished(2, 17, types.ExecutionResult{ActionName: "printer", Outcome: types.OutcomeSuccess})
	c.ActionStarted(1, 1, "connectivity")

	assert.Equal(t, "[2/17] printer...\n  ✓ printer\nconnectivity...\n", buf.String())
}

func TestConsole_Separator(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Separator("USAGE MENU")

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, strings.Repeat("-", SeparatorWidth), lines[1])
	assert.Equal(t, strings.Repeat(" ", 30)+"USAGE MENU", lines[2])
}

func TestConsole_Summary(t *testing.T) {
	start := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	s := types.SequenceSummary{
		RunID:      "01JTESTRUN",
		Sequence:   "full-setup",
		State:      types.RunCompleted,
		Total:      3,
		Succeeded:  2,
		Failed:     1,
		Skipped:    1,
		Fallbacks:  1,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []types.ExecutionResult{
			{ActionName: "support-assistant", Outcome: types.OutcomeSuccess, PathUsed: types.PathPrimary},
			{ActionName: "printer", Outcome: types.OutcomeSuccess, PathUsed: types.PathFallback},
			{ActionName: "antivirus", Outcome: types.OutcomeSkipped, PathUsed: types.PathNone},
		},
	}
	var buf bytes.Buffer

	NewConsole(&buf).Summary(s)

	out := buf.String()
	assert.Contains(t, out, "FULL-SETUP SUMMARY")
	assert.Contains(t, out, "✓ Success:   2")
	assert.Contains(t, out, "✗ Failed:    1")
	assert.Contains(t, out, "■ Total:     3")
	assert.Contains(t, out, "(skipped 1, timed out 0, via fallback 1)")
	assert.Regexp(t, `printer\s+SUCCESS\s+FALLBACK`, out)
	assert.Regexp(t, `antivirus\s+SKIPPED\s+NONE`, out)
	assert.Contains(t, out, "Completed with failures")
	assert.Contains(t, out, "Run 01JTESTRUN finished in 1.5s.")
}

func TestConsole_SummaryCancelled(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Summary(types.SequenceSummary{Sequence: "power", State: types.RunCancelled, Total: 2, Failed: 2, Skipped: 2})

	assert.Contains(t, buf.String(), "Sequence cancelled")
}

func TestConsole_SummaryAllOK(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Summary(types.SequenceSummary{Sequence: "power", State: types.RunCompleted, Total: 2, Succeeded: 2})

	assert.Contains(t, buf.String(), "All actions completed.")
}
