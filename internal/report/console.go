// Package report renders action outcomes and sequence summaries to the console.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/dwsmith1983/autosetup/pkg/types"
)

// SeparatorWidth is the width of banner lines.
const SeparatorWidth = 70

// Console writes colored progress lines and summaries. It implements
// engine.Observer.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer { return c.out }

// Printf writes a plain line fragment.
func (c *Console) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// Separator prints a banner line, with the title centered under it when set.
func (c *Console) Separator(title string) {
	bar := strings.Repeat("-", SeparatorWidth)
	_, _ = fmt.Fprintf(c.out, "\n%s\n", bar)
	if title != "" {
		pad := (SeparatorWidth - len([]rune(title))) / 2
		if pad < 0 {
			pad = 0
		}
		_, _ = color.New(color.Bold).Fprintf(c.out, "%s%s\n", strings.Repeat(" ", pad), title)
		_, _ = fmt.Fprintf(c.out, "%s\n", bar)
	}
	_, _ = fmt.Fprintln(c.out)
}

// ActionStarted prints the action about to run.
func (c *Console) ActionStarted(index, total int, name string) {
	if total > 1 {
		_, _ = fmt.Fprintf(c.out, "%s %s...\n", color.CyanString("[%d/%d]", index, total), name)
		return
	}
	_, _ = fmt.Fprintf(c.out, "%s...\n", name)
}

// ActionFinished prints the outcome of an action as soon as it completes.
func (c *Console) ActionFinished(_, _ int, res types.ExecutionResult) {
	_, _ = fmt.Fprintln(c.out, "  "+ResultLine(res))
}

// ResultLine formats one result with a colored status marker.
func ResultLine(res types.ExecutionResult) string {
	var marker, suffix string
	switch res.Outcome {
	case types.OutcomeSuccess:
		marker = color.GreenString("✓")
		if res.PathUsed == types.PathFallback {
			suffix = color.YellowString(" (fallback)")
		}
	case types.OutcomeSkipped:
		marker = color.YellowString("○")
		suffix = color.YellowString(" (skipped)")
	case types.OutcomeTimedOut:
		marker = color.RedString("✗")
		suffix = color.RedString(" (timed out)")
	default:
		marker = color.RedString("✗")
	}
	line := fmt.Sprintf("%s %s%s", marker, res.ActionName, suffix)
	if res.Detail != "" {
		line += ": " + res.Detail
	}
	return line
}

// Summary prints the counts and a per-action table for a sequence run.
func (c *Console) Summary(s types.SequenceSummary) {
	c.Separator(strings.ToUpper(s.Sequence) + " SUMMARY")

	_, _ = fmt.Fprintf(c.out, "  %s Success:   %d\n", color.GreenString("✓"), s.Succeeded)
	_, _ = fmt.Fprintf(c.out, "  %s Failed:    %d\n", color.RedString("✗"), s.Failed)
	_, _ = fmt.Fprintf(c.out, "  ■ Total:     %d\n", s.Total)
	if s.Skipped > 0 || s.TimedOut > 0 || s.Fallbacks > 0 {
		_, _ = fmt.Fprintf(c.out, "    (skipped %d, timed out %d, via fallback %d)\n", s.Skipped, s.TimedOut, s.Fallbacks)
	}
	_, _ = fmt.Fprintln(c.out)

	if len(s.Results) > 0 {
		tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "  ACTION\tOUTCOME\tPATH\tDURATION")
		for _, r := range s.Results {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", r.ActionName, r.Outcome, r.PathUsed, r.Duration.Round(time.Millisecond))
		}
		_ = tw.Flush()
		_, _ = fmt.Fprintln(c.out)
	}

	switch {
	case s.State == types.RunCancelled:
		_, _ = color.New(color.FgYellow).Fprintln(c.out, "Sequence cancelled; remaining actions were skipped.")
	case s.Succeeded == 0 && s.Total > 0:
		_, _ = color.New(color.FgRed).Fprintln(c.out, "No actions could be completed.")
	case s.OK():
		_, _ = color.New(color.FgGreen).Fprintln(c.out, "All actions completed.")
	default:
		_, _ = color.New(color.FgYellow).Fprintln(c.out, "Completed with failures; see the log for details.")
	}
	_, _ = fmt.Fprintf(c.out, "Run %s finished in %s.\n", s.RunID, s.Duration().Round(time.Millisecond))
}
