package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/autosetup/internal/dispatch"
	"github.com/dwsmith1983/autosetup/internal/metrics"
	"github.com/dwsmith1983/autosetup/pkg/types"
)

// ErrActionsFailed is returned by run --strict when any action did not succeed.
var ErrActionsFailed = errors.New("one or more actions failed")

// NewRunCmd creates the run command.
func NewRunCmd(flags *rootFlags) *cobra.Command {
	var (
		strict      bool
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "run <key|alias>",
		Short: "Run one menu entry without the interactive menu",
		Example: `  autosetup run 1
  autosetup run power
  autosetup run gpupdate --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			err = runSelection(cmd.Context(), a, args[0], strict)
			if showMetrics {
				printMetrics(cmd.OutOrStdout(), metrics.Snapshot())
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any action fails")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print run counters when done")
	return cmd
}

// runSelection resolves selection and runs its action or sequence.
func runSelection(ctx context.Context, a *app, selection string, strict bool) error {
	entry, ok := a.table.Resolve(selection)
	if !ok {
		a.logger.Warn("unknown selection", "selection", selection)
		return fmt.Errorf("unknown selection %q (see autosetup list)", selection)
	}
	a.logger.Info("run selection", "key", entry.Key, "label", entry.Label)

	var failed bool
	switch t := entry.Target.(type) {
	case dispatch.ActionTarget:
		res := a.runner.RunAction(ctx, t.Action)
		failed = !res.Succeeded()

	case dispatch.SequenceTarget:
		summary := a.runner.Run(ctx, t.Sequence)
		a.console.Summary(summary)
		if summary.State == types.RunCancelled {
			return ctx.Err()
		}
		failed = !summary.OK()

	case dispatch.CommandTarget:
		return fmt.Errorf("%q is the interactive %s command; start the menu instead", selection, t.Command)
	}

	if failed && strict {
		return ErrActionsFailed
	}
	if failed {
		_, _ = color.New(color.FgYellow).Fprintln(a.console.Writer(), "Finished with failures.")
	}
	return nil
}

func printMetrics(w io.Writer, snap map[string]int64) {
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(w, "\nCounters")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-20s %d\n", name, snap[name])
	}
}
