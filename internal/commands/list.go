package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/autosetup/internal/dispatch"
)

// NewListCmd creates the list command.
func NewListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List menu entries with their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return printTable(cmd.OutOrStdout(), a.table)
		},
	}
}

func printTable(w io.Writer, table *dispatch.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tALIASES\tKIND\tDESCRIPTION")
	for _, e := range table.Entries() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Key, strings.Join(e.Aliases, ", "), targetKind(e.Target), e.Label)
	}
	return tw.Flush()
}

func targetKind(t dispatch.Target) string {
	switch v := t.(type) {
	case dispatch.ActionTarget:
		return "action"
	case dispatch.SequenceTarget:
		return fmt.Sprintf("sequence (%d)", v.Sequence.Len())
	case dispatch.CommandTarget:
		return "command"
	}
	return "unknown"
}
