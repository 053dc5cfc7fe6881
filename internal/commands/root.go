package commands

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/autosetup/internal/config"
	"github.com/dwsmith1983/autosetup/internal/menu"
)

// NewRootCmd creates the autosetup root command. Without a subcommand it
// opens the interactive menu.
func NewRootCmd(version string) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "autosetup",
		Short: "Workstation setup automation for managed Windows machines",
		Long: `autosetup runs the routine steps of preparing a workstation: support
package download, configuration manager cycles, power profile, printer,
antivirus definitions, group policy and a connectivity check.

Every action reports its own outcome and never stops the rest of a sequence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMenu(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "configuration file (default ./"+config.DefaultFile+")")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "mirror log records to stderr")

	root.AddCommand(
		NewRunCmd(flags),
		NewListCmd(flags),
		NewConfigCmd(flags),
	)
	return root
}

func runMenu(cmd *cobra.Command, flags *rootFlags) error {
	a, err := openApp(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	m := menu.New(a.table, a.runner, a.console,
		menu.WithInput(cmd.InOrStdin()),
		menu.WithCopy(a.catalog.FileCopy),
		menu.WithLogger(a.logger),
	)
	err = m.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		_, _ = color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "Program terminated by user.")
		a.logger.Info("terminated by user")
		return nil
	}
	a.logger.Info("autosetup finished")
	return err
}
