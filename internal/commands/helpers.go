// Package commands implements the CLI subcommands for the autosetup binary.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dwsmith1983/autosetup/internal/config"
	"github.com/dwsmith1983/autosetup/internal/dispatch"
	"github.com/dwsmith1983/autosetup/internal/download"
	"github.com/dwsmith1983/autosetup/internal/engine"
	"github.com/dwsmith1983/autosetup/internal/logging"
	"github.com/dwsmith1983/autosetup/internal/report"
	"github.com/dwsmith1983/autosetup/internal/shell"
	"github.com/dwsmith1983/autosetup/internal/workstation"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	verbose    bool
}

// app bundles the components wired for one invocation.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	console *report.Console
	catalog *workstation.Catalog
	runner  *engine.Runner
	table   *dispatch.Table
	closers []func() error
}

// Close releases the log file.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// openApp loads configuration, opens the run log and wires the real machine
// collaborators.
func openApp(flags *rootFlags, out, errOut io.Writer) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}

	baseDir := executableDir()
	var mirror io.Writer
	if flags.verbose {
		mirror = errOut
	}
	logger, closeLog, err := logging.Open(resolve(baseDir, cfg.Log.File), level, mirror)
	if err != nil {
		return nil, err
	}

	runner, err := shell.NewExecRunner(cfg.Console.Encoding, logger)
	if err != nil {
		err = startupFault(logger, "shell", fmt.Errorf("console encoding: %w", err))
		_ = closeLog()
		return nil, err
	}
	fetcher := download.New(
		download.WithRetries(cfg.Support.Retries),
		download.WithUserAgent(cfg.Support.UserAgent),
		download.WithLogger(logger),
		download.WithProgress(out),
	)

	a, err := newApp(cfg, out, logger, workstation.Deps{
		Shell:   runner,
		Fetcher: fetcher,
		BaseDir: baseDir,
		Logger:  logger,
	})
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	a.closers = append(a.closers, closeLog)
	logger.Info("autosetup started", "config", flags.configPath, "base_dir", baseDir, "encoding", cfg.Console.Encoding)
	return a, nil
}

// newApp wires the engine, catalog and dispatch table around deps.
func newApp(cfg config.Config, out io.Writer, logger *slog.Logger, deps workstation.Deps) (*app, error) {
	catalog, err := workstation.NewCatalog(cfg, deps)
	if err != nil {
		return nil, startupFault(logger, "catalog", err)
	}

	execOpts := []engine.ExecutorOption{engine.WithLogger(logger)}
	if cfg.Breaker.Enabled {
		execOpts = append(execOpts, engine.WithCircuitBreaker(engine.BreakerConfig{
			FailThreshold: cfg.Breaker.FailThreshold,
			Cooldown:      cfg.Breaker.Cooldown,
		}))
	}
	console := report.NewConsole(out)
	runner := engine.NewRunner(engine.NewExecutor(execOpts...),
		engine.WithPacing(cfg.Pacing),
		engine.WithObserver(console),
		engine.WithRunnerLogger(logger),
	)

	table, err := buildTable(catalog)
	if err != nil {
		return nil, startupFault(logger, "dispatch table", err)
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		console: console,
		catalog: catalog,
		runner:  runner,
		table:   table,
	}, nil
}

// startupFault logs a fault that stops autosetup before any action runs.
func startupFault(logger *slog.Logger, stage string, err error) error {
	logger.Error("startup failed", "critical", true, "stage", stage, "error", err)
	return err
}

// buildTable lays out the menu in its operator-facing order.
func buildTable(c *workstation.Catalog) (*dispatch.Table, error) {
	full, err := c.FullSetup()
	if err != nil {
		return nil, err
	}
	sccm, err := c.SCCMCycles()
	if err != nil {
		return nil, err
	}
	power, err := c.Power()
	if err != nil {
		return nil, err
	}

	return dispatch.New(
		dispatch.Entry{Key: "1", Aliases: []string{"all", "full-setup"}, Label: "Run All Operations", Target: dispatch.SequenceTarget{Sequence: full}},
		dispatch.Entry{Key: "2", Aliases: []string{"support"}, Label: "Download Support Assistant", Target: dispatch.ActionTarget{Action: c.SupportAssistant()}},
		dispatch.Entry{Key: "3", Aliases: []string{"sccm"}, Label: "Run SCCM Cycles", Target: dispatch.SequenceTarget{Sequence: sccm}},
		dispatch.Entry{Key: "4", Aliases: []string{"power"}, Label: "Optimize Power Settings", Target: dispatch.SequenceTarget{Sequence: power}},
		dispatch.Entry{Key: "5", Aliases: []string{"printer"}, Label: "Connect Printer", Target: dispatch.ActionTarget{Action: c.Printer()}},
		dispatch.Entry{Key: "6", Aliases: []string{"antivirus", "symantec"}, Label: "Update Antivirus Definitions", Target: dispatch.ActionTarget{Action: c.Antivirus()}},
		dispatch.Entry{Key: "7", Aliases: []string{"group-policy", "gpupdate"}, Label: "Update Group Policy", Target: dispatch.ActionTarget{Action: c.GroupPolicy()}},
		dispatch.Entry{Key: "8", Aliases: []string{"copy"}, Label: "Manual File Copy", Target: dispatch.CommandTarget{Command: dispatch.CommandCopy}},
		dispatch.Entry{Key: "9", Aliases: []string{"connectivity", "ping"}, Label: "Test Network Connectivity", Target: dispatch.ActionTarget{Action: c.Connectivity()}},
		dispatch.Entry{Key: "10", Aliases: []string{"clear", "cls"}, Label: "Clear Console", Target: dispatch.CommandTarget{Command: dispatch.CommandClear}},
		dispatch.Entry{Key: "0", Aliases: []string{"exit", "quit"}, Label: "Exit", Target: dispatch.CommandTarget{Command: dispatch.CommandExit}},
		dispatch.Entry{Key: "01", Label: "Quick exit", Hidden: true, Target: dispatch.CommandTarget{Command: dispatch.CommandQuickExit}},
	)
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
