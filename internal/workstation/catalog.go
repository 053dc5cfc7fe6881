// Package workstation builds the machine-configuration actions run by
// autosetup: support package download, configuration manager cycles, power
// profile, printer mapping, antivirus update, group policy refresh,
// connectivity check and manual file copy.
package workstation

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dwsmith1983/autosetup/internal/config"
	"github.com/dwsmith1983/autosetup/internal/download"
	"github.com/dwsmith1983/autosetup/internal/engine"
	"github.com/dwsmith1983/autosetup/internal/shell"
)

// Sequence names.
const (
	SequenceFullSetup = "full-setup"
	SequenceSCCM      = "sccm-cycles"
	SequencePower     = "power"
)

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) (download.Result, error)
}

// Deps are the collaborators the actions use to reach the machine.
type Deps struct {
	Shell        shell.Runner
	Fetcher      Fetcher
	Manufacturer func() (string, error)
	Dial         func(ctx context.Context, network, addr string) (net.Conn, error)
	Stat         func(name string) (os.FileInfo, error)
	Hostname     func() (string, error)
	LookupIP     func(ctx context.Context, host string) ([]net.IP, error)
	// GOOS selects platform command syntax; it defaults to runtime.GOOS.
	GOOS string
	// BaseDir anchors a relative support download directory.
	BaseDir string
	Logger  *slog.Logger
}

// Catalog builds actions and sequences from a configuration.
type Catalog struct {
	cfg  config.Config
	deps Deps
}

// NewCatalog creates a Catalog. Shell and Fetcher are required; the other
// dependencies default to the local machine.
func NewCatalog(cfg config.Config, deps Deps) (*Catalog, error) {
	if deps.Shell == nil {
		return nil, fmt.Errorf("workstation: shell runner is required")
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("workstation: fetcher is required")
	}
	if deps.Manufacturer == nil {
		deps.Manufacturer = SystemManufacturer
	}
	if deps.Dial == nil {
		var d net.Dialer
		deps.Dial = d.DialContext
	}
	if deps.Stat == nil {
		deps.Stat = os.Stat
	}
	if deps.Hostname == nil {
		deps.Hostname = os.Hostname
	}
	if deps.LookupIP == nil {
		deps.LookupIP = func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip4", host)
		}
	}
	if deps.GOOS == "" {
		deps.GOOS = runtime.GOOS
	}
	if deps.BaseDir == "" {
		deps.BaseDir = "."
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{cfg: cfg, deps: deps}, nil
}

// FullSetup returns every automated step in menu order.
func (c *Catalog) FullSetup() (*engine.Sequence, error) {
	actions := []engine.Action{c.SupportAssistant()}
	actions = append(actions, c.sccmActions()...)
	actions = append(actions,
		c.PowerScheme(),
		c.PowerTimeouts(),
		c.Printer(),
		c.Antivirus(),
		c.GroupPolicy(),
	)
	return engine.NewSequence(SequenceFullSetup, actions...)
}

// SCCMCycles returns one action per configured client cycle.
func (c *Catalog) SCCMCycles() (*engine.Sequence, error) {
	return engine.NewSequence(SequenceSCCM, c.sccmActions()...)
}

// Power returns the power plan and sleep timeout actions.
func (c *Catalog) Power() (*engine.Sequence, error) {
	return engine.NewSequence(SequencePower, c.PowerScheme(), c.PowerTimeouts())
}

func (c *Catalog) sccmActions() []engine.Action {
	out := make([]engine.Action, 0, len(c.cfg.SCCM.Cycles))
	for _, cycle := range c.cfg.SCCM.Cycles {
		out = append(out, c.SCCMCycle(cycle))
	}
	return out
}

func (c *Catalog) run(ctx context.Context, name string, args ...string) (shell.Result, error) {
	return c.deps.Shell.Run(ctx, name, args...)
}

// psQuote renders s as a single-quoted PowerShell string literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (c *Catalog) downloadDir() string {
	dir := c.cfg.Support.DownloadDir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.deps.BaseDir, dir)
}
