package workstation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwsmith1983/autosetup/internal/config"
	"github.com/dwsmith1983/autosetup/internal/engine"
	"github.com/dwsmith1983/autosetup/internal/shell"
)

// SCCMCycle triggers one configuration manager client schedule through WMIC,
// falling back to PowerShell's Invoke-WmiMethod.
func (c *Catalog) SCCMCycle(cycle config.Cycle) engine.Action {
	return engine.Action{
		Name:     "sccm: " + cycle.Name,
		Requires: engine.Op("sc", c.requireSCCMClient),
		Primary: engine.Op("wmic", func(ctx context.Context) (string, error) {
			res, err := c.run(ctx, "wmic", `/namespace:\\root\ccm`, "path", "sms_client",
				"CALL", "TriggerSchedule", cycle.ID)
			if err != nil {
				return "", err
			}
			if !strings.Contains(res.Stdout, "ReturnValue = 0") {
				return "", fmt.Errorf("TriggerSchedule %s did not return 0: %s", cycle.ID, res.Output())
			}
			return "triggered " + cycle.ID, nil
		}),
		Fallback: engine.Op("powershell", func(ctx context.Context) (string, error) {
			script := `Invoke-WmiMethod -Namespace root\ccm -Class SMS_CLIENT -Name TriggerSchedule -ArgumentList ` +
				psQuote(cycle.ID)
			if _, err := c.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script); err != nil {
				return "", err
			}
			return "triggered " + cycle.ID, nil
		}),
		Timeout: c.cfg.SCCM.Timeout,
	}
}

// requireSCCMClient checks that the client service is installed, running or not.
func (c *Catalog) requireSCCMClient(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "sc", "query", c.cfg.SCCM.Service)
	if err != nil && !isExit(err) {
		return "", err
	}
	if strings.Contains(res.Stdout, "RUNNING") || strings.Contains(res.Stdout, "STOPPED") {
		return "", nil
	}
	return "", engine.Skip("configuration manager client (%s) not found on this system", c.cfg.SCCM.Service)
}

// isExit reports whether err is a process that ran and exited non-zero.
func isExit(err error) bool {
	var exitErr *shell.ExitError
	return errors.As(err, &exitErr)
}
