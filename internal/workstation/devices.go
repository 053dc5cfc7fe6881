package workstation

import (
	"context"
	"errors"
	"io/fs"

	"github.com/dwsmith1983/autosetup/internal/engine"
)

// Printer connects the shared printer through printui, falling back to
// PowerShell's Add-Printer.
func (c *Catalog) Printer() engine.Action {
	path := c.cfg.Printer.Path
	return engine.Action{
		Name: "printer",
		Primary: engine.Op("rundll32", func(ctx context.Context) (string, error) {
			if _, err := c.run(ctx, "rundll32", "printui.dll,PrintUIEntry", "/in", "/n"+path); err != nil {
				return "", err
			}
			return "printer connected: " + path, nil
		}),
		Fallback: engine.Op("powershell", func(ctx context.Context) (string, error) {
			script := "Add-Printer -ConnectionName " + psQuote(path)
			if _, err := c.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script); err != nil {
				return "", err
			}
			return "printer connected: " + path, nil
		}),
		Timeout: c.cfg.Printer.Timeout,
	}
}

// Antivirus runs the LiveUpdate definition update when it is installed.
func (c *Catalog) Antivirus() engine.Action {
	path := c.cfg.Antivirus.Path
	return engine.Action{
		Name: "antivirus",
		Requires: engine.Op("stat", func(context.Context) (string, error) {
			if _, err := c.deps.Stat(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return "", engine.Skip("LiveUpdate not found at %s", path)
				}
				return "", err
			}
			return "", nil
		}),
		Primary: engine.Op("liveupdate", func(ctx context.Context) (string, error) {
			if _, err := c.run(ctx, path, "/u"); err != nil {
				return "", err
			}
			return "definition update completed", nil
		}),
		Timeout: c.cfg.Antivirus.Timeout,
	}
}

// GroupPolicy forces a policy refresh, retrying computer policy alone when
// the full refresh fails.
func (c *Catalog) GroupPolicy() engine.Action {
	return engine.Action{
		Name: "group-policy",
		Primary: engine.Op("gpupdate", func(ctx context.Context) (string, error) {
			res, err := c.run(ctx, "gpupdate", "/force")
			if err != nil {
				return "", err
			}
			return lastLine(res.Stdout, "group policy updated"), nil
		}),
		Fallback: engine.Op("gpupdate-computer", func(ctx context.Context) (string, error) {
			res, err := c.run(ctx, "gpupdate", "/target:computer", "/force")
			if err != nil {
				return "", err
			}
			return lastLine(res.Stdout, "computer policy updated"), nil
		}),
		Timeout: c.cfg.Policy.Timeout,
	}
}
