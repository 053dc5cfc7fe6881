package workstation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dwsmith1983/autosetup/internal/engine"
)

var guidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// sleepTimeouts are the powercfg /change settings zeroed to disable sleep.
var sleepTimeouts = []string{
	"monitor-timeout-ac",
	"monitor-timeout-dc",
	"disk-timeout-ac",
	"disk-timeout-dc",
	"standby-timeout-ac",
	"standby-timeout-dc",
}

// PowerScheme activates a copy of the Ultimate Performance plan, falling
// back to the built-in High Performance plan.
func (c *Catalog) PowerScheme() engine.Action {
	return engine.Action{
		Name:    "power-scheme",
		Primary: engine.Op("powercfg-ultimate", c.activateUltimate),
		Fallback: engine.Op("powercfg-high", func(ctx context.Context) (string, error) {
			if _, err := c.run(ctx, "powercfg", "/setactive", c.cfg.Power.HighPerformanceGUID); err != nil {
				return "", err
			}
			return "High Performance plan activated", nil
		}),
		Timeout: c.cfg.Power.Timeout,
	}
}

func (c *Catalog) activateUltimate(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "powercfg", "/duplicatescheme", c.cfg.Power.UltimateGUID)
	if err != nil {
		return "", fmt.Errorf("creating Ultimate Performance plan: %w", err)
	}
	guid := newSchemeGUID(res.Stdout, c.cfg.Power.UltimateGUID)
	if guid == "" {
		return "", fmt.Errorf("no plan GUID in powercfg output: %s", res.Output())
	}
	if _, err := c.run(ctx, "powercfg", "/setactive", guid); err != nil {
		return "", fmt.Errorf("activating plan %s: %w", guid, err)
	}
	return fmt.Sprintf("Ultimate Performance plan %s activated", guid), nil
}

// newSchemeGUID returns the first GUID in out other than the source scheme.
// Matching the GUID alone keeps this independent of the console language.
func newSchemeGUID(out, source string) string {
	for _, g := range guidPattern.FindAllString(out, -1) {
		if !strings.EqualFold(g, source) {
			return g
		}
	}
	return ""
}

// PowerTimeouts disables monitor, disk and standby timeouts on AC and battery.
func (c *Catalog) PowerTimeouts() engine.Action {
	return engine.Action{
		Name: "power-timeouts",
		Primary: engine.Op("powercfg", func(ctx context.Context) (string, error) {
			var errs []error
			for _, setting := range sleepTimeouts {
				if _, err := c.run(ctx, "powercfg", "/change", setting, "0"); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", setting, err))
				}
			}
			if len(errs) > 0 {
				return "", fmt.Errorf("%d of %d settings failed: %w", len(errs), len(sleepTimeouts), errors.Join(errs...))
			}
			return fmt.Sprintf("%d sleep timeouts disabled", len(sleepTimeouts)), nil
		}),
		Timeout: c.cfg.Power.Timeout,
	}
}
