package workstation

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dwsmith1983/autosetup/internal/engine"
)

// SupportAssistant downloads the manufacturer's support package, falling
// back to the generic package. It is skipped when the network is down.
func (c *Catalog) SupportAssistant() engine.Action {
	return engine.Action{
		Name:     "support-assistant",
		Requires: engine.Op("ping", c.requireNetwork),
		Primary:  engine.Op("download-oem", c.downloadOEM),
		Fallback: engine.Op("download-generic", func(ctx context.Context) (string, error) {
			return c.fetchPackage(ctx, "generic", c.cfg.Support.GenericURL)
		}),
		Timeout: c.cfg.Support.Timeout,
	}
}

func (c *Catalog) requireNetwork(ctx context.Context) (string, error) {
	if _, err := c.ping(ctx); err != nil {
		return "", fmt.Errorf("no internet connection: %w", err)
	}
	return "", nil
}

func (c *Catalog) downloadOEM(ctx context.Context) (string, error) {
	manufacturer, err := c.deps.Manufacturer()
	if err != nil {
		return "", fmt.Errorf("reading manufacturer: %w", err)
	}
	vendor, url, ok := c.vendorURL(manufacturer)
	if !ok {
		return "", fmt.Errorf("no support package for manufacturer %q", manufacturer)
	}
	c.deps.Logger.Info("manufacturer detected", "manufacturer", manufacturer, "vendor", vendor)
	return c.fetchPackage(ctx, vendor, url)
}

// vendorURL matches the manufacturer against the configured vendor keys in
// sorted order so the choice is stable.
func (c *Catalog) vendorURL(manufacturer string) (vendor, url string, ok bool) {
	m := strings.ToLower(manufacturer)
	if m == "" {
		return "", "", false
	}
	vendors := make([]string, 0, len(c.cfg.Support.URLs))
	for v := range c.cfg.Support.URLs {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	for _, v := range vendors {
		if strings.Contains(m, strings.ToLower(v)) {
			return v, c.cfg.Support.URLs[v], true
		}
	}
	return "", "", false
}

func (c *Catalog) fetchPackage(ctx context.Context, vendor, url string) (string, error) {
	dest := filepath.Join(c.downloadDir(), c.cfg.Support.FileName)
	res, err := c.deps.Fetcher.Fetch(ctx, url, dest)
	if err != nil {
		return "", err
	}
	detail := fmt.Sprintf("%s package downloaded to %s (%s)", vendor, res.Path, humanize.Bytes(uint64(res.Bytes)))
	if c.cfg.Support.OpenFolder {
		// explorer exits non-zero even when the window opens.
		if _, err := c.run(ctx, "explorer", filepath.Dir(res.Path)); err != nil && !isExit(err) {
			c.deps.Logger.Warn("could not open download folder", "path", res.Path, "error", err)
			detail += "; open the folder and run the installer manually"
		}
	}
	return detail, nil
}
