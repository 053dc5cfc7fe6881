package workstation

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dwsmith1983/autosetup/internal/engine"
)

// pingTime matches the round-trip time in English and Turkish ping output.
var pingTime = regexp.MustCompile(`(?i)(?:time|zaman|süre)\s*[=<]\s*([\d.,]+)\s*ms`)

// Connectivity pings the configured DNS server, falling back to a TCP dial
// of its DNS port when ICMP is blocked.
func (c *Catalog) Connectivity() engine.Action {
	server := c.cfg.Network.DNSServer
	return engine.Action{
		Name: "connectivity",
		Primary: engine.Op("ping", func(ctx context.Context) (string, error) {
			rtt, err := c.ping(ctx)
			if err != nil {
				return "", err
			}
			detail := fmt.Sprintf("DNS server %s is reachable", server)
			if rtt != "" {
				detail += ", ping " + rtt
			}
			return c.withNetworkInfo(ctx, detail), nil
		}),
		Fallback: engine.Op("tcp", func(ctx context.Context) (string, error) {
			addr := net.JoinHostPort(server, "53")
			start := time.Now()
			conn, err := c.deps.Dial(ctx, "tcp", addr)
			if err != nil {
				return "", fmt.Errorf("dialing %s: %w", addr, err)
			}
			_ = conn.Close()
			return c.withNetworkInfo(ctx, fmt.Sprintf("%s reachable over TCP in %s", addr, time.Since(start).Round(time.Millisecond))), nil
		}),
		Timeout: c.cfg.Network.Timeout,
	}
}

// ping sends the configured echo requests and returns the reported
// round-trip time, if any.
func (c *Catalog) ping(ctx context.Context) (string, error) {
	server := c.cfg.Network.DNSServer
	res, err := c.run(ctx, "ping", pingArgs(c.deps.GOOS, c.cfg.Network.PingCount, server)...)
	if err != nil {
		return "", err
	}
	if !strings.Contains(strings.ToLower(res.Stdout), "ttl=") {
		return "", fmt.Errorf("no reply from %s", server)
	}
	if m := pingTime.FindStringSubmatch(res.Stdout); m != nil {
		return m[1] + "ms", nil
	}
	return "", nil
}

func pingArgs(goos string, count int, host string) []string {
	flag := "-c"
	if goos == "windows" {
		flag = "-n"
	}
	return []string{flag, strconv.Itoa(count), host}
}

// withNetworkInfo appends the host name, its IPv4 address and the private
// adapter address reported by ipconfig, each only when available.
func (c *Catalog) withNetworkInfo(ctx context.Context, detail string) string {
	var info []string
	if host, err := c.deps.Hostname(); err == nil && host != "" {
		info = append(info, "host "+host)
		if ip := c.localIP(ctx, host); ip != "" {
			info = append(info, "ip "+ip)
		}
	}
	if adapter := c.adapterIP(ctx); adapter != "" {
		info = append(info, "adapter "+adapter)
	}
	if len(info) == 0 {
		return detail
	}
	return fmt.Sprintf("%s (%s)", detail, strings.Join(info, ", "))
}

func (c *Catalog) localIP(ctx context.Context, host string) string {
	ips, err := c.deps.LookupIP(ctx, host)
	if err != nil {
		c.deps.Logger.Debug("local address lookup failed", "host", host, "error", err)
		return ""
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}

// adapterIP reads the first private IPv4 address from ipconfig on Windows.
func (c *Catalog) adapterIP(ctx context.Context) string {
	if c.deps.GOOS != "windows" {
		return ""
	}
	res, err := c.run(ctx, "ipconfig")
	if err != nil {
		c.deps.Logger.Debug("ipconfig failed", "error", err)
		return ""
	}
	return privateIPv4(res.Stdout)
}

// privateIPv4 finds an "IPv4 ... : a.b.c.d" line holding a private address.
func privateIPv4(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "IPv4") {
			continue
		}
		i := strings.LastIndex(line, ":")
		if i < 0 {
			continue
		}
		addr := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line[i+1:]), "(Preferred)"))
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil && ip.IsPrivate() {
			return ip.String()
		}
	}
	return ""
}

func lastLine(out, fallback string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return fallback
}
