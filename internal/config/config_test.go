package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autosetup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, validate(&cfg))

	assert.Equal(t, "auto_setup.log", cfg.Log.File)
	assert.Equal(t, "cp857", cfg.Console.Encoding)
	assert.Equal(t, 300*time.Millisecond, cfg.Pacing)
	assert.Equal(t, "8.8.8.8", cfg.Network.DNSServer)
	assert.Equal(t, 10*time.Second, cfg.SCCM.Timeout)
	assert.Equal(t, 120*time.Second, cfg.Policy.Timeout)
	require.Len(t, cfg.SCCM.Cycles, 11)
	assert.Equal(t, "Application Deployment Evaluation Cycle", cfg.SCCM.Cycles[0].Name)
	assert.Equal(t, "{00000000-0000-0000-0000-000000000032}", cfg.SCCM.Cycles[10].ID)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `log:
  file: setup.log
  level: debug
pacing: 1s
network:
  dnsServer: 1.1.1.1
sccm:
  timeout: 20s
  cycles:
    - name: Hardware Inventory Cycle
      id: "{00000000-0000-0000-0000-000000000001}"
printer:
  path: \\print01\Floor2
support:
  urls:
    dell: https://downloads.example.com/dell.exe
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "setup.log", cfg.Log.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.Second, cfg.Pacing)
	assert.Equal(t, "1.1.1.1", cfg.Network.DNSServer)
	assert.Equal(t, 20*time.Second, cfg.SCCM.Timeout)
	assert.Len(t, cfg.SCCM.Cycles, 1)
	assert.Equal(t, `\\print01\Floor2`, cfg.Printer.Path)
	assert.Equal(t, "https://downloads.example.com/dell.exe", cfg.Support.URLs["dell"])
	assert.Equal(t, hpSupportURL, cfg.Support.URLs["hp"], "unset keys keep their defaults")
	assert.Equal(t, 60*time.Second, cfg.Antivirus.Timeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Log, cfg.Log)
}

func TestLoadDefaultFileFromWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("log:\n  level: warn\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTOSETUP_LOG_LEVEL", "error")
	t.Setenv("AUTOSETUP_PACING", "0s")
	t.Setenv("AUTOSETUP_BREAKER_ENABLED", "false")
	t.Setenv("AUTOSETUP_PRINTER_PATH", `\\env\printer`)
	t.Setenv("AUTOSETUP_DNS_SERVER", "9.9.9.9")

	cfg, err := Load(writeConfig(t, "pacing: 2s\nnetwork:\n  dnsServer: 1.1.1.1\n"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Zero(t, cfg.Pacing)
	assert.False(t, cfg.Breaker.Enabled)
	assert.Equal(t, `\\env\printer`, cfg.Printer.Path)
	assert.Equal(t, "9.9.9.9", cfg.Network.DNSServer)
}

func TestLoadEnvInvalidDuration(t *testing.T) {
	t.Setenv("AUTOSETUP_PACING", "soon")

	_, err := Load(writeConfig(t, "log:\n  level: info\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing log file", func(c *Config) { c.Log.File = " " }, "log.file"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative pacing", func(c *Config) { c.Pacing = -time.Second }, "pacing"},
		{"breaker threshold", func(c *Config) { c.Breaker.FailThreshold = 0 }, "breaker.failThreshold"},
		{"missing dns", func(c *Config) { c.Network.DNSServer = "" }, "network.dnsServer"},
		{"bad generic url", func(c *Config) { c.Support.GenericURL = "not a url" }, "support.genericUrl"},
		{"bad vendor url", func(c *Config) { c.Support.URLs["dell"] = "ftp//x" }, "support.urls.dell"},
		{"no cycles", func(c *Config) { c.SCCM.Cycles = nil }, "sccm cycle"},
		{"duplicate cycle", func(c *Config) {
			c.SCCM.Cycles = append(c.SCCM.Cycles, c.SCCM.Cycles[0])
		}, "duplicate cycle"},
		{"cycle without id", func(c *Config) { c.SCCM.Cycles[3].ID = "" }, "sccm.cycles[3]"},
		{"missing printer", func(c *Config) { c.Printer.Path = "" }, "printer.path"},
		{"zero timeout", func(c *Config) { c.Policy.Timeout = 0 }, "policy.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := validate(&cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidation_BreakerDisabledSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Breaker = BreakerConfig{Enabled: false}
	assert.NoError(t, validate(&cfg))
}

func TestSlogLevel(t *testing.T) {
	lvl, err := LogConfig{Level: "WARN"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())
}
