// Package config handles loading and validation of the autosetup.yaml configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no --config path is given.
const DefaultFile = "autosetup.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUTOSETUP_"

// Config is the effective configuration. It is built once at startup and
// passed by value into constructors.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Console   ConsoleConfig   `yaml:"console"`
	Pacing    time.Duration   `yaml:"pacing"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Network   NetworkConfig   `yaml:"network"`
	Support   SupportConfig   `yaml:"support"`
	SCCM      SCCMConfig      `yaml:"sccm"`
	Power     PowerConfig     `yaml:"power"`
	Printer   PrinterConfig   `yaml:"printer"`
	Antivirus AntivirusConfig `yaml:"antivirus"`
	Policy    PolicyConfig    `yaml:"policy"`
}

// LogConfig configures the append-only run log.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", c.Level, err)
	}
	return lvl, nil
}

// ConsoleConfig describes the host console.
type ConsoleConfig struct {
	// Encoding is the code page command output is written in (cp857, cp850,
	// cp437, cp1252 or utf-8).
	Encoding string `yaml:"encoding"`
}

// BreakerConfig configures the per-mechanism circuit breakers.
type BreakerConfig struct {
	Enabled       bool          `yaml:"enabled"`
	FailThreshold int           `yaml:"failThreshold"`
	Cooldown      time.Duration `yaml:"cooldown"`
}

// NetworkConfig configures the connectivity check.
type NetworkConfig struct {
	DNSServer string        `yaml:"dnsServer"`
	PingCount int           `yaml:"pingCount"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SupportConfig configures the support assistant download.
type SupportConfig struct {
	// URLs maps a lower-case manufacturer substring to its package URL.
	URLs        map[string]string `yaml:"urls"`
	GenericURL  string            `yaml:"genericUrl"`
	DownloadDir string            `yaml:"downloadDir"`
	FileName    string            `yaml:"fileName"`
	UserAgent   string            `yaml:"userAgent"`
	Retries     int               `yaml:"retries"`
	OpenFolder  bool              `yaml:"openFolder"`
	Timeout     time.Duration     `yaml:"timeout"`
}

// Cycle is one configuration manager client schedule.
type Cycle struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// SCCMConfig configures the configuration manager client cycle triggers.
type SCCMConfig struct {
	Service string        `yaml:"service"`
	Cycles  []Cycle       `yaml:"cycles"`
	Timeout time.Duration `yaml:"timeout"`
}

// PowerConfig configures the power profile actions.
type PowerConfig struct {
	UltimateGUID        string        `yaml:"ultimateGuid"`
	HighPerformanceGUID string        `yaml:"highPerformanceGuid"`
	Timeout             time.Duration `yaml:"timeout"`
}

// PrinterConfig configures the shared printer mapping.
type PrinterConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// AntivirusConfig configures the definition update.
type AntivirusConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// PolicyConfig configures the group policy refresh.
type PolicyConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

const hpSupportURL = "https://ftp.hp.com/pub/softpaq/sp108501-109000/sp108770.exe"

// DefaultCycles lists the client schedules triggered by the sccm-cycles sequence.
func DefaultCycles() []Cycle {
	return []Cycle{
		{Name: "Application Deployment Evaluation Cycle", ID: "{00000000-0000-0000-0000-000000000121}"},
		{Name: "Discovery Data Collection Cycle", ID: "{00000000-0000-0000-0000-000000000003}"},
		{Name: "File Collection Cycle", ID: "{00000000-0000-0000-0000-000000000010}"},
		{Name: "Hardware Inventory Cycle", ID: "{00000000-0000-0000-0000-000000000001}"},
		{Name: "Machine Policy Retrieval & Evaluation Cycle", ID: "{00000000-0000-0000-0000-000000000022}"},
		{Name: "Software Inventory Cycle", ID: "{00000000-0000-0000-0000-000000000002}"},
		{Name: "Software Metering Usage Report Cycle", ID: "{00000000-0000-0000-0000-000000000031}"},
		{Name: "Software Updates Assignments Evaluation Cycle", ID: "{00000000-0000-0000-0000-000000000108}"},
		{Name: "Software Updates Deployment Evaluation Cycle", ID: "{00000000-0000-0000-0000-000000000113}"},
		{Name: "User Policy Retrieval & Evaluation Cycle", ID: "{00000000-0000-0000-0000-000000000026}"},
		{Name: "Windows Installer Source List Update Cycle", ID: "{00000000-0000-0000-0000-000000000032}"},
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:     LogConfig{File: "auto_setup.log", Level: "info"},
		Console: ConsoleConfig{Encoding: "cp857"},
		Pacing:  300 * time.Millisecond,
		Breaker: BreakerConfig{Enabled: true, FailThreshold: 3, Cooldown: 30 * time.Second},
		Network: NetworkConfig{DNSServer: "8.8.8.8", PingCount: 1, Timeout: 10 * time.Second},
		Support: SupportConfig{
			URLs: map[string]string{
				"hp":     hpSupportURL,
				"dell":   hpSupportURL,
				"lenovo": hpSupportURL,
			},
			GenericURL:  hpSupportURL,
			DownloadDir: "autoSetup",
			FileName:    "Support_Assistant.exe",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Retries:     3,
			OpenFolder:  true,
			Timeout:     10 * time.Minute,
		},
		SCCM: SCCMConfig{Service: "ccmexec", Cycles: DefaultCycles(), Timeout: 10 * time.Second},
		Power: PowerConfig{
			UltimateGUID:        "e9a42b02-d5df-448d-aa00-03f14749eb61",
			HighPerformanceGUID: "8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c",
			Timeout:             30 * time.Second,
		},
		Printer: PrinterConfig{Path: `\\s000rdl01\FollowmeS000RDL01`, Timeout: 60 * time.Second},
		Antivirus: AntivirusConfig{
			Path:    `C:\Program Files\Symantec\Symantec Endpoint Protection\SepLiveUpdate.exe`,
			Timeout: 60 * time.Second,
		},
		Policy: PolicyConfig{Timeout: 120 * time.Second},
	}
}

// envOverrides holds the AUTOSETUP_* variables. Unset variables leave the
// loaded value untouched.
type envOverrides struct {
	LogFile         string         `env:"LOG_FILE"`
	LogLevel        string         `env:"LOG_LEVEL"`
	ConsoleEncoding string         `env:"CONSOLE_ENCODING"`
	Pacing          *time.Duration `env:"PACING"`
	BreakerEnabled  *bool          `env:"BREAKER_ENABLED"`
	DNSServer       string         `env:"DNS_SERVER"`
	DownloadDir     string         `env:"DOWNLOAD_DIR"`
	PrinterPath     string         `env:"PRINTER_PATH"`
	AntivirusPath   string         `env:"ANTIVIRUS_PATH"`
}

// Load builds the effective configuration: defaults, then the YAML file at
// path, then environment overrides. An empty path reads DefaultFile if it
// exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	setString(&cfg.Log.File, o.LogFile)
	setString(&cfg.Log.Level, o.LogLevel)
	setString(&cfg.Console.Encoding, o.ConsoleEncoding)
	setString(&cfg.Network.DNSServer, o.DNSServer)
	setString(&cfg.Support.DownloadDir, o.DownloadDir)
	setString(&cfg.Printer.Path, o.PrinterPath)
	setString(&cfg.Antivirus.Path, o.AntivirusPath)
	if o.Pacing != nil {
		cfg.Pacing = *o.Pacing
	}
	if o.BreakerEnabled != nil {
		cfg.Breaker.Enabled = *o.BreakerEnabled
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Log.File) == "" {
		return fmt.Errorf("log.file is required")
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return err
	}
	if cfg.Pacing < 0 {
		return fmt.Errorf("pacing must not be negative")
	}
	if cfg.Breaker.Enabled {
		if cfg.Breaker.FailThreshold <= 0 {
			return fmt.Errorf("breaker.failThreshold must be positive")
		}
		if cfg.Breaker.Cooldown <= 0 {
			return fmt.Errorf("breaker.cooldown must be positive")
		}
	}
	if cfg.Network.DNSServer == "" {
		return fmt.Errorf("network.dnsServer is required")
	}
	if cfg.Network.PingCount <= 0 {
		return fmt.Errorf("network.pingCount must be positive")
	}
	if err := validateURL("support.genericUrl", cfg.Support.GenericURL); err != nil {
		return err
	}
	for vendor, u := range cfg.Support.URLs {
		if err := validateURL("support.urls."+vendor, u); err != nil {
			return err
		}
	}
	if cfg.Support.DownloadDir == "" || cfg.Support.FileName == "" {
		return fmt.Errorf("support.downloadDir and support.fileName are required")
	}
	if cfg.Support.Retries < 0 {
		return fmt.Errorf("support.retries must not be negative")
	}
	if cfg.SCCM.Service == "" {
		return fmt.Errorf("sccm.service is required")
	}
	if len(cfg.SCCM.Cycles) == 0 {
		return fmt.Errorf("at least one sccm cycle is required")
	}
	seen := make(map[string]bool, len(cfg.SCCM.Cycles))
	for i, c := range cfg.SCCM.Cycles {
		if c.Name == "" || c.ID == "" {
			return fmt.Errorf("sccm.cycles[%d]: name and id are required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("sccm.cycles[%d]: duplicate cycle %q", i, c.Name)
		}
		seen[c.Name] = true
	}
	if cfg.Power.UltimateGUID == "" || cfg.Power.HighPerformanceGUID == "" {
		return fmt.Errorf("power.ultimateGuid and power.highPerformanceGuid are required")
	}
	if cfg.Printer.Path == "" {
		return fmt.Errorf("printer.path is required")
	}
	if cfg.Antivirus.Path == "" {
		return fmt.Errorf("antivirus.path is required")
	}

	timeouts := map[string]time.Duration{
		"network.timeout":   cfg.Network.Timeout,
		"support.timeout":   cfg.Support.Timeout,
		"sccm.timeout":      cfg.SCCM.Timeout,
		"power.timeout":     cfg.Power.Timeout,
		"printer.timeout":   cfg.Printer.Timeout,
		"antivirus.timeout": cfg.Antivirus.Timeout,
		"policy.timeout":    cfg.Policy.Timeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: invalid url %q", field, raw)
	}
	return nil
}
