// Package config loads gonetcap settings from flags, environment and an
// optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"gonetcap/internal/capture"
	"gonetcap/internal/logging"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is prepended to every environment variable, e.g. GONETCAP_EXPORT_DIR.
const EnvPrefix = "GONETCAP"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid value")

// Config is the resolved runtime configuration.
type Config struct {
	Interface string
	ReadFile  string

	SnapLen      int
	Promisc      bool
	Filter       string
	Timeout      time.Duration
	PollInterval time.Duration

	ExportDir    string
	ExportPrefix string

	Headless bool
	Duration time.Duration

	Logging logging.Options
}

// CaptureOptions returns the options for opening a live source.
func (c *Config) CaptureOptions() capture.Options {
	return capture.Options{
		SnapLen: c.SnapLen,
		Promisc: c.Promisc,
		Timeout: c.Timeout,
		Filter:  c.Filter,
	}
}

// flag name -> config key
var bindings = map[string]string{
	"interface":        "interface",
	"read":             "read",
	"snaplen":          "snaplen",
	"promisc":          "promisc",
	"filter":           "filter",
	"timeout":          "timeout",
	"poll":             "poll",
	"export-dir":       "export.dir",
	"export-prefix":    "export.prefix",
	"headless":         "headless",
	"duration":         "duration",
	"log-level":        "logging.level",
	"log-file":         "logging.file",
	"log-max-size":     "logging.max-size-mb",
	"log-max-backups":  "logging.max-backups",
	"log-max-age-days": "logging.max-age-days",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("gonetcap", pflag.ContinueOnError)
	fs.StringP("interface", "i", "", "network interface to capture from")
	fs.StringP("read", "r", "", "replay frames from a pcap or pcapng file instead of a device")
	fs.Int("snaplen", 65536, "maximum bytes captured per frame")
	fs.Bool("promisc", true, "put the interface in promiscuous mode")
	fs.StringP("filter", "f", "", "BPF filter expression")
	fs.Duration("timeout", 50*time.Millisecond, "bounded wait for a single frame")
	fs.Duration("poll", 10*time.Millisecond, "stop-trigger poll interval while idle")
	fs.String("export-dir", ".", "directory for exported session logs")
	fs.String("export-prefix", "capture", "file name prefix for exported session logs")
	fs.Bool("headless", false, "capture without the terminal UI and export on exit")
	fs.Duration("duration", 0, "headless capture length (0 runs until interrupted)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-file", "gonetcap.log", "application log file, empty for stderr")
	fs.Int("log-max-size", 10, "log file size in MB before rotation")
	fs.Int("log-max-backups", 3, "rotated log files to keep")
	fs.Int("log-max-age-days", 7, "days to keep rotated log files")
	fs.StringP("config", "c", "", "config file (yaml, json or toml)")
	return fs
}

// Load parses args (without the program name) and resolves the configuration.
// It returns pflag.ErrHelp when -h was requested.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for name, key := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", name, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{
		Interface:    v.GetString("interface"),
		ReadFile:     v.GetString("read"),
		SnapLen:      v.GetInt("snaplen"),
		Promisc:      v.GetBool("promisc"),
		Filter:       v.GetString("filter"),
		Timeout:      v.GetDuration("timeout"),
		PollInterval: v.GetDuration("poll"),
		ExportDir:    v.GetString("export.dir"),
		ExportPrefix: v.GetString("export.prefix"),
		Headless:     v.GetBool("headless"),
		Duration:     v.GetDuration("duration"),
		Logging: logging.Options{
			Level:      v.GetString("logging.level"),
			File:       v.GetString("logging.file"),
			MaxSizeMB:  v.GetInt("logging.max-size-mb"),
			MaxBackups: v.GetInt("logging.max-backups"),
			MaxAgeDays: v.GetInt("logging.max-age-days"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and flag combinations.
func (c *Config) Validate() error {
	switch {
	case c.Interface != "" && c.ReadFile != "":
		return fmt.Errorf("%w: interface and read are mutually exclusive", ErrInvalid)
	case c.SnapLen <= 0:
		return fmt.Errorf("%w: snaplen must be positive, got %d", ErrInvalid, c.SnapLen)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalid, c.Timeout)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll must be positive, got %s", ErrInvalid, c.PollInterval)
	case c.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative, got %s", ErrInvalid, c.Duration)
	case c.ExportPrefix == "":
		return fmt.Errorf("%w: export.prefix must not be empty", ErrInvalid)
	case c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0:
		return fmt.Errorf("%w: logging rotation limits must not be negative", ErrInvalid)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalid, err)
	}
	return nil
}

// Usage returns the flag help text.
func Usage() string {
	return newFlagSet().FlagUsages()
}
