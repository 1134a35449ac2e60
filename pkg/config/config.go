package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/omenfan/pkg/control"
	"github.com/ja7ad/omenfan/pkg/ec"
	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/thermal"
	"github.com/ja7ad/omenfan/pkg/types"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "/etc/omenfan/config.yaml"

// DeviceAuto asks the daemon to detect the EC file at startup.
const DeviceAuto = "auto"

// Config is the daemon configuration as written in YAML.
type Config struct {
	Device        string        `yaml:"device"`
	Interval      time.Duration `yaml:"interval"`
	Revision      string        `yaml:"revision"`
	Socket        string        `yaml:"socket"`
	PidFile       string        `yaml:"pidfile"`
	RestoreOnExit bool          `yaml:"restore_on_exit"`
	ThrottleAbove types.Celsius `yaml:"throttle_above"`
	Curve         thermal.Curve `yaml:"curve,omitempty"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Device:        ec.DefaultPath,
		Interval:      time.Second,
		Revision:      mode.RevisionDefault,
		Socket:        "/run/omenfan.sock",
		PidFile:       "/run/omenfan.pid",
		RestoreOnExit: true,
		ThrottleAbove: control.MaxThrottleAbove,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load reads path over the defaults. A missing file is only an error when
// required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.decode(b); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: device is empty", ErrInvalid)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be > 0", ErrInvalid)
	}
	if _, err := mode.Lookup(c.Revision); err != nil {
		return fmt.Errorf("%w: %v (known: %s)", ErrInvalid, err, strings.Join(mode.Revisions(), ", "))
	}
	if c.ThrottleAbove == 0 || c.ThrottleAbove > control.MaxThrottleAbove {
		return fmt.Errorf("%w: throttle_above must be within 1..%d, got %d", ErrInvalid, control.MaxThrottleAbove, c.ThrottleAbove)
	}
	if len(c.Curve) > 0 {
		if err := c.Curve.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalid)
	}
	return nil
}

// Control converts the file settings into the loop's configuration.
func (c *Config) Control() (*control.Config, error) {
	tbl, err := mode.Lookup(c.Revision)
	if err != nil {
		return nil, err
	}
	return &control.Config{
		Interval:      c.Interval,
		Table:         tbl,
		Curve:         c.Curve,
		ThrottleAbove: c.ThrottleAbove,
		RestoreOnExit: c.RestoreOnExit,
	}, nil
}

// Logger builds the slog logger described by LogLevel and LogFormat.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, s)
	}
	return lvl, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
