// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultCleanupInterval = 5 * time.Second
	DefaultBusName         = "io.github.jmylchreest.PopupTrack"
	DefaultOutputFormat    = "plain"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the popuptrack configuration.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Manager ManagerConfig `toml:"manager"`
	DBus    DBusConfig    `toml:"dbus"`
	Output  OutputConfig  `toml:"output"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json, pretty
}

// ManagerConfig holds popup manager options.
type ManagerConfig struct {
	CleanupInterval Duration `toml:"cleanup_interval"` // How often dead popups and grabs are reclaimed
}

// DBusConfig holds the inspection service options.
type DBusConfig struct {
	Enabled bool   `toml:"enabled"`
	BusName string `toml:"bus_name"`
}

// OutputConfig holds defaults for replay output.
type OutputConfig struct {
	Format  string `toml:"format"`   // plain, json, events, ids
	ShowIDs bool   `toml:"show_ids"` // Print surface ULIDs next to labels
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Manager: ManagerConfig{
			CleanupInterval: Duration(DefaultCleanupInterval),
		},
		DBus: DBusConfig{
			Enabled: true,
			BusName: DefaultBusName,
		},
		Output: OutputConfig{
			Format:  DefaultOutputFormat,
			ShowIDs: false,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "popuptrack", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks option values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json", "pretty":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}

	switch c.Output.Format {
	case "plain", "json", "events", "ids":
	default:
		return fmt.Errorf("invalid output format %q", c.Output.Format)
	}

	if c.Manager.CleanupInterval.Duration() <= 0 {
		return errors.New("cleanup_interval must be positive")
	}

	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Marshal returns the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
