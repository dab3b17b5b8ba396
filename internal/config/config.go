// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/toast"
)

// Default configuration values.
const (
	DefaultMaxVisible = 5
	DefaultWidth      = 48
	DefaultVolume     = 80
	DefaultAppName    = "toastui"

	// DefaultInternalInterval is how often one internal event may repeat.
	DefaultInternalInterval = 5 * time.Second
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "300ms", "1m", or integer milliseconds.
// A dwell of "0" or 0 means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))

	// Integers are milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '300ms', '1m' or milliseconds: %w", s, err)
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

// Config is the toastui configuration.
// Loaded from $XDG_CONFIG_HOME/toastui/config.toml
type Config struct {
	Timeouts TimeoutConfig  `toml:"timeouts"`
	Behavior BehaviorConfig `toml:"behavior"`
	Display  DisplayConfig  `toml:"display"`
	Audio    AudioConfig    `toml:"audio"`
	DBus     DBusConfig     `toml:"dbus"`
}

// TimeoutConfig contains lifecycle timings.
type TimeoutConfig struct {
	Dwell Duration            `toml:"dwell"`           // Time a toast stays active, 0 = never expire
	Exit  Duration            `toml:"exit"`            // Exit transition length
	Kinds map[string]Duration `toml:"kinds,omitempty"` // Per-kind dwell overrides
}

// BehaviorConfig contains queue behavior settings.
type BehaviorConfig struct {
	MaxVisible      int  `toml:"max_visible"`      // Oldest toasts are dropped beyond this, 0 = unlimited
	StackDuplicates bool `toml:"stack_duplicates"` // Combine identical active toasts
	ShowCount       bool `toml:"show_count"`       // Show "(2)" for stacked duplicates

	// InternalNotifications shows toastui's own events (config reloads,
	// forwarding and audio failures) as toasts.
	InternalNotifications bool     `toml:"internal_notifications"`
	InternalInterval      Duration `toml:"internal_interval"` // Minimum gap between repeats of one event
}

// DisplayConfig contains terminal renderer settings.
type DisplayConfig struct {
	Position string `toml:"position"`  // "top-right", "bottom-left", etc.
	Width    int    `toml:"width"`     // Toast width in columns
	ShowHelp bool   `toml:"show_help"` // Show key help in the tui
	Theme    string `toml:"theme"`     // Palette name, bundled or from the themes directory

	// Clipboard overrides the copy command (e.g. "wl-copy"). Empty = auto-detect.
	Clipboard string `toml:"clipboard,omitempty"`
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-kind sound file paths.
type SoundConfig struct {
	Success string `toml:"success"`
	Error   string `toml:"error"`
	Warning string `toml:"warning"`
	Info    string `toml:"info"`
}

// DBusConfig contains desktop notification forwarding settings.
type DBusConfig struct {
	Forward bool   `toml:"forward"`
	AppName string `toml:"app_name"`
}

// Position represents where toasts are stacked.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Timeouts: TimeoutConfig{
			Dwell: Duration(toast.DefaultDwell),
			Exit:  Duration(toast.DefaultExit),
			Kinds: map[string]Duration{},
		},
		Behavior: BehaviorConfig{
			MaxVisible:      DefaultMaxVisible,
			StackDuplicates: false,
			ShowCount:       true,

			InternalNotifications: true,
			InternalInterval:      Duration(DefaultInternalInterval),
		},
		Display: DisplayConfig{
			Position: string(PositionBottomRight),
			Width:    DefaultWidth,
			ShowHelp: true,
			Theme:    "default",
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  DefaultVolume,
		},
		DBus: DBusConfig{
			Forward: false,
			AppName: DefaultAppName,
		},
	}
}

// Path returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toastui", "config.toml")
}

// Load loads configuration from path. If path is empty, the default path is
// used. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeouts.Dwell < 0 {
		return fmt.Errorf("dwell must not be negative, got %s", c.Timeouts.Dwell.Duration())
	}
	if c.Timeouts.Exit < 0 || c.Timeouts.Exit.Duration() > 10*time.Second {
		return fmt.Errorf("exit must be between 0s and 10s, got %s", c.Timeouts.Exit.Duration())
	}
	for name, d := range c.Timeouts.Kinds {
		if _, err := model.ParseKind(name); err != nil {
			return fmt.Errorf("timeouts.kinds: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("timeouts.kinds.%s must not be negative, got %s", name, d.Duration())
		}
	}

	if c.Behavior.MaxVisible < 0 || c.Behavior.MaxVisible > 100 {
		return fmt.Errorf("max_visible must be between 0 and 100, got %d", c.Behavior.MaxVisible)
	}
	if c.Behavior.InternalInterval < 0 {
		return fmt.Errorf("internal_interval must not be negative, got %s", c.Behavior.InternalInterval.Duration())
	}

	if !slices.Contains(ValidPositions(), Position(c.Display.Position)) {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}
	if c.Display.Width < 20 || c.Display.Width > 200 {
		return fmt.Errorf("width must be between 20 and 200, got %d", c.Display.Width)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	return nil
}

// ToastOptions converts the configuration into dispatcher options.
func (c *Config) ToastOptions() toast.Options {
	opts := toast.Options{
		Dwell:           c.Timeouts.Dwell.Duration(),
		Exit:            c.Timeouts.Exit.Duration(),
		MaxVisible:      c.Behavior.MaxVisible,
		StackDuplicates: c.Behavior.StackDuplicates,
	}
	if len(c.Timeouts.Kinds) > 0 {
		opts.KindDwell = make(map[model.Kind]time.Duration, len(c.Timeouts.Kinds))
		for name, d := range c.Timeouts.Kinds {
			if k, err := model.ParseKind(name); err == nil {
				opts.KindDwell[k] = d.Duration()
			}
		}
	}
	return opts
}

// SoundFor returns the sound file path for a kind.
// Expands ~ to home directory.
func (c *Config) SoundFor(kind model.Kind) string {
	var path string
	switch kind {
	case model.KindSuccess:
		path = c.Audio.Sounds.Success
	case model.KindError:
		path = c.Audio.Sounds.Error
	case model.KindWarning:
		path = c.Audio.Sounds.Warning
	default:
		path = c.Audio.Sounds.Info
	}
	return expandPath(path)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
