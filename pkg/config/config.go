// Package config loads wakeup.yaml, the static configuration shared by the
// desktop app and the alarm service. User settings live in preferences, not
// here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file name inside the config directory
	FileName = "wakeup.yaml"

	// EnvPath overrides the config file location
	EnvPath = "WAKEUP_CONFIG"
)

const defaultConfigYAML = `# wakeup configuration
log_level: info

# SQLite database shared with the alarm service (alarmd).
# Relative paths resolve against the config directory.
database_path: alarmd.db

# Directory with <sound>.wav files replacing the built-in tones, for example
# sunrise.wav. Relative paths resolve against the config directory.
sounds_dir: sounds

# How often the app checks the clock. Must stay below one minute.
tick_interval: 5s

# Clock changes bigger than these since the last foreground rebuild all schedules.
clock_jump:
  backward: 2m
  forward: 24h

daemon:
  poll_interval: 1s
  # Command alarmd runs to bring the app up when an alarm is due.
  launch_command: ["wakeup"]
  # How long alarmd plays the alarm itself if the app cannot be launched.
  ring_timeout: 10m
  # Set to false to simulate a host that denies exact alarms.
  exact_alarm_permission: true
`

// ClockJump bounds the tolerated wall clock movement between observations
type ClockJump struct {
	Backward time.Duration `yaml:"backward"`
	Forward  time.Duration `yaml:"forward"`
}

// Daemon configures the always-on alarm service
type Daemon struct {
	PollInterval         time.Duration `yaml:"poll_interval"`
	LaunchCommand        []string      `yaml:"launch_command"`
	RingTimeout          time.Duration `yaml:"ring_timeout"`
	ExactAlarmPermission bool          `yaml:"exact_alarm_permission"`
}

// Config models wakeup.yaml.
type Config struct {
	LogLevel     string        `yaml:"log_level"`
	DatabasePath string        `yaml:"database_path"`
	SoundsDir    string        `yaml:"sounds_dir"`
	TickInterval time.Duration `yaml:"tick_interval"`
	ClockJump    ClockJump     `yaml:"clock_jump"`
	Daemon       Daemon        `yaml:"daemon"`

	// Dir is the directory the file was loaded from
	Dir string `yaml:"-"`
}

// Default returns the configuration encoded in the default file.
func Default() Config {
	var c Config
	// The embedded document is static; a decode failure is a programming error.
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &c); err != nil {
		panic("config: default yaml: " + err.Error())
	}
	return c
}

// DefaultDir returns the per-user config directory for wakeup.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: user config dir: %w", err)
	}
	return filepath.Join(base, "wakeup"), nil
}

// Path resolves the config file location from the environment or dir.
func Path(dir string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return filepath.Join(dir, FileName)
}

// Load reads the config at path, writing the commented default first if the
// file does not exist. Missing keys keep their defaults.
func Load(path string) (Config, error) {
	if err := ensureFile(path); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Dir = filepath.Dir(path)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the values the runtime depends on.
func (c Config) Validate() error {
	if c.TickInterval <= 0 || c.TickInterval >= time.Minute {
		return fmt.Errorf("config: tick_interval must be in (0, 1m), got %s", c.TickInterval)
	}
	if c.ClockJump.Backward <= 0 || c.ClockJump.Forward <= 0 {
		return errors.New("config: clock_jump bounds must be positive")
	}
	if c.DatabasePath == "" {
		return errors.New("config: database_path is required")
	}
	if c.Daemon.PollInterval <= 0 {
		return errors.New("config: daemon.poll_interval must be positive")
	}
	if len(c.Daemon.LaunchCommand) == 0 {
		return errors.New("config: daemon.launch_command is required")
	}
	return nil
}

// DatabaseFile returns the database path resolved against Dir.
func (c Config) DatabaseFile() string {
	return c.resolve(c.DatabasePath)
}

// SoundsPath returns the sound override directory resolved against Dir.
func (c Config) SoundsPath() string {
	return c.resolve(c.SoundsDir)
}

func (c Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: ensure dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write default: %w", err)
	}
	return nil
}
