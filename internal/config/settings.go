package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kahiteam/redisvc/internal/logging"
)

// Settings are wrapper-only knobs that have no place in redis.conf. All of
// them are optional.
type Settings struct {
	ChildBinary    string         `toml:"child_binary"`
	FallbackWait   Duration       `toml:"fallback_wait"`
	KillWait       Duration       `toml:"kill_wait"`
	ConnectTimeout Duration       `toml:"connect_timeout"`
	PIDFile        string         `toml:"pid_file"`
	LogMaxBytes    string         `toml:"log_max_bytes"`
	LogBackups     int            `toml:"log_backups"`
	WatchConfig    bool           `toml:"watch_config"`
	Status         StatusSettings `toml:"status"`
}

// StatusSettings configure the optional HTTP status listener.
type StatusSettings struct {
	Listen   string `toml:"listen"`
	Username string `toml:"username"`
	Password string `toml:"password"` // bcrypt hash
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadSettings reads a TOML settings file, applies defaults, validates, and
// returns the settings along with any warnings (e.g. unknown keys).
func LoadSettings(path string) (*Settings, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read settings: %s: %w", path, err)
	}

	return LoadSettingsBytes(data, path)
}

// LoadSettingsBytes parses TOML from raw bytes. The path argument is used
// only for error messages.
func LoadSettingsBytes(data []byte, path string) (*Settings, []string, error) {
	var s Settings
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, nil, fmt.Errorf("settings parse error in %s: %w", path, err)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown settings key: %s", strings.Join(key, ".")))
	}

	ApplyDefaults(&s)

	if errs := ValidateSettings(&s); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, warnings, fmt.Errorf("settings validation failed in %s:\n  %s",
			path, strings.Join(msgs, "\n  "))
	}

	return &s, warnings, nil
}

// LogRotation returns the service log rotation policy. Settings that passed
// validation always parse.
func (s *Settings) LogRotation() logging.RotationConfig {
	n, _ := logging.ParseSize(s.LogMaxBytes)
	return logging.RotationConfig{MaxBytes: n, Backups: s.LogBackups}
}

// StopTimeout is the longest the shutdown ladder spends on its bounded
// steps: connecting, the fallback wait and the kill wait.
func (s *Settings) StopTimeout() time.Duration {
	return s.ConnectTimeout.Duration + s.FallbackWait.Duration + s.KillWait.Duration
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() *Settings {
	var s Settings
	ApplyDefaults(&s)
	return &s
}
