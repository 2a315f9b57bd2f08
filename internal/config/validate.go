package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kahiteam/redisvc/internal/logging"
)

var (
	// ErrAuthDisabled means requirepass is set but the AUTH command was
	// renamed to "", so the wrapper could never authenticate.
	ErrAuthDisabled = errors.New("the AUTH command cannot be disabled while requirepass is set; enable it in the configuration file")

	// ErrShutdownDisabled means the SHUTDOWN command was renamed to "", so
	// the child can never be stopped gracefully.
	ErrShutdownDisabled = errors.New("the SHUTDOWN command cannot be disabled; enable it in the configuration file")
)

// Validate checks cfg for conditions that make the service unusable and
// returns all of them.
func Validate(cfg *ServiceConfig) []error {
	var errs []error

	if cfg.HasPassword() && cfg.AuthCommand == "" {
		errs = append(errs, ErrAuthDisabled)
	}
	if cfg.ShutdownCommand == "" {
		errs = append(errs, ErrShutdownDisabled)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port))
	}
	if strings.TrimSpace(cfg.Host) == "" {
		errs = append(errs, errors.New("bind address is empty"))
	}

	return errs
}

// ValidateSettings checks wrapper settings for semantic errors.
func ValidateSettings(s *Settings) []error {
	var errs []error

	for _, d := range []struct {
		name string
		val  Duration
	}{
		{"fallback_wait", s.FallbackWait},
		{"kill_wait", s.KillWait},
		{"connect_timeout", s.ConnectTimeout},
	} {
		if d.val.Duration < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", d.name, d.val))
		}
	}

	if s.Status.Username != "" && s.Status.Password == "" {
		errs = append(errs, errors.New("status.password is required when status.username is set"))
	}
	if _, err := logging.ParseSize(s.LogMaxBytes); err != nil {
		errs = append(errs, fmt.Errorf("log_max_bytes: %w", err))
	}
	if s.LogBackups < 0 {
		errs = append(errs, fmt.Errorf("log_backups must not be negative, got %d", s.LogBackups))
	}

	return errs
}
