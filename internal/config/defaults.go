package config

import "time"

// Default timings for the shutdown ladder.
const (
	DefaultFallbackWait   = 30 * time.Second
	DefaultKillWait       = 5 * time.Second
	DefaultConnectTimeout = 5 * time.Second
)

// ApplyDefaults fills in zero-value fields with their default values.
func ApplyDefaults(s *Settings) {
	if s.ChildBinary == "" {
		s.ChildBinary = DefaultChildBinary()
	}
	if s.FallbackWait.Duration == 0 {
		s.FallbackWait.Duration = DefaultFallbackWait
	}
	if s.KillWait.Duration == 0 {
		s.KillWait.Duration = DefaultKillWait
	}
	if s.ConnectTimeout.Duration == 0 {
		s.ConnectTimeout.Duration = DefaultConnectTimeout
	}
	if s.LogMaxBytes == "" {
		s.LogMaxBytes = "0"
	}
}
