package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// SettingsEnv names the environment variable that points at a settings file.
const SettingsEnv = "REDISVC_SETTINGS"

// SettingsFileName is looked up next to the binary when nothing else is given.
const SettingsFileName = "redisvc.toml"

// ResolveSettings finds the settings file path by checking, in order:
//  1. Explicit path from --settings (if non-empty)
//  2. REDISVC_SETTINGS environment variable
//  3. redisvc.toml in binDir
//
// An empty path with a nil error means no settings file exists and the
// defaults apply.
func ResolveSettings(explicit, binDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("cannot read settings: %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv(SettingsEnv); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("cannot read settings: %s: %w", env, err)
		}
		return env, nil
	}

	p := filepath.Join(binDir, SettingsFileName)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return "", nil
}
