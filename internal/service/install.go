package service

import (
	"fmt"
	"strings"
	"time"
)

// InstallOptions describe a service registration.
type InstallOptions struct {
	ServiceName  string
	ConfigFile   string
	Executable   string // absolute path of the wrapper binary
	SettingsFile string // optional
	// UnitDir is where systemd units are written on POSIX hosts.
	UnitDir string
	// StopTimeout is the wrapper's own stop budget. The systemd unit waits
	// this long plus unitStopMargin before killing the control group.
	StopTimeout time.Duration
}

// Args returns the command-line arguments the service manager passes to
// the wrapper.
func (o InstallOptions) Args() []string {
	args := []string{o.ServiceName, o.ConfigFile}
	if o.SettingsFile != "" {
		args = append(args, "--settings", o.SettingsFile)
	}
	return args
}

// DisplayName is the human-readable service name.
func (o InstallOptions) DisplayName() string {
	return fmt.Sprintf("Redis (%s)", o.ServiceName)
}

func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
