//go:build !windows

package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
	"time"

	"github.com/google/renameio/v2"
)

// DefaultUnitDir is where Install writes systemd units.
const DefaultUnitDir = "/etc/systemd/system"

// unitStopMargin covers the unbounded wait for the server's final save.
const unitStopMargin = 30 * time.Second

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description={{.Description}}
After=network.target

[Service]
Type=notify
ExecStart={{.ExecStart}}
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
KillMode=mixed
TimeoutStopSec={{.TimeoutStopSec}}

[Install]
WantedBy=multi-user.target
`))

// UnitPath returns the systemd unit path for opts.
func UnitPath(opts InstallOptions) string {
	dir := opts.UnitDir
	if dir == "" {
		dir = DefaultUnitDir
	}
	return filepath.Join(dir, opts.ServiceName+".service")
}

// RenderUnit returns the systemd unit for opts.
func RenderUnit(opts InstallOptions) ([]byte, error) {
	var buf bytes.Buffer
	err := unitTemplate.Execute(&buf, map[string]string{
		"Description":      opts.DisplayName() + " managed by redisvc",
		"ExecStart":        quoteArgs(append([]string{opts.Executable}, opts.Args()...)),
		"WorkingDirectory": filepath.Dir(opts.Executable),
		"TimeoutStopSec":   strconv.Itoa(stopSeconds(opts.StopTimeout)),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot render unit: %w", err)
	}
	return buf.Bytes(), nil
}

// stopSeconds rounds the unit stop timeout up to whole seconds. systemd
// sends SIGTERM to the wrapper only; SIGKILL reaches the server once this
// runs out.
func stopSeconds(budget time.Duration) int {
	total := budget + unitStopMargin
	return int((total + time.Second - 1) / time.Second)
}

// Install writes a systemd unit for the service. It refuses to overwrite an
// existing unit.
func Install(opts InstallOptions) (string, error) {
	path := UnitPath(opts)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("service %s already exists: %s", opts.ServiceName, path)
	}
	data, err := RenderUnit(opts)
	if err != nil {
		return path, err
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return path, fmt.Errorf("cannot write unit: %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes the systemd unit for the service.
func Remove(opts InstallOptions) (string, error) {
	path := UnitPath(opts)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return path, fmt.Errorf("service %s is not installed: %s", opts.ServiceName, path)
		}
		return path, fmt.Errorf("cannot remove unit: %s: %w", path, err)
	}
	return path, nil
}
