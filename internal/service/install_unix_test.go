//go:build !windows

package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstallOptions(t *testing.T) InstallOptions {
	return InstallOptions{
		ServiceName:  "redis-6380",
		ConfigFile:   "/etc/redis/6380.conf",
		Executable:   "/opt/redis/bin/redisvc",
		SettingsFile: "/etc/redis/redisvc.toml",
		UnitDir:      t.TempDir(),
		StopTimeout:  40 * time.Second,
	}
}

func TestRenderUnit(t *testing.T) {
	data, err := RenderUnit(testInstallOptions(t))
	require.NoError(t, err)
	unit := string(data)

	assert.Contains(t, unit, "Description=Redis (redis-6380) managed by redisvc")
	assert.Contains(t, unit, "ExecStart=/opt/redis/bin/redisvc redis-6380 /etc/redis/6380.conf --settings /etc/redis/redisvc.toml")
	assert.Contains(t, unit, "WorkingDirectory=/opt/redis/bin")
	assert.Contains(t, unit, "Type=notify")
	assert.Contains(t, unit, "KillMode=mixed\n")
	assert.Contains(t, unit, "TimeoutStopSec=70\n")
}

func TestStopSeconds(t *testing.T) {
	tests := []struct {
		budget time.Duration
		want   int
	}{
		{0, 30},
		{40 * time.Second, 70},
		{40*time.Second + 200*time.Millisecond, 71},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stopSeconds(tt.budget), "budget %s", tt.budget)
	}
}

func TestRenderUnitQuotesSpaces(t *testing.T) {
	opts := testInstallOptions(t)
	opts.ConfigFile = "/etc/my redis/redis.conf"
	opts.SettingsFile = ""
	data, err := RenderUnit(opts)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ExecStart=/opt/redis/bin/redisvc redis-6380 "/etc/my redis/redis.conf"`+"\n")
}

func TestInstallAndRemove(t *testing.T) {
	opts := testInstallOptions(t)

	path, err := Install(opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.UnitDir, "redis-6380.service"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = Install(opts)
	assert.ErrorContains(t, err, "already exists")

	_, err = Remove(opts)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = Remove(opts)
	assert.ErrorContains(t, err, "not installed")
}
