package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteInstructions(t *testing.T) {
	var buf bytes.Buffer
	WriteInstructions(&buf, InstallOptions{
		ServiceName: "redis",
		ConfigFile:  "conf/redis.conf",
		Executable:  "/opt/redis/redisvc",
	})
	out := buf.String()

	assert.Contains(t, out, "must be started by the service manager")
	assert.Contains(t, out, "redisvc install redis conf/redis.conf")
	assert.Contains(t, out, "redisvc remove redis")
	assert.Contains(t, out, "start")
}

func TestInstallOptionsArgs(t *testing.T) {
	opts := InstallOptions{ServiceName: "redis", ConfigFile: "conf/redis.conf"}
	assert.Equal(t, []string{"redis", "conf/redis.conf"}, opts.Args())

	opts.SettingsFile = "redisvc.toml"
	assert.Equal(t, []string{"redis", "conf/redis.conf", "--settings", "redisvc.toml"}, opts.Args())
	assert.Equal(t, "Redis (redis)", opts.DisplayName())
}
