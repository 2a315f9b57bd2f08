// Package config loads the redis.conf directives the service wrapper cares
// about and the wrapper's own TOML settings.
package config

import (
	"log/slog"
	"runtime"

	"github.com/kahiteam/redisvc/internal/logging"
)

// Built-in defaults, matching what redis-server assumes when a directive is absent.
const (
	DefaultServiceName     = "redis"
	DefaultConfigFile      = "conf/redis.conf"
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 6379
	DefaultAuthCommand     = "AUTH"
	DefaultShutdownCommand = "SHUTDOWN"
	DefaultLogFile         = "redis-service.log"
)

// ServiceConfig is everything the wrapper needs to launch, reach and stop
// the child redis-server. It is built once at startup and not mutated after.
type ServiceConfig struct {
	ServiceName     string
	ChildBinaryPath string
	ConfigFilePath  string

	// Host and Port are where the child listens. The wrapper only dials them.
	Host string
	Port int

	// Password is empty when requirepass is not set.
	Password string

	// AuthCommand and ShutdownCommand follow rename-command directives.
	// An empty name means the server has the command disabled.
	AuthCommand     string
	ShutdownCommand string

	LogFilePath string
	LogLevel    slog.Level
}

// DefaultChildBinary returns the redis-server executable name for this platform.
func DefaultChildBinary() string {
	if runtime.GOOS == "windows" {
		return "redis-server.exe"
	}
	return "redis-server"
}

// Defaults returns a ServiceConfig populated with built-in defaults.
func Defaults() ServiceConfig {
	return ServiceConfig{
		ServiceName:     DefaultServiceName,
		ChildBinaryPath: DefaultChildBinary(),
		ConfigFilePath:  DefaultConfigFile,
		Host:            DefaultHost,
		Port:            DefaultPort,
		AuthCommand:     DefaultAuthCommand,
		ShutdownCommand: DefaultShutdownCommand,
		LogFilePath:     DefaultLogFile,
		LogLevel:        logging.LevelDebug,
	}
}

// HasPassword reports whether an authentication step is required.
func (c *ServiceConfig) HasPassword() bool { return c.Password != "" }

// Masked returns a copy safe for printing.
func (c ServiceConfig) Masked() ServiceConfig {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}
