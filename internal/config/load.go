package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kahiteam/redisvc/internal/logging"
)

// maxLineBytes bounds a single configuration line.
const maxLineBytes = 1024 * 1024

// Loader applies redis.conf directives to a ServiceConfig. Directives it
// does not know, or knows with the wrong number of arguments, are skipped so
// that configuration shared with newer servers never stops the service.
type Loader struct {
	// Chdir is called for each "dir" directive. Defaults to os.Chdir.
	Chdir func(dir string) error

	warnings []string
	active   map[string]bool
}

// NewLoader returns a Loader that changes the process working directory on
// "dir" directives, as redis-server does.
func NewLoader() *Loader {
	return &Loader{Chdir: os.Chdir}
}

// Warnings returns the non-fatal problems seen so far.
func (l *Loader) Warnings() []string { return l.warnings }

// Load reads path and applies its directives on top of cfg. Later directives
// override earlier ones. A missing or unreadable top-level file is an error;
// problems inside included files are recorded as warnings.
func (l *Loader) Load(cfg *ServiceConfig, path string) error {
	if l.active == nil {
		l.active = make(map[string]bool)
	}
	if l.Chdir == nil {
		l.Chdir = os.Chdir
	}

	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	if l.active[key] {
		l.warn("%s: include cycle, skipped", path)
		return nil
	}
	l.active[key] = true
	defer delete(l.active, key)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read config: %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		args, err := SplitArgs(line)
		if err != nil {
			l.warn("%s:%d: %v", path, lineNum, err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		l.apply(cfg, path, lineNum, args)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("cannot read config: %s: %w", path, err)
	}
	return nil
}

func (l *Loader) apply(cfg *ServiceConfig, path string, lineNum int, args []string) {
	name := strings.ToLower(args[0])

	switch {
	case name == "port" && len(args) == 2:
		port, err := strconv.Atoi(args[1])
		if err != nil {
			l.warn("%s:%d: invalid port %q", path, lineNum, args[1])
			return
		}
		cfg.Port = port

	case name == "bind" && len(args) == 2:
		cfg.Host = args[1]

	case name == "dir" && len(args) == 2:
		if err := l.Chdir(args[1]); err != nil {
			l.warn("%s:%d: cannot change directory to %s: %v", path, lineNum, args[1], err)
		}

	case name == "loglevel" && len(args) == 2:
		cfg.LogLevel = ParseLogLevel(args[1])

	case name == "logfile" && len(args) == 2:
		if args[1] != "" {
			cfg.LogFilePath = ServiceLogPath(args[1])
		}

	case name == "requirepass" && len(args) == 2:
		cfg.Password = args[1]

	case name == "rename-command" && len(args) == 3:
		switch {
		case strings.EqualFold(args[1], cfg.AuthCommand):
			cfg.AuthCommand = args[2]
		case strings.EqualFold(args[1], cfg.ShutdownCommand):
			cfg.ShutdownCommand = args[2]
		}

	case name == "include" && len(args) == 2:
		if err := l.Load(cfg, args[1]); err != nil {
			l.warn("%s:%d: include: %v", path, lineNum, err)
		}
	}
}

func (l *Loader) warn(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

// ParseLogLevel maps a redis loglevel name to a wrapper log level. Unknown
// names map to warn.
func ParseLogLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return logging.LevelDebug
	case "verbose":
		return logging.LevelVerbose
	case "notice":
		return logging.LevelNotice
	default:
		return logging.LevelWarn
	}
}

// ServiceLogPath derives the wrapper's own log file from the server's: the
// same directory and base name with "-service" before the extension.
func ServiceLogPath(serverLog string) string {
	ext := filepath.Ext(serverLog)
	return strings.TrimSuffix(serverLog, ext) + "-service" + ext
}

// Load reads a redis configuration file on top of the built-in defaults and
// validates the result. Warnings are returned even when err is non-nil.
func Load(path string) (*ServiceConfig, []string, error) {
	cfg := Defaults()
	cfg.ConfigFilePath = path
	return LoadInto(&cfg, NewLoader())
}

// LoadInto applies cfg.ConfigFilePath with the given loader and validates.
func LoadInto(cfg *ServiceConfig, l *Loader) (*ServiceConfig, []string, error) {
	if err := l.Load(cfg, cfg.ConfigFilePath); err != nil {
		return nil, l.Warnings(), err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, l.Warnings(), fmt.Errorf("config validation failed in %s: %w", cfg.ConfigFilePath, errors.Join(errs...))
	}
	return cfg, l.Warnings(), nil
}
