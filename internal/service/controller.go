// Package service adapts a host service manager (the Windows service control
// manager, or systemd and friends on POSIX) to the supervisor: it loads the
// configuration, mirrors run state to the host, turns control requests into
// a stop signal, and maps every way the run can end to an exit code.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kahiteam/redisvc/internal/api"
	"github.com/kahiteam/redisvc/internal/config"
	"github.com/kahiteam/redisvc/internal/logging"
	"github.com/kahiteam/redisvc/internal/metrics"
	"github.com/kahiteam/redisvc/internal/netutil"
	"github.com/kahiteam/redisvc/internal/process"
	"github.com/kahiteam/redisvc/internal/supervisor"
	"github.com/kahiteam/redisvc/internal/version"
)

// Exit codes, one per failure category.
const (
	ExitOK         = 0
	ExitNotService = 1 // started outside a service manager
	ExitDispatcher = 2 // could not connect to the service manager
	ExitConfig     = 3 // configuration missing or invalid
	ExitStart      = 4 // child could not be launched
)

// Request is a control request from the host service manager.
type Request int

const (
	RequestStop Request = iota
	RequestShutdown
	RequestInterrogate
)

var requestNames = [...]string{"stop", "shutdown", "interrogate"}

func (r Request) String() string {
	if int(r) >= 0 && int(r) < len(requestNames) {
		return requestNames[r]
	}
	return fmt.Sprintf("request(%d)", int(r))
}

// Options configure a Controller. Only ServiceName and ConfigFile come from
// the command line; everything else has a default.
type Options struct {
	ServiceName string
	ConfigFile  string
	// BinDir is the directory the wrapper runs from. The working directory
	// is set to it before and after loading the config, and relative child
	// binary and log paths resolve against it.
	BinDir   string
	Settings *config.Settings

	Spawner process.Spawner
	Dialer  supervisor.Dialer
	Clock   process.Clock
	Metrics *metrics.Collector

	// Console receives messages that must be seen before the log file is
	// known. nil discards them.
	Console *slog.Logger
	// Chdir changes the working directory. Defaults to os.Chdir.
	Chdir func(string) error
	// OpenLog opens the log file for each record. Defaults to append mode.
	OpenLog logging.OpenFunc
}

// Controller runs one service lifetime: StartPending, Running, StopPending,
// Stopped. It is not reusable.
type Controller struct {
	opts  Options
	runID string

	stop     chan struct{}
	stopOnce sync.Once
	state    stateRecord

	mu     sync.Mutex
	svc    *config.ServiceConfig
	sup    *supervisor.Supervisor
	logger *slog.Logger
}

// NewController creates a controller. Call SetReporter before Execute to
// mirror state to a host service manager.
func NewController(opts Options) *Controller {
	if opts.Settings == nil {
		opts.Settings = config.DefaultSettings()
	}
	if opts.Console == nil {
		opts.Console = logging.Discard()
	}
	if opts.Chdir == nil {
		opts.Chdir = os.Chdir
	}
	c := &Controller{
		opts:   opts,
		runID:  uuid.NewString(),
		stop:   make(chan struct{}),
		logger: logging.Discard(),
	}
	c.state.onChange = func(s RunState) {
		opts.Metrics.SetServiceState(c.serviceName(), int(s))
	}
	return c
}

// SetReporter sets where run state changes are mirrored.
func (c *Controller) SetReporter(r Reporter) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.reporter = r
}

// RunID identifies this service lifetime in logs.
func (c *Controller) RunID() string { return c.runID }

// State returns the current run state and exit code.
func (c *Controller) State() Status { return c.state.get() }

// HandleControl posts a control request. It never blocks on the
// supervisor or performs I/O beyond reporting state, so it is safe to call
// from a service manager callback.
func (c *Controller) HandleControl(req Request) {
	switch req {
	case RequestStop, RequestShutdown:
		c.state.set(StopPending, 0)
		c.stopOnce.Do(func() { close(c.stop) })
	case RequestInterrogate:
		c.state.reportCurrent()
	}
}

// Execute runs the service to completion and returns its exit code.
// Cancelling ctx is equivalent to a stop request.
func (c *Controller) Execute(ctx context.Context) int {
	c.state.set(StartPending, 0)
	defer context.AfterFunc(ctx, func() { c.HandleControl(RequestStop) })()

	svc, warnings, err := c.loadConfig()
	logger := c.openLog(svc)
	c.setLogger(logger)
	for _, w := range warnings {
		logger.Warn("configuration warning", "warning", w)
	}
	if err != nil {
		logger.Error("cannot load configuration", "error", err)
		c.opts.Console.Error("cannot load configuration", "error", err)
		return c.finish(ExitConfig)
	}
	c.mu.Lock()
	c.svc = svc
	c.mu.Unlock()

	logger.Log(ctx, logging.LevelNotice, "service starting",
		"service", svc.ServiceName,
		"config", svc.ConfigFilePath,
		"address", netutil.Address(svc.Host, svc.Port),
		"pid", os.Getpid(),
		"version", version.Version)
	c.opts.Metrics.SetBuildInfo(version.Version, version.Go())

	if err := supervisor.WritePIDFile(c.opts.Settings.PIDFile, os.Getpid()); err != nil {
		logger.Warn("cannot write PID file", "error", err)
	}
	defer supervisor.RemovePIDFile(c.opts.Settings.PIDFile)

	sup := supervisor.New(supervisor.Config{
		Service:        svc,
		Dir:            c.opts.BinDir,
		Spawner:        c.opts.Spawner,
		Dialer:         c.opts.Dialer,
		Clock:          c.opts.Clock,
		Logger:         logger,
		Metrics:        c.opts.Metrics,
		FallbackWait:   c.opts.Settings.FallbackWait.Duration,
		KillWait:       c.opts.Settings.KillWait.Duration,
		ConnectTimeout: c.opts.Settings.ConnectTimeout.Duration,
	})
	c.mu.Lock()
	c.sup = sup
	c.mu.Unlock()

	aux := c.startAuxiliaries(ctx, svc, logger)
	defer stopAuxiliaries(aux, logger)

	select {
	case <-c.stop:
		logger.Log(ctx, logging.LevelNotice, "stop requested before the redis server was started")
		return c.finish(ExitOK)
	default:
	}

	c.state.set(Running, 0)
	if _, err := sup.Start(); err != nil {
		return c.finish(ExitStart)
	}

	reason := sup.Run(c.stop)
	code := ExitOK
	switch reason.Kind {
	case supervisor.StopRequested:
		logger.Log(ctx, logging.LevelNotice, "stop requested, shutting down redis server")
		sup.Shutdown()
	case supervisor.ChildExited:
		logger.Error("redis server exited unexpectedly; check the server log and configuration",
			"code", reason.Code)
		code = reason.Code
		if code < 0 {
			// Killed by a signal, or the code was lost.
			code = 1
		}
	}
	return c.finish(code)
}

func (c *Controller) finish(code int) int {
	c.mu.Lock()
	logger := c.logger
	c.mu.Unlock()
	logger.Log(context.Background(), logging.LevelNotice, "service stopped", "exit_code", code)
	c.state.set(Stopped, code)
	return code
}

// loadConfig builds the ServiceConfig from defaults, the command line and
// redis.conf, leaving the working directory at BinDir.
func (c *Controller) loadConfig() (*config.ServiceConfig, []string, error) {
	svc := config.Defaults()
	if c.opts.ServiceName != "" {
		svc.ServiceName = c.opts.ServiceName
	}
	if c.opts.ConfigFile != "" {
		svc.ConfigFilePath = c.opts.ConfigFile
	}
	if c.opts.Settings.ChildBinary != "" {
		svc.ChildBinaryPath = c.opts.Settings.ChildBinary
	}
	svc.ChildBinaryPath = c.resolve(svc.ChildBinaryPath)

	c.enterBinDir()
	loader := &config.Loader{Chdir: c.opts.Chdir}
	loaded, warnings, err := config.LoadInto(&svc, loader)
	c.enterBinDir()

	if err != nil {
		return &svc, warnings, err
	}
	return loaded, warnings, nil
}

func (c *Controller) enterBinDir() {
	if c.opts.BinDir == "" {
		return
	}
	if err := c.opts.Chdir(c.opts.BinDir); err != nil {
		c.opts.Console.Warn("cannot change directory", "dir", c.opts.BinDir, "error", err)
	}
}

// resolve makes a relative path absolute against BinDir.
func (c *Controller) resolve(path string) string {
	if c.opts.BinDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.opts.BinDir, path)
}

// openLog builds the file logger. A config that failed to load still
// carries the default log path.
func (c *Controller) openLog(svc *config.ServiceConfig) *slog.Logger {
	h := logging.NewFileHandler(logging.FileConfig{
		Path:     c.resolve(svc.LogFilePath),
		Level:    svc.LogLevel,
		Rotation: c.opts.Settings.LogRotation(),
		Open:     c.opts.OpenLog,
	})
	return slog.New(h).With("run", c.runID)
}

func (c *Controller) setLogger(l *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

func (c *Controller) serviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svc != nil {
		return c.svc.ServiceName
	}
	if c.opts.ServiceName != "" {
		return c.opts.ServiceName
	}
	return config.DefaultServiceName
}

// Healthy implements api.StatusSource.
func (c *Controller) Healthy() bool {
	return c.state.get().State == Running
}

// ServiceStatus implements api.StatusSource.
func (c *Controller) ServiceStatus() api.ServiceStatus {
	st := c.state.get()
	out := api.ServiceStatus{
		Service:   c.serviceName(),
		RunID:     c.runID,
		State:     st.State.String(),
		StateCode: int(st.State),
		PID:       os.Getpid(),
	}

	c.mu.Lock()
	svc, sup := c.svc, c.sup
	c.mu.Unlock()

	if svc != nil {
		out.Address = netutil.Address(svc.Host, svc.Port)
		out.Config = svc.ConfigFilePath
		out.LogFile = c.resolve(svc.LogFilePath)
	}
	if sup != nil {
		cs := sup.Status()
		out.Child = api.ChildStatus{
			State:     cs.State.String(),
			StateCode: int(cs.State),
			PID:       cs.Pid,
			Uptime:    int64(cs.Uptime / time.Second),
			ExitCode:  cs.ExitCode,
		}
	}
	return out
}
