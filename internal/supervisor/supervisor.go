// Package supervisor owns the redis child process: it starts it, waits for
// it to exit or for a stop request, and drives the shutdown ladder
// (graceful command, bounded wait, forced termination).
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kahiteam/redisvc/internal/config"
	"github.com/kahiteam/redisvc/internal/logging"
	"github.com/kahiteam/redisvc/internal/metrics"
	"github.com/kahiteam/redisvc/internal/process"
)

// ErrNotStarted is returned when an operation needs a running child.
var ErrNotStarted = errors.New("redis server has not been started")

// Config configures a Supervisor.
type Config struct {
	Service *config.ServiceConfig
	Dir     string // working directory for the child; empty inherits

	Spawner process.Spawner // defaults to ExecSpawner
	Dialer  Dialer          // defaults to RedisDialer
	Clock   process.Clock   // defaults to the system clock
	Logger  *slog.Logger
	Metrics *metrics.Collector

	FallbackWait   time.Duration // wait for exit after a failed graceful attempt
	KillWait       time.Duration // wait for exit after forced termination
	ConnectTimeout time.Duration // dial and per-command timeout
}

// ExitKind says why Run returned.
type ExitKind int

const (
	StopRequested ExitKind = iota
	ChildExited
)

// ExitReason is the result of Run. Code is the child's exit code when
// Kind is ChildExited.
type ExitReason struct {
	Kind ExitKind
	Code int
}

func (r ExitReason) String() string {
	if r.Kind == ChildExited {
		return fmt.Sprintf("child exited with code %d", r.Code)
	}
	return "stop requested"
}

// Status is a point-in-time view of the child.
type Status struct {
	State    process.State
	Pid      int
	Uptime   time.Duration
	ExitCode int
}

// Supervisor manages a single child process. Start, Run and Shutdown are
// called in that order from one goroutine; Status may be called from any.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger
	sm     *process.StateMachine

	mu    sync.Mutex
	child process.Child
}

// New creates a supervisor. Zero-valued optional fields get defaults.
func New(cfg Config) *Supervisor {
	if cfg.Spawner == nil {
		cfg.Spawner = &process.ExecSpawner{}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = RedisDialer
	}
	if cfg.Clock == nil {
		cfg.Clock = process.RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.FallbackWait <= 0 {
		cfg.FallbackWait = config.DefaultFallbackWait
	}
	if cfg.KillWait <= 0 {
		cfg.KillWait = config.DefaultKillWait
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = config.DefaultConnectTimeout
	}
	return &Supervisor{
		cfg:    cfg,
		logger: cfg.Logger,
		sm:     process.NewStateMachine(cfg.Clock),
	}
}

// Start spawns the child as "<serviceName> <configFile>". Failures are
// returned as *process.StartError.
func (s *Supervisor) Start() (process.Child, error) {
	svc := s.cfg.Service
	spawn := process.SpawnConfig{
		Command: svc.ChildBinaryPath,
		Argv0:   svc.ServiceName,
		Args:    []string{svc.ConfigFilePath},
		Dir:     s.cfg.Dir,
	}

	if s.sm.State() != process.NotStarted {
		return nil, fmt.Errorf("cannot start %s: child is %s", svc.ChildBinaryPath, s.sm.State())
	}

	s.logger.Debug("starting redis server", "command", spawn.CommandLine(), "binary", spawn.Command)
	child, err := s.cfg.Spawner.Spawn(spawn)
	if err != nil {
		var se *process.StartError
		if !errors.As(err, &se) {
			err = &process.StartError{Command: spawn.Command, Err: err}
		}
		s.logger.Error("cannot start redis server", "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.child = child
	s.mu.Unlock()

	if err := s.sm.Started(); err != nil {
		return nil, err
	}
	s.cfg.Metrics.IncChildStart(svc.ServiceName)
	s.setStateMetric()
	s.logger.Log(context.Background(), logging.LevelNotice, "redis server started", "pid", child.Pid())
	return child, nil
}

// Run blocks until the child exits on its own or stop is closed, whichever
// comes first. It never polls.
func (s *Supervisor) Run(stop <-chan struct{}) ExitReason {
	child := s.current()
	if child == nil {
		return ExitReason{Kind: ChildExited, Code: -1}
	}

	select {
	case <-child.Done():
		code := child.ExitCode()
		s.recordExit(child)
		return ExitReason{Kind: ChildExited, Code: code}
	case <-stop:
		return ExitReason{Kind: StopRequested}
	}
}

// Status returns the child's current state.
func (s *Supervisor) Status() Status {
	st := Status{State: s.sm.State(), Uptime: s.sm.Uptime(), ExitCode: -1}
	if child := s.current(); child != nil {
		st.Pid = child.Pid()
		if st.State == process.Exited {
			st.ExitCode = child.ExitCode()
		}
	}
	return st
}

func (s *Supervisor) current() process.Child {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child
}

// recordExit moves the state machine to Exited and updates metrics.
// Safe to call more than once.
func (s *Supervisor) recordExit(child process.Child) {
	if s.sm.State() == process.Exited {
		return
	}
	if err := s.sm.ProcessExited(); err != nil {
		s.logger.Warn("unexpected state transition", "error", err)
	}
	name := s.cfg.Service.ServiceName
	s.cfg.Metrics.IncChildExit(name, s.sm.Requested())
	s.cfg.Metrics.SetChildUptime(name, s.sm.Uptime().Seconds())
	s.setStateMetric()
	s.logger.Debug("redis server exited", "pid", child.Pid(), "code", child.ExitCode())
}

func (s *Supervisor) setStateMetric() {
	s.cfg.Metrics.SetChildState(s.cfg.Service.ServiceName, int(s.sm.State()))
}
