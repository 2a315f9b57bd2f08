// Package process is the process-control capability the supervisor is
// written against: spawn a child, wait for it, signal it, terminate it.
// Platform details live in the procattr_* files.
package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// SpawnConfig holds the parameters needed to spawn a child process.
type SpawnConfig struct {
	Command string   // path to the executable
	Argv0   string   // name the child sees as argv[0]; defaults to Command
	Args    []string // arguments after argv[0]
	Dir     string   // working directory
	Env     []string // environment (KEY=VALUE); nil inherits
}

// CommandLine renders the argv the child will see, for logs.
func (c SpawnConfig) CommandLine() string {
	argv0 := c.Argv0
	if argv0 == "" {
		argv0 = c.Command
	}
	line := argv0
	for _, a := range c.Args {
		line += " " + a
	}
	return line
}

// Child is a running child process.
type Child interface {
	Pid() int
	// Done is closed once the child has exited and ExitCode is valid.
	Done() <-chan struct{}
	ExitCode() int
	// Signal delivers a control signal without waiting.
	Signal(os.Signal) error
	// Terminate forcibly ends the child (and its process group where the
	// platform has one).
	Terminate() error
}

// Spawner creates child processes. Implementations include ExecSpawner
// (real) and MockSpawner (testing).
type Spawner interface {
	Spawn(cfg SpawnConfig) (Child, error)
}

// StartError means the child binary could not be launched.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start %s: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ExecSpawner spawns real OS processes via os/exec, detached from any
// console and without stdio.
type ExecSpawner struct{}

type execChild struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu       sync.Mutex
	exitCode int
	waitErr  error
}

// Spawn starts a real child process with the given config.
func (s *ExecSpawner) Spawn(cfg SpawnConfig) (Child, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	if cfg.Argv0 != "" {
		cmd.Args[0] = cfg.Argv0
	}
	cmd.Dir = cfg.Dir
	if cfg.Env != nil {
		cmd.Env = cfg.Env
	}
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Command: cfg.Command, Err: err}
	}

	c := &execChild{cmd: cmd, done: make(chan struct{}), exitCode: -1}
	go c.wait()
	return c, nil
}

func (c *execChild) wait() {
	err := c.cmd.Wait()

	c.mu.Lock()
	c.waitErr = err
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		c.exitCode = 0
	case errors.As(err, &exitErr):
		c.exitCode = exitErr.ExitCode()
	default:
		c.exitCode = -1
	}
	c.mu.Unlock()

	close(c.done)
}

func (c *execChild) Pid() int                   { return c.cmd.Process.Pid }
func (c *execChild) Done() <-chan struct{}      { return c.done }
func (c *execChild) Signal(sig os.Signal) error { return c.cmd.Process.Signal(sig) }
func (c *execChild) Terminate() error           { return terminate(c.cmd.Process) }

func (c *execChild) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// MockSpawner is a test double for Spawner.
type MockSpawner struct {
	mu         sync.Mutex
	SpawnFn    func(cfg SpawnConfig) (Child, error)
	SpawnCalls []SpawnConfig
}

// Spawn records the call and delegates to SpawnFn.
func (m *MockSpawner) Spawn(cfg SpawnConfig) (Child, error) {
	m.mu.Lock()
	m.SpawnCalls = append(m.SpawnCalls, cfg)
	n := len(m.SpawnCalls)
	fn := m.SpawnFn
	m.mu.Unlock()

	if fn != nil {
		return fn(cfg)
	}
	return NewMockChild(1000 + n), nil
}

// Calls returns a copy of the recorded spawn configs.
func (m *MockSpawner) Calls() []SpawnConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SpawnConfig(nil), m.SpawnCalls...)
}

// MockChild is a test double for Child. It runs until Exit is called.
// Terminate calls are counted; by default a terminate makes the child exit
// with code 1 unless TerminateFn overrides it.
type MockChild struct {
	pid  int
	done chan struct{}
	once sync.Once

	mu              sync.Mutex
	exitCode        int
	signals         []os.Signal
	terminateCalls  int
	TerminateFn     func() error
	IgnoreTerminate bool
}

// NewMockChild creates a running MockChild with the given PID.
func NewMockChild(pid int) *MockChild {
	return &MockChild{pid: pid, done: make(chan struct{}), exitCode: -1}
}

// Exit simulates the child exiting with code. Later calls are ignored.
func (c *MockChild) Exit(code int) {
	c.once.Do(func() {
		c.mu.Lock()
		c.exitCode = code
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *MockChild) Pid() int              { return c.pid }
func (c *MockChild) Done() <-chan struct{} { return c.done }

func (c *MockChild) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

func (c *MockChild) Signal(sig os.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, sig)
	return nil
}

func (c *MockChild) Terminate() error {
	c.mu.Lock()
	c.terminateCalls++
	fn := c.TerminateFn
	ignore := c.IgnoreTerminate
	c.mu.Unlock()

	if fn != nil {
		if err := fn(); err != nil {
			return err
		}
	}
	if !ignore {
		c.Exit(1)
	}
	return nil
}

// TerminateCalls returns how many times Terminate was invoked.
func (c *MockChild) TerminateCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminateCalls
}

// Signals returns the signals delivered so far.
func (c *MockChild) Signals() []os.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]os.Signal(nil), c.signals...)
}
