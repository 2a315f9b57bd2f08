package service

import (
	"fmt"
	"sync"
)

// RunState is the wrapper's own lifecycle state as reported to the host
// service manager.
type RunState int

const (
	StartPending RunState = iota + 1 // START_PENDING: loading config and starting the child
	Running                          // RUNNING: child is up
	StopPending                      // STOP_PENDING: stop requested, shutdown in progress
	Stopped                          // STOPPED: terminal
)

var runStateNames = map[RunState]string{
	StartPending: "START_PENDING",
	Running:      "RUNNING",
	StopPending:  "STOP_PENDING",
	Stopped:      "STOPPED",
}

func (s RunState) String() string {
	if n, ok := runStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// validTransitions defines allowed run state transitions. Stopped is
// reachable from every state because a fatal error can end the service at
// any point.
var validTransitions = map[RunState][]RunState{
	0:            {StartPending},
	StartPending: {Running, StopPending, Stopped},
	Running:      {StopPending, Stopped},
	StopPending:  {Stopped},
	Stopped:      {},
}

// Status is one report to the service manager.
type Status struct {
	State    RunState
	ExitCode int
}

// Reporter mirrors run state changes to the host service manager. Report
// must not block for long; it can be called from the control handler.
type Reporter interface {
	Report(Status)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Status)

// Report calls f.
func (f ReporterFunc) Report(s Status) { f(s) }

// stateRecord is the run state shared between the control handler and the
// control goroutine. Every successful transition is reported.
type stateRecord struct {
	mu       sync.Mutex
	state    RunState
	exitCode int
	reporter Reporter
	onChange func(RunState)
}

func (r *stateRecord) get() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{State: r.state, ExitCode: r.exitCode}
}

// set moves to target and reports it. It returns false, without
// reporting, when the transition is not allowed.
func (r *stateRecord) set(target RunState, exitCode int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	allowed := false
	for _, a := range validTransitions[r.state] {
		if a == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	r.state = target
	r.exitCode = exitCode
	if r.reporter != nil {
		r.reporter.Report(Status{State: target, ExitCode: exitCode})
	}
	if r.onChange != nil {
		r.onChange(target)
	}
	return true
}

// reportCurrent re-sends the current state, for interrogation requests.
func (r *stateRecord) reportCurrent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reporter != nil && r.state != 0 {
		r.reporter.Report(Status{State: r.state, ExitCode: r.exitCode})
	}
}
