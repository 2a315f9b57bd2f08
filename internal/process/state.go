package process

import (
	"fmt"
	"sync"
	"time"
)

// State represents the child's lifecycle state.
type State int

const (
	NotStarted State = iota // NOT_STARTED: no child yet
	Running                 // RUNNING: child launched and alive
	Stopping                // STOPPING: shutdown sequence in progress
	Exited                  // EXITED: child is gone; terminal
)

var stateNames = [...]string{
	"NOT_STARTED", "RUNNING", "STOPPING", "EXITED",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("UNKNOWN(%d)", s)
}

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	NotStarted: {Running},
	Running:    {Stopping, Exited},
	Stopping:   {Exited},
	Exited:     {},
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// realClock uses the system clock.
type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns a Clock backed by the system clock.
func RealClock() Clock { return realClock{} }

// StateMachine tracks a single child's lifecycle. A child is started at
// most once; once Exited the machine never leaves that state.
type StateMachine struct {
	mu        sync.Mutex
	state     State
	startedAt time.Time
	exitedAt  time.Time
	requested bool // true if the exit followed a stop request
	clock     Clock
}

// NewStateMachine creates a state machine in NOT_STARTED state. A nil
// clock means the system clock.
func NewStateMachine(clk Clock) *StateMachine {
	if clk == nil {
		clk = RealClock()
	}
	return &StateMachine{state: NotStarted, clock: clk}
}

// State returns the current state.
func (sm *StateMachine) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// Transition attempts a state transition. Returns an error if the
// transition is invalid.
func (sm *StateMachine) Transition(target State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.transitionLocked(target)
}

func (sm *StateMachine) transitionLocked(target State) error {
	for _, a := range validTransitions[sm.state] {
		if a == target {
			sm.applyTransition(target)
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", sm.state, target)
}

func (sm *StateMachine) applyTransition(target State) {
	if target == Exited && sm.state == Stopping {
		sm.requested = true
	}
	sm.state = target

	switch target {
	case Running:
		sm.startedAt = sm.clock.Now()
	case Exited:
		sm.exitedAt = sm.clock.Now()
	}
}

// Started records a successful spawn.
func (sm *StateMachine) Started() error { return sm.Transition(Running) }

// RequestStop records that the shutdown sequence has begun.
func (sm *StateMachine) RequestStop() error { return sm.Transition(Stopping) }

// ProcessExited records that the child is gone. Calling it again once
// Exited is a no-op so the exit watcher and the shutdown path can both
// report it.
func (sm *StateMachine) ProcessExited() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state == Exited {
		return nil
	}
	return sm.transitionLocked(Exited)
}

// Requested reports whether the child exited after a stop request rather
// than on its own.
func (sm *StateMachine) Requested() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.requested
}

// Uptime returns how long the child has been (or was) running.
func (sm *StateMachine) Uptime() time.Duration {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	switch sm.state {
	case NotStarted:
		return 0
	case Exited:
		return sm.exitedAt.Sub(sm.startedAt)
	default:
		d := sm.clock.Now().Sub(sm.startedAt)
		if d < 0 {
			return 0
		}
		return d
	}
}
