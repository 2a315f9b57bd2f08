package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kahiteam/redisvc/internal/logging"
	"github.com/kahiteam/redisvc/internal/netutil"
	"github.com/kahiteam/redisvc/internal/process"
)

var (
	// ErrGracefulShutdownFailed wraps every reason the graceful attempt
	// could not be completed.
	ErrGracefulShutdownFailed = errors.New("graceful shutdown failed")
	// ErrAuthFailed means the auth command did not return OK.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrShutdownRejected means the shutdown command got a reply other than OK.
	ErrShutdownRejected = errors.New("shutdown command rejected")
	// ErrForcedTerminationFailed means the child survived forced termination.
	ErrForcedTerminationFailed = errors.New("forced termination failed")
)

// Outcome is how a shutdown sequence ended.
type Outcome int

const (
	OutcomeGraceful           Outcome = iota // shutdown command accepted, child exited
	OutcomeAlreadyExited                     // child was gone before the sequence began
	OutcomeExitedAfterFailure                // graceful attempt failed, child exited within the fallback wait
	OutcomeForced                            // child was terminated
	OutcomeForceFailed                       // termination failed or did not take effect
)

var outcomeNames = [...]string{"graceful", "already_exited", "exited_after_failure", "forced", "force_failed"}

func (o Outcome) String() string {
	if int(o) >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ShutdownResult describes a completed shutdown sequence.
type ShutdownResult struct {
	Outcome Outcome
	// GracefulErr is why the graceful attempt failed; nil if it succeeded.
	GracefulErr error
	// TerminateErr is set when Outcome is OutcomeForceFailed.
	TerminateErr error
	// ExitCode is the child's exit code, or -1 if it never exited.
	ExitCode int
	Duration time.Duration
}

// Success reports whether the child stopped through its own shutdown command.
func (r ShutdownResult) Success() bool {
	return r.Outcome == OutcomeGraceful || r.Outcome == OutcomeAlreadyExited
}

// Shutdown runs the shutdown ladder once: graceful command over the
// protocol, then the stop signal and a bounded wait for natural exit, then
// a single forced termination. It is not interruptible and always returns with an outcome.
func (s *Supervisor) Shutdown() ShutdownResult {
	child := s.current()
	if child == nil {
		return ShutdownResult{Outcome: OutcomeAlreadyExited, GracefulErr: ErrNotStarted, ExitCode: -1}
	}

	start := s.cfg.Clock.Now()
	res := s.shutdown(child)
	res.Duration = s.cfg.Clock.Now().Sub(start)

	if exited(child) {
		s.recordExit(child)
		res.ExitCode = child.ExitCode()
	} else {
		res.ExitCode = -1
	}
	s.cfg.Metrics.ObserveShutdown(s.cfg.Service.ServiceName, res.Outcome.String(), res.Duration.Seconds())
	s.logResult(res)
	return res
}

func (s *Supervisor) shutdown(child process.Child) ShutdownResult {
	if exited(child) {
		return ShutdownResult{Outcome: OutcomeAlreadyExited}
	}
	if err := s.sm.RequestStop(); err != nil {
		s.logger.Warn("unexpected state transition", "error", err)
	}
	s.setStateMetric()

	err := s.graceful()
	if err == nil {
		s.logger.Debug("shutdown command accepted, waiting for redis server to exit", "pid", child.Pid())
		<-child.Done()
		return ShutdownResult{Outcome: OutcomeGraceful}
	}

	s.logger.Warn("graceful shutdown failed, waiting for redis server to exit",
		"error", err, "wait", s.cfg.FallbackWait)
	if serr := child.Signal(process.StopSignal); serr != nil {
		s.logger.Debug("cannot signal redis server", "signal", process.StopSignal.String(), "error", serr)
	}
	select {
	case <-child.Done():
		return ShutdownResult{Outcome: OutcomeExitedAfterFailure, GracefulErr: err}
	case <-s.cfg.Clock.After(s.cfg.FallbackWait):
	}

	s.logger.Warn("redis server did not exit, terminating", "pid", child.Pid())
	s.cfg.Metrics.IncForcedTermination(s.cfg.Service.ServiceName)
	if terr := child.Terminate(); terr != nil {
		return ShutdownResult{
			Outcome:      OutcomeForceFailed,
			GracefulErr:  err,
			TerminateErr: fmt.Errorf("%w: %w", ErrForcedTerminationFailed, terr),
		}
	}

	select {
	case <-child.Done():
		return ShutdownResult{Outcome: OutcomeForced, GracefulErr: err}
	case <-s.cfg.Clock.After(s.cfg.KillWait):
		return ShutdownResult{
			Outcome:      OutcomeForceFailed,
			GracefulErr:  err,
			TerminateErr: fmt.Errorf("%w: still running after %s", ErrForcedTerminationFailed, s.cfg.KillWait),
		}
	}
}

// graceful connects to the child, authenticates if a password is set, and
// sends the shutdown command. A closed connection in place of a reply to
// the shutdown command counts as success.
//
// The dial and auth steps are bounded by ConnectTimeout. The shutdown reply
// is not: redis-server saves before it answers or hangs up, and a save can
// take longer than any fixed bound.
func (s *Supervisor) graceful() error {
	svc := s.cfg.Service
	addr := netutil.Address(svc.Host, svc.Port)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectTimeout)
	defer cancel()

	c, err := s.cfg.Dialer.Dial(ctx, svc.Host, svc.Port, s.cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("%w: cannot connect to %s: %w", ErrGracefulShutdownFailed, addr, err)
	}
	defer c.Close()

	if svc.HasPassword() {
		status, err := c.Do(ctx, svc.AuthCommand, svc.Password)
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrGracefulShutdownFailed, ErrAuthFailed, err)
		}
		if status != "OK" {
			return fmt.Errorf("%w: %w: unexpected reply %q", ErrGracefulShutdownFailed, ErrAuthFailed, status)
		}
	}

	status, err := c.Do(context.Background(), svc.ShutdownCommand)
	if err != nil {
		if errors.Is(err, ErrNoReply) {
			return nil
		}
		var rerr *ReplyError
		if errors.As(err, &rerr) {
			return fmt.Errorf("%w: %w: %s", ErrGracefulShutdownFailed, ErrShutdownRejected, rerr.Msg)
		}
		return fmt.Errorf("%w: %s: %w", ErrGracefulShutdownFailed, svc.ShutdownCommand, err)
	}
	if status != "OK" {
		return fmt.Errorf("%w: %w: unexpected reply %q", ErrGracefulShutdownFailed, ErrShutdownRejected, status)
	}
	return nil
}

func (s *Supervisor) logResult(res ShutdownResult) {
	attrs := []any{"outcome", res.Outcome.String(), "duration", res.Duration}
	switch res.Outcome {
	case OutcomeGraceful, OutcomeAlreadyExited:
		s.logger.Log(context.Background(), logging.LevelNotice, "redis server stopped", attrs...)
	case OutcomeExitedAfterFailure:
		s.logger.Warn("redis server stopped after graceful shutdown failed", attrs...)
	case OutcomeForced:
		s.logger.Warn("redis server terminated", attrs...)
	case OutcomeForceFailed:
		s.logger.Error("cannot terminate redis server", append(attrs, "error", res.TerminateErr)...)
	}
}

func exited(c process.Child) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}
