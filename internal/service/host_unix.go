//go:build !windows

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sys/unix"
)

// IsService reports whether the process was started by a service manager:
// systemd sets INVOCATION_ID or NOTIFY_SOCKET, and a classic init script
// leaves the process parented to PID 1. Redirected stdin alone does not
// count.
func IsService() (bool, error) {
	if os.Getenv("INVOCATION_ID") != "" || os.Getenv("NOTIFY_SOCKET") != "" {
		return true, nil
	}
	return os.Getppid() == 1, nil
}

// RunHosted runs ctrl until it stops, translating SIGTERM and SIGINT into
// stop requests and SIGHUP into a status re-report.
func RunHosted(name string, ctrl *Controller) (int, error) {
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGHUP)
	defer signal.Stop(sigs)

	n := newNotifier(ctrl.opts.Console, sdNotify)
	ctrl.SetReporter(n)
	defer n.close()

	done := make(chan int, 1)
	go func() { done <- ctrl.Execute(context.Background()) }()

	for {
		select {
		case sig := <-sigs:
			if sig == unix.SIGHUP {
				ctrl.HandleControl(RequestInterrogate)
				continue
			}
			ctrl.HandleControl(RequestStop)
		case code := <-done:
			return code, nil
		}
	}
}

func sdNotify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

// notifier mirrors run state to systemd. Report only queues the status; a
// single goroutine writes to the notification socket in report order.
type notifier struct {
	queue  chan Status
	done   chan struct{}
	send   func(state string) error
	logger *slog.Logger
}

func newNotifier(logger *slog.Logger, send func(string) error) *notifier {
	n := &notifier{
		queue:  make(chan Status, 32),
		done:   make(chan struct{}),
		send:   send,
		logger: logger,
	}
	go n.run()
	return n
}

// Report implements Reporter. It never waits on the socket; when the
// queue is full the status is dropped.
func (n *notifier) Report(s Status) {
	select {
	case n.queue <- s:
	default:
		n.logger.Warn("service manager notification dropped", "state", s.State.String())
	}
}

// close flushes queued reports. No Report may follow.
func (n *notifier) close() {
	close(n.queue)
	<-n.done
}

func (n *notifier) run() {
	defer close(n.done)
	for s := range n.queue {
		if err := n.send(notifyState(s)); err != nil {
			n.logger.Warn("cannot notify service manager", "state", s.State.String(), "error", err)
		}
	}
}

func notifyState(s Status) string {
	switch s.State {
	case Running:
		return daemon.SdNotifyReady + "\nSTATUS=running"
	case StopPending:
		return daemon.SdNotifyStopping + "\nSTATUS=stopping"
	case Stopped:
		return "STATUS=stopped\nEXIT_STATUS=" + strconv.Itoa(s.ExitCode)
	default:
		return "STATUS=" + s.State.String()
	}
}
