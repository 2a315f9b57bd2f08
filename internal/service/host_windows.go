//go:build windows

package service

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/svc"
)

// IsService reports whether the process was started by the service
// control manager.
func IsService() (bool, error) {
	return svc.IsWindowsService()
}

// RunHosted connects to the service control manager and runs ctrl until it
// stops. The returned error is set only when the dispatcher itself fails.
func RunHosted(name string, ctrl *Controller) (int, error) {
	h := &scmHandler{ctrl: ctrl}
	if err := svc.Run(name, h); err != nil {
		return ExitDispatcher, fmt.Errorf("cannot connect to service control manager: %w", err)
	}
	return h.exitCode, nil
}

type scmHandler struct {
	ctrl     *Controller
	exitCode int
}

// Execute implements svc.Handler. Control requests are forwarded to the
// controller, which only posts a signal; state reports travel back through
// a buffered channel so the controller never waits on the SCM.
func (h *scmHandler) Execute(_ []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	statuses := make(chan Status, 16)
	h.ctrl.SetReporter(ReporterFunc(func(s Status) { statuses <- s }))

	done := make(chan int, 1)
	go func() { done <- h.ctrl.Execute(context.Background()) }()

	for {
		select {
		case s := <-statuses:
			if st, ok := toSCM(s); ok {
				changes <- st
			}

		case req := <-r:
			switch req.Cmd {
			case svc.Interrogate:
				h.ctrl.HandleControl(RequestInterrogate)
			case svc.Stop:
				h.ctrl.HandleControl(RequestStop)
			case svc.Shutdown:
				h.ctrl.HandleControl(RequestShutdown)
			}

		case code := <-done:
			h.exitCode = code
			// The final STOPPED report is sent by svc.Run from our return value.
			return code != 0, uint32(code)
		}
	}
}

func toSCM(s Status) (svc.Status, bool) {
	switch s.State {
	case StartPending:
		return svc.Status{State: svc.StartPending, WaitHint: 30000}, true
	case Running:
		return svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown}, true
	case StopPending:
		return svc.Status{State: svc.StopPending, WaitHint: 60000}, true
	default:
		return svc.Status{}, false
	}
}
