//go:build windows

package process

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// detachedProcAttr starts the child without a console window and detached
// from the wrapper's console.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW | windows.DETACHED_PROCESS,
	}
}

// terminate calls TerminateProcess on the child.
func terminate(p *os.Process) error {
	return p.Kill()
}

// StopSignal is the closest Windows has to a polite stop request. A detached
// child cannot receive it, so Signal reports an error and callers move on.
var StopSignal os.Signal = os.Interrupt
