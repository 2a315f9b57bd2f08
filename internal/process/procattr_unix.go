//go:build unix

package process

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// detachedProcAttr puts the child in its own process group so terminal
// signals aimed at the wrapper do not reach it and it can be killed as a group.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminate kills the child's process group, falling back to the process.
func terminate(p *os.Process) error {
	if err := unix.Kill(-p.Pid, unix.SIGKILL); err == nil {
		return nil
	}
	return p.Kill()
}

// StopSignal asks the child to stop on its own. redis-server handles SIGTERM
// like SHUTDOWN, saving first when persistence is configured.
var StopSignal os.Signal = unix.SIGTERM
