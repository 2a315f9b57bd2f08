package service

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
)

// WriteInstructions explains how to register, start and remove the
// service. It is printed when the wrapper is launched by hand.
func WriteInstructions(w io.Writer, opts InstallOptions) {
	exe := filepath.Base(opts.Executable)
	if exe == "" || exe == "." {
		exe = "redisvc"
	}
	name := opts.ServiceName

	fmt.Fprintf(w, "%s must be started by the service manager, not from a console.\n\n", exe)
	if runtime.GOOS == "windows" {
		fmt.Fprintf(w, "To register the service:\n")
		fmt.Fprintf(w, "    %s install %s %s\n", exe, name, opts.ConfigFile)
		fmt.Fprintf(w, "  or\n")
		fmt.Fprintf(w, "    sc create %s binPath= \"%s\" start= auto\n\n", name, quoteArgs(append([]string{opts.Executable}, opts.Args()...)))
		fmt.Fprintf(w, "To start it:\n")
		fmt.Fprintf(w, "    sc start %s\n\n", name)
		fmt.Fprintf(w, "To remove it:\n")
		fmt.Fprintf(w, "    %s remove %s\n", exe, name)
		fmt.Fprintf(w, "  or\n")
		fmt.Fprintf(w, "    sc delete %s\n", name)
		return
	}
	fmt.Fprintf(w, "To register the service:\n")
	fmt.Fprintf(w, "    %s install %s %s\n", exe, name, opts.ConfigFile)
	fmt.Fprintf(w, "    systemctl daemon-reload\n\n")
	fmt.Fprintf(w, "To start it:\n")
	fmt.Fprintf(w, "    systemctl start %s\n\n", name)
	fmt.Fprintf(w, "To remove it:\n")
	fmt.Fprintf(w, "    systemctl stop %s\n", name)
	fmt.Fprintf(w, "    %s remove %s\n\n", exe, name)
	fmt.Fprintf(w, "To run it in the foreground anyway, pass --foreground.\n")
}
