// Package version holds build-time version metadata.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/kahiteam/redisvc/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = ""
)

// Go returns the toolchain version the binary was built with.
func Go() string {
	if GoVersion != "" {
		return GoVersion
	}
	return runtime.Version()
}

// Lines renders the version report printed by "redisvc version".
func Lines(name string) []string {
	return []string{
		fmt.Sprintf("%s %s", name, Version),
		fmt.Sprintf("  commit:  %s", Commit),
		fmt.Sprintf("  built:   %s", Date),
		fmt.Sprintf("  go:      %s", Go()),
		fmt.Sprintf("  os/arch: %s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
