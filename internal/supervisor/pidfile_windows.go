//go:build windows

package supervisor

import "os"

// renameio does not support Windows; a PID file is small enough that a
// torn write is not a practical concern.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}
