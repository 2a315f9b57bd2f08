package supervisor

import (
	"fmt"
	"os"
	"strconv"
)

// WritePIDFile records pid at path. An empty path is a no-op.
func WritePIDFile(path string, pid int) error {
	if path == "" {
		return nil
	}
	data := []byte(strconv.Itoa(pid) + "\n")
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write PID file: %s: %w", path, err)
	}
	return nil
}

// RemovePIDFile removes the PID file if it exists.
func RemovePIDFile(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
