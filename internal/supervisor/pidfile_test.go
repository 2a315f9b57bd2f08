package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestWritePIDFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redisvc.pid")

	if err := WritePIDFile(path, os.Getpid()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		t.Fatalf("pid file content %q is not a number", pidStr)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestWritePIDFileEmpty(t *testing.T) {
	if err := WritePIDFile("", 1); err != nil {
		t.Fatal(err)
	}
}

func TestWritePIDFileBadDir(t *testing.T) {
	err := WritePIDFile(filepath.Join(t.TempDir(), "missing", "x.pid"), 1)
	if err == nil || !strings.Contains(err.Error(), "cannot write PID file") {
		t.Fatalf("err = %v", err)
	}
}

func TestRemovePIDFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redisvc.pid")

	_ = WritePIDFile(path, 42)
	RemovePIDFile(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("pid file should be removed")
	}
	RemovePIDFile("")
}
