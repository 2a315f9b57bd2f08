package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RotationConfig configures size-based rotation of the service log.
type RotationConfig struct {
	MaxBytes int64 // 0 disables rotation
	Backups  int   // 0 truncates in place
}

// Enabled reports whether rotation applies at all.
func (c RotationConfig) Enabled() bool { return c.MaxBytes > 0 }

// RotateIfNeeded rotates path when it has grown to MaxBytes. A missing file
// is not an error.
func RotateIfNeeded(path string, cfg RotationConfig) error {
	if !cfg.Enabled() {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() < cfg.MaxBytes {
		return nil
	}
	return rotate(path, cfg.Backups)
}

// rotate shifts path.N-1 to path.N down to path to path.1, dropping the
// oldest. Gaps in the backup sequence are expected.
func rotate(path string, backups int) error {
	if backups == 0 {
		return os.Truncate(path, 0)
	}
	_ = os.Remove(backupName(path, backups))
	for i := backups - 1; i >= 1; i-- {
		_ = os.Rename(backupName(path, i), backupName(path, i+1))
	}
	if err := os.Rename(path, backupName(path, 1)); err != nil {
		return fmt.Errorf("cannot rotate log file: %s: %w", path, err)
	}
	return nil
}

func backupName(path string, n int) string {
	return path + "." + strconv.Itoa(n)
}

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses "50MB", "10KB", "100B" or a bare byte count. An empty
// string and "0" mean unlimited.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			mult = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}
