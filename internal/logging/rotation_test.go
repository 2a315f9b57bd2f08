package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"50MB", 50 << 20, false},
		{"1GB", 1 << 30, false},
		{"10kb", 10 << 10, false},
		{"100B", 100, false},
		{"100", 100, false},
		{" 2 MB ", 2 << 20, false},
		{"0", 0, false},
		{"", 0, false},
		{"lots", 0, true},
		{"-5MB", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestRotateShiftsBackups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "svc.log")

	for i := 0; i < 4; i++ {
		if err := os.WriteFile(logPath, []byte{byte('a' + i)}, 0644); err != nil {
			t.Fatal(err)
		}
		if err := rotate(logPath, 3); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatal("current file should have been renamed")
	}
	// Newest first; the first write fell off the end.
	for i, want := range []string{"d", "c", "b"} {
		data, err := os.ReadFile(backupName(logPath, i+1))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != want {
			t.Errorf("backup %d = %q, want %q", i+1, data, want)
		}
	}
	if _, err := os.Stat(backupName(logPath, 4)); !os.IsNotExist(err) {
		t.Error("more backups kept than configured")
	}
}

func TestRotateTruncatesWithoutBackups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "svc.log")
	if err := os.WriteFile(logPath, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := rotate(logPath, 0); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty file after truncation, got %d bytes", len(data))
	}
}

func TestRotateIfNeeded(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "svc.log")
	if err := os.WriteFile(logPath, make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}

	if err := RotateIfNeeded(logPath, RotationConfig{MaxBytes: 200, Backups: 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(logPath + ".1"); !os.IsNotExist(err) {
		t.Fatal("should not rotate under the limit")
	}

	if err := RotateIfNeeded(logPath, RotationConfig{MaxBytes: 50, Backups: 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Fatal("expected rotation to create .1 backup")
	}
}

func TestRotateIfNeededDisabledOrMissing(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "absent.log")
	if err := RotateIfNeeded(logPath, RotationConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := RotateIfNeeded(logPath, RotationConfig{MaxBytes: 1}); err != nil {
		t.Fatal(err)
	}
}
