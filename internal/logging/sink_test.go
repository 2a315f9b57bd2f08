package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingOpener struct {
	mu    sync.Mutex
	calls int
	err   error
	buf   strings.Builder
}

func (o *countingOpener) open(string) (io.WriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return nopCloser{&o.buf}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func fixedNow() time.Time {
	return time.Date(2024, time.March, 7, 9, 5, 3, 0, time.Local)
}

func TestFileHandlerLineFormat(t *testing.T) {
	o := &countingOpener{}
	h := NewFileHandler(FileConfig{Path: "x.log", Open: o.open, Now: fixedNow})

	require.NoError(t, h.Log(LevelNotice, "Started redis (host=%s port=%d)", "127.0.0.1", 6379))

	want := "[" + strconv.Itoa(os.Getpid()) + "] 07 Mar 09:05:03 * Started redis (host=127.0.0.1 port=6379)\n"
	assert.Equal(t, want, o.buf.String())
}

func TestFileHandlerGlyphs(t *testing.T) {
	tests := []struct {
		level slog.Level
		glyph string
	}{
		{LevelDebug, "."},
		{LevelVerbose, "-"},
		{LevelNotice, "*"},
		{LevelWarn, "#"},
		{LevelError, "#"},
	}
	for _, tt := range tests {
		o := &countingOpener{}
		h := NewFileHandler(FileConfig{Path: "x.log", Open: o.open, Now: fixedNow})
		require.NoError(t, h.Log(tt.level, "m"))
		assert.Contains(t, o.buf.String(), " "+tt.glyph+" m\n", "level %s", LevelName(tt.level))
	}
}

func TestFileHandlerBelowThresholdNeverOpens(t *testing.T) {
	o := &countingOpener{}
	h := NewFileHandler(FileConfig{Path: "x.log", Level: LevelWarn, Open: o.open})

	require.NoError(t, h.Log(LevelDebug, "a"))
	require.NoError(t, h.Log(LevelVerbose, "b"))
	require.NoError(t, h.Log(LevelNotice, "c"))

	logger := slog.New(h)
	logger.Info("d")
	logger.Debug("e")

	assert.Equal(t, 0, o.calls)

	require.NoError(t, h.Log(LevelWarn, "f"))
	assert.Equal(t, 1, o.calls)
}

func TestFileHandlerOpensPerRecord(t *testing.T) {
	o := &countingOpener{}
	logger := slog.New(NewFileHandler(FileConfig{Path: "x.log", Open: o.open}))

	logger.Info("one")
	logger.Warn("two")
	logger.Error("three")

	assert.Equal(t, 3, o.calls)
	assert.Equal(t, 3, strings.Count(o.buf.String(), "\n"))
}

func TestFileHandlerOpenFailureIsReported(t *testing.T) {
	o := &countingOpener{err: errors.New("access denied")}
	h := NewFileHandler(FileConfig{Path: "locked.log", Open: o.open})

	err := h.Log(LevelError, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked.log")

	// Through slog the error is swallowed; the caller keeps running.
	slog.New(h).Error("still fine")
	assert.Equal(t, 2, o.calls)
}

func TestFileHandlerAttrs(t *testing.T) {
	o := &countingOpener{}
	logger := slog.New(NewFileHandler(FileConfig{Path: "x.log", Open: o.open})).
		With("run", "abc").
		WithGroup("child")

	logger.Info("spawned", "pid", 42, "cmd", "redis-server conf/redis.conf")

	line := o.buf.String()
	assert.Contains(t, line, " spawned run=abc child.pid=42 ")
	assert.Contains(t, line, `child.cmd="redis-server conf/redis.conf"`)
}

func TestFileHandlerAppendsToRealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redis-service.log")
	logger := slog.New(NewFileHandler(FileConfig{Path: path}))

	logger.Info("first")
	// Simulate external truncation between records.
	require.NoError(t, os.Truncate(path, 0))
	logger.Info("second")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lineRe := regexp.MustCompile(`^\[\d+\] \d{2} [A-Z][a-z]{2} \d{2}:\d{2}:\d{2} - second\n$`)
	assert.Regexp(t, lineRe, string(data))
}

func TestFileHandlerRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.log")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0644))

	h := NewFileHandler(FileConfig{
		Path:     path,
		Rotation: RotationConfig{MaxBytes: 50, Backups: 2},
	})
	require.NoError(t, h.Log(LevelWarn, "after rotation"))

	_, err := os.Stat(path + ".1")
	require.NoError(t, err, "expected rotated backup")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after rotation")
}
