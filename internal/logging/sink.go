package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// glyphs marks each severity in a log line, indexed by severityIndex.
const glyphs = ".-*##"

// timeLayout is "dd Mon HH:MM:SS", the same stamp redis-server writes.
const timeLayout = "02 Jan 15:04:05"

// OpenFunc opens the log file for appending.
type OpenFunc func(path string) (io.WriteCloser, error)

// OpenAppend opens path in append mode, creating it if needed.
func OpenAppend(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// FileConfig configures a FileHandler.
type FileConfig struct {
	Path     string
	Level    slog.Leveler
	Rotation RotationConfig
	Open     OpenFunc         // defaults to OpenAppend
	Now      func() time.Time // defaults to time.Now
}

// FileHandler is an slog.Handler that appends one line per record:
//
//	[pid] dd Mon HH:MM:SS <glyph> message key=value ...
//
// The file is opened and closed for every record so that external rotation
// or truncation is picked up without signalling the service.
type FileHandler struct {
	mu       *sync.Mutex
	path     string
	level    slog.Leveler
	rotation RotationConfig
	open     OpenFunc
	now      func() time.Time
	pid      int
	prefix   string // preformatted WithAttrs output
	groups   string // dotted group prefix for record attrs
}

// NewFileHandler creates a handler writing to cfg.Path.
func NewFileHandler(cfg FileConfig) *FileHandler {
	h := &FileHandler{
		mu:       &sync.Mutex{},
		path:     cfg.Path,
		level:    cfg.Level,
		rotation: cfg.Rotation,
		open:     cfg.Open,
		now:      cfg.Now,
		pid:      os.Getpid(),
	}
	if h.level == nil {
		h.level = LevelDebug
	}
	if h.open == nil {
		h.open = OpenAppend
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Path returns the log file path.
func (h *FileHandler) Path() string { return h.path }

// Enabled reports whether records at level reach the file.
func (h *FileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats r and appends it to the file.
func (h *FileHandler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = h.now()
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%d] %s %c %s", h.pid, t.Format(timeLayout), glyphs[severityIndex(r.Level)], r.Message)
	buf.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&buf, h.groups, a)
		return true
	})
	buf.WriteByte('\n')

	return h.write(buf.Bytes())
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *FileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	for _, a := range attrs {
		appendAttr(&buf, h.groups, a)
	}
	h2 := *h
	h2.prefix = h.prefix + buf.String()
	return &h2
}

// WithGroup returns a handler that qualifies later attrs with name.
func (h *FileHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = h.groups + name + "."
	return &h2
}

// Log is the printf-style entry point. Records below the threshold are
// dropped without touching the file. An open or write failure is returned to
// the caller and is never fatal.
func (h *FileHandler) Log(level slog.Level, format string, args ...any) error {
	if !h.Enabled(context.Background(), level) {
		return nil
	}
	r := slog.NewRecord(h.now(), level, fmt.Sprintf(format, args...), 0)
	return h.Handle(context.Background(), r)
}

func (h *FileHandler) write(p []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rotation.Enabled() {
		// Rotation problems must not lose the line.
		_ = RotateIfNeeded(h.path, h.rotation)
	}

	f, err := h.open(h.path)
	if err != nil {
		return fmt.Errorf("cannot open log file: %s: %w", h.path, err)
	}
	_, werr := f.Write(p)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("cannot write log file: %s: %w", h.path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("cannot close log file: %s: %w", h.path, cerr)
	}
	return nil
}

func severityIndex(l slog.Level) int {
	switch {
	case l < LevelVerbose:
		return 0
	case l < LevelNotice:
		return 1
	case l < LevelWarn:
		return 2
	case l < LevelError:
		return 3
	default:
		return 4
	}
}

func appendAttr(buf *bytes.Buffer, groups string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		prefix := groups
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, prefix, ga)
		}
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(groups)
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	buf.WriteString(v)
}
