// Package history keeps a rolling plain-text log of recent exchanges.
//
// The log behaves like a session without session ids: a write that comes
// more than Window after the previous one starts the file over.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	Window = 60 * time.Second

	userLabel      = "USER"
	assistantLabel = "GLADOS"
)

type Option func(*Log)

func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// Log is the single writer of the context log file.
type Log struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
	mu     sync.Mutex
}

func New(path string, logger *slog.Logger, opts ...Option) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{
		path:   path,
		now:    time.Now,
		logger: logger.With("component", "history"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Log) Path() string {
	return l.path
}

// ShouldReset reports whether the next write must truncate the log.
func ShouldReset(now, lastWrite time.Time, exists bool) bool {
	return !exists || now.Sub(lastWrite) > Window
}

// Append records one exchange. Errors are logged, never returned.
func (l *Log) Append(utterance, reply string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.append(utterance, reply); err != nil {
		l.logger.Error("context log write failed", "path", l.path, "err", err)
	}
}

func (l *Log) append(utterance, reply string) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	lastWrite, exists := l.lastWrite()
	if ShouldReset(l.now(), lastWrite, exists) {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(l.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	_, werr := fmt.Fprintf(f, "%s: %s\n%s: %s\n", userLabel, utterance, assistantLabel, reply)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("write: %w", werr)
	}
	return cerr
}

// lastWrite stats the file fresh on every call. A stat failure counts as
// an absent file.
func (l *Log) lastWrite() (time.Time, bool) {
	info, err := os.Stat(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("context log stat failed", "path", l.path, "err", err)
		}
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Recent returns the log body while it is still inside the window, else "".
func (l *Log) Recent() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	lastWrite, exists := l.lastWrite()
	if ShouldReset(l.now(), lastWrite, exists) {
		return ""
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		l.logger.Warn("context log read failed", "path", l.path, "err", err)
		return ""
	}
	return string(data)
}
