// File path: internal/common/log.go
package common

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const logHistoryLimit = 500

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	history    = newHistory(logHistoryLimit)
)

// LogEntry is one captured record from the process logger, surfaced over the
// API so a run's log tail is inspectable without shell access.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Logger returns the singleton slog logger. The level comes from LOG_LEVEL;
// everything emitted is mirrored into a bounded in-memory history.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		level := slog.LevelInfo
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		text := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		logger = slog.New(&teeHandler{next: text, history: history})
	})
	return logger
}

// LogHistory returns a copy of the captured entries, oldest first.
func LogHistory() []LogEntry {
	return history.snapshot()
}

type teeHandler struct {
	next    slog.Handler
	history *logHistory
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	h.history.capture(record)
	return h.next.Handle(ctx, record)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{next: h.next.WithAttrs(attrs), history: h.history}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{next: h.next.WithGroup(name), history: h.history}
}

// logHistory is a fixed-size ring of recent entries.
type logHistory struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

func newHistory(size int) *logHistory {
	if size <= 0 {
		size = logHistoryLimit
	}
	return &logHistory{entries: make([]LogEntry, size)}
}

func (h *logHistory) capture(record slog.Record) {
	rec := record.Clone()
	entry := LogEntry{
		Time:    rec.Time.UTC(),
		Level:   strings.ToLower(rec.Level.String()),
		Message: rec.Message,
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	rec.Attrs(func(a slog.Attr) bool {
		if entry.Attributes == nil {
			entry.Attributes = make(map[string]any)
		}
		entry.Attributes[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	h.entries[h.next] = entry
	h.next++
	if h.next == len(h.entries) {
		h.next = 0
		h.full = true
	}
	h.mu.Unlock()
}

func (h *logHistory) snapshot() []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full && h.next == 0 {
		return nil
	}
	var out []LogEntry
	if h.full {
		out = append(out, h.entries[h.next:]...)
	}
	out = append(out, h.entries[:h.next]...)
	copied := make([]LogEntry, len(out))
	copy(copied, out)
	return copied
}
