// Package notify delivers short, non-blocking user notices about a
// transcription batch. Every notice is also written to the log.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is one user-visible message.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Note    string    `json:"note,omitempty"`
	BatchID string    `json:"batch_id,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier receives notices. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notice)

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Multi fans a notice out to every non-nil notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// Log writes notices to a slog logger at the matching level.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a notifier backed by logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify implements Notifier.
func (l *Log) Notify(ctx context.Context, n Notice) {
	var attrs []slog.Attr
	if n.Note != "" {
		attrs = append(attrs, slog.String("note", n.Note))
	}
	if n.BatchID != "" {
		attrs = append(attrs, slog.String("batch_id", n.BatchID))
	}
	l.logger.LogAttrs(ctx, n.Level.slogLevel(), n.Message, attrs...)
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
