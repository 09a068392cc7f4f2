package epictree

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with epictree-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithBasename adds a source basename field to the logger.
func (l *Logger) WithBasename(basename string) *Logger {
	return &Logger{
		Logger: l.Logger.With("basename", basename),
	}
}

// LogIngest logs an export ingestion. An export with zero epochs is
// legal but almost always a caller mistake, so it warns.
func (l *Logger) LogIngest(ctx context.Context, epochs int) {
	if epochs == 0 {
		l.WarnContext(ctx, "export contains no epochs")
		return
	}
	l.InfoContext(ctx, "export ingested",
		"epochs", epochs,
	)
}

// LogBuild logs a tree build. Building over zero epochs succeeds with an
// empty leaf root but warns.
func (l *Logger) LogBuild(ctx context.Context, epochs, splitters, leaves int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "tree build failed",
			"splitters", splitters,
			"error", err,
		)
	case epochs == 0:
		l.WarnContext(ctx, "tree built over empty store",
			"splitters", splitters,
		)
	default:
		l.DebugContext(ctx, "tree built",
			"splitters", splitters,
			"leaves", leaves,
		)
	}
}

// LogMaskSave logs a selection mask save.
func (l *Logger) LogMaskSave(ctx context.Context, path string, epochs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "mask save failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "mask saved",
			"path", path,
			"epochs", epochs,
		)
	}
}

// LogMaskLoad logs a selection mask load.
func (l *Logger) LogMaskLoad(ctx context.Context, path string, matched, unmatched int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "mask load failed",
			"path", path,
			"error", err,
		)
	} else if unmatched > 0 {
		l.WarnContext(ctx, "mask loaded with unmatched epochs",
			"path", path,
			"matched", matched,
			"unmatched", unmatched,
		)
	} else {
		l.InfoContext(ctx, "mask loaded",
			"path", path,
			"matched", matched,
		)
	}
}

// LogExtract logs a data matrix extraction.
func (l *Logger) LogExtract(ctx context.Context, device string, rows, cols int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "matrix extraction failed",
			"device", device,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "matrix extracted",
			"device", device,
			"rows", rows,
			"cols", cols,
		)
	}
}
