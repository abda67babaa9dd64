// Package logging provides a small slog-backed structured logging wrapper
// shared by every IAG component, tagging each entry with the subsystem that
// produced it (gateway, authorizer, authserver, resourceserver).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level mirrors slog's severities so callers don't need to import log/slog
// directly just to configure verbosity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaultLogger *slog.Logger

// Init configures the package-level logger. Call once at process startup.
func Init(level Level, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func logger() *slog.Logger {
	if defaultLogger == nil {
		Init(LevelInfo, os.Stderr)
	}
	return defaultLogger
}

func logInternal(level Level, subsystem string, err error, messageFmt string, args ...interface{}) {
	l := logger()
	if !l.Enabled(context.Background(), level.slogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}

// Debug logs a debug-level message tagged with subsystem.
func Debug(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an info-level message tagged with subsystem.
func Info(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warn-level message tagged with subsystem.
func Warn(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error-level message tagged with subsystem and err.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// TruncateID shortens an identifier for safe logging (session ids, codes,
// tokens must never appear in full in logs).
func TruncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
