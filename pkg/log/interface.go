// Package log provides the structured logging surface used by every stage of
// the collision-severity workflow.
//
// The Logger interface mirrors the shape of log/slog so that the backend can be
// swapped (zerolog by default, a capturing TestLogger in tests) without touching
// call sites. Stages attach the standard keys from attributes.go so that a run
// can be followed end to end in the JSON output:
//
//	logger := log.GetLoggerWithName("pipeline").With(
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Dataset loaded",
//	    log.StageKey, log.StageLoad,
//	    log.SamplesKey, frame.Nrow(),
//	)
package log

import (
	"context"
	"log/slog"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. With returns a child logger
// carrying the given fields on every subsequent record.
type Logger interface {
	// Debug logs a debug-level message. Used for per-iteration solver progress
	// and other detail that is normally disabled.
	Debug(msg string, fields ...any)

	// Info logs an info-level message, e.g. stage completion with row counts.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message for conditions the run survives,
	// such as dropped rows or a solver hitting its iteration limit.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. When the first field is an error it
	// is attached as the record's error, including its stack trace if the
	// error carries one:
	//
	//	logger.Error("Stage failed", err, log.StageKey, log.StageFit)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Callers use it to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the slog name of the level, e.g. "WARN" or "INFO+2".
func (l Level) String() string { return slog.Level(l).String() }

// LoggerProvider creates loggers. The package-level GetLogger and
// GetLoggerWithName delegate to the installed provider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for loggers created afterwards.
	SetLevel(level Level)
}
