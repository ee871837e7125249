// Package log provides the structured logging interface used by persona.
//
// The interface mirrors log/slog so that backends can be swapped; the default
// backend is zerolog. Estimators obtain a named logger once and attach their
// model name, while the analysis stages attach the dataset shape and stage name:
//
//	logger := log.GetLoggerWithName("RandomForestClassifier").With(
//	    log.ModelNameKey, "RandomForestClassifier",
//	)
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 2320,
//	    log.FeaturesKey, 7,
//	)
package log

import (
	"context"
)

// Logger is a structured logger compatible with the log/slog calling convention.
//
// Fields are alternating key/value pairs. Error additionally accepts an error
// value as its first field, in which case the error (and its stack, when it
// carries one) is attached under ErrAttrKey.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general progress.
	Info(msg string, fields ...any)

	// Warn logs a condition that does not stop the run.
	Warn(msg string, fields ...any)

	// Error logs a failure.
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level are emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
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

// LoggerProvider creates loggers sharing one backend and level.
type LoggerProvider interface {
	// GetLogger returns the default logger.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for all loggers of this provider.
	SetLevel(level Level)
}
