// Package log provides a structured logging interface for the model-selection step.
//
// The interface is slog-shaped (msg + key/value pairs) and backed by zerolog.
// A TestLogger captures JSON lines in memory for assertions in tests.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("trainer").With(
//	    log.ModelNameKey, "Random Forest",
//	)
//	logger.Info("Best model selected",
//	    log.R2ScoreKey, 0.87,
//	)
package log

import (
	"context"
)

// Logger is the logging surface used across the module. Fields are
// alternating key/value pairs, keys preferably taken from attributes.go.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)

	// Error は先頭の引数が error ならスタックトレース付きで ErrAttrKey に記録し、
	// 残りを key/value として扱う。
	//
	//	logger.Error("Model selection failed", err, log.OperationKey, log.OperationSelect)
	Error(msg string, fields ...any)

	// With は fields を常に付与する子 Logger を返す
	With(fields ...any) Logger

	Enabled(ctx context.Context, level Level) bool
}

// Level uses slog's numeric values so the two can be converted by a cast.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// LoggerProvider is the factory behind GetLogger / GetLoggerWithName.
// SetProvider swaps it, which is how tests capture output.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
