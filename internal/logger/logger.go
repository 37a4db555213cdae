// Package logger provides the single process-wide sugared zap logger used
// throughout imagecraft.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once     sync.Once
	instance *zap.SugaredLogger
)

// Logger returns the shared sugared logger, building it on first use from
// IMAGECRAFT_LOG_LEVEL (debug|info|warn|error, default info).
func Logger() *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv())

		base, err := cfg.Build()
		if err != nil {
			// Fall back to a bare logger rather than panicking the whole CLI.
			base = zap.NewNop()
		}
		instance = base.Sugar()
	})
	return instance
}

func levelFromEnv() zapcore.Level {
	switch os.Getenv("IMAGECRAFT_LOG_LEVEL") {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries. Call from main before exit.
func Sync() {
	if instance != nil {
		_ = instance.Sync()
	}
}
