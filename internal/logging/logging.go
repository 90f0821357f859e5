// Package logging provides the process-wide zap logger. Subsystems take a
// named child logger (engine, planner, executor, critic, memory, generation,
// retrieval) so log output can be filtered per concern.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the process logger. Level is one of debug/info/warn/error
// (anything else falls back to info). When debug is true a development
// config with console encoding is used instead of production JSON.
func Init(level string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return logger, nil
}

// L returns the process logger. Before Init it is a no-op logger, which
// keeps library packages usable from tests without setup.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a child of the process logger for a subsystem.
func Named(name string) *zap.Logger {
	return L().Named(name)
}
