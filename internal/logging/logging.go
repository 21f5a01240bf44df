// Package logging installs a zap logger as the backend of log/slog.
package logging

import (
	"fmt"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger writing to stderr. verbose forces debug level and the
// human-readable development encoder.
func New(level string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Setup makes a zap-backed logger the slog default and returns a function that
// flushes it.
func Setup(level string, verbose bool) (func(), error) {
	logger, err := New(level, verbose)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(zapslog.NewHandler(logger.Core())))
	return func() { _ = logger.Sync() }, nil
}
