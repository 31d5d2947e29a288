// Package logging builds the zap loggers used by shelfkeeper services.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger for the given level ("debug", "info", "warn",
// "error") and format. "json" uses zap's production encoder, "text" the
// development console encoder. Both write to stderr, leaving stdout to
// command output.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var z zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		z = zap.NewProductionConfig()
	case "text":
		z = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q (want json or text)", format)
	}
	z.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := z.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything, for tests and library use.
func Nop() *zap.Logger {
	return zap.NewNop()
}
