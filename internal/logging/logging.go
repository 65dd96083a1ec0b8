// Package logging builds the structured logger shared across the crawl
// pipeline.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON-to-stderr zap.Logger at info level, or debug level
// when debug is true (main sets it from WETCRAWL_DEBUG via DebugEnabled).
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// DebugEnabled reports whether WETCRAWL_DEBUG is set to a truthy value.
func DebugEnabled() bool {
	v := os.Getenv("WETCRAWL_DEBUG")
	return v == "1" || v == "true"
}
