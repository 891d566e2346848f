// Package logging builds the process zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool

	// JSON selects the JSON encoder; the default is console output.
	JSON bool

	// OutputPaths overrides the default of stderr.
	OutputPaths []string
}

// New builds a logger from the zap production config.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if opts.Verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if !opts.JSON {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if len(opts.OutputPaths) > 0 {
		config.OutputPaths = opts.OutputPaths
		config.ErrorOutputPaths = opts.OutputPaths
	}
	config.Sampling = nil

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}
