// Package logging builds the zap logger shared by every sithlist component.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the level, encoding and destination of the logger.
type Options struct {
	Level   string   // debug, info, warn or error
	Verbose bool     // forces debug level and the console encoder
	Outputs []string // zap output paths, stderr when empty
}

// New builds a production (JSON) logger, or a console logger in verbose mode.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	config := zap.NewProductionConfig()
	if opts.Verbose {
		level = zapcore.DebugLevel
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)

	if len(opts.Outputs) > 0 {
		config.OutputPaths = opts.Outputs
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("sithlist"), nil
}
