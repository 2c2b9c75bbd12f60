// Package logging builds the process logger: console output teed with a
// rotating JSON log file, with credentials redacted from messages and fields.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures NewLogger.
type Options struct {
	// Level is a level name (debug, info, warn, error). Empty means info,
	// or debug in development mode.
	Level string

	// Development switches the console to colored human-readable output.
	Development bool

	// File is the path of the JSON log file. Empty disables file output.
	File string

	// Rotation controls file rotation.
	Rotation RotationConfig

	// Console receives console output. Nil means os.Stdout.
	Console io.Writer
}

// NewLogger creates a logger writing to the console and, when configured,
// to a rotating log file. The file always receives JSON.
//
// Example:
//
//	logger := logging.NewLogger(logging.Options{
//	    Level:       cfg.LogLevel,
//	    Development: cfg.DevMode,
//	    File:        cfg.LogFile,
//	})
//	defer logger.Sync()
func NewLogger(opts Options) *zap.Logger {
	return zap.New(NewCore(opts), zap.AddCaller())
}

// NewCore builds the redacting tee core used by NewLogger.
func NewCore(opts Options) zapcore.Core {
	def := zapcore.InfoLevel
	if opts.Development {
		def = zapcore.DebugLevel
	}
	level := ParseLevel(opts.Level, def)

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(opts.Development), zapcore.AddSync(console), level),
	}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(NewEncoderConfig()),
			NewRotatingWriter(opts.File, opts.Rotation),
			level,
		))
	}

	return NewRedactingCore(zapcore.NewTee(cores...))
}
