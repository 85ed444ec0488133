// Package logging builds the zap logger shared by every command.
//
// Structured JSON goes to a size-rotated file; warnings and errors are also
// echoed to stderr in console form so an interactive user sees them.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// File is the rotated log file. Empty disables file logging.
	File string

	// Level applies to the file sink ("debug", "info", "warn", "error").
	Level string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console receives warnings and errors. Nil means os.Stderr; use
	// io.Discard to silence it.
	Console io.Writer

	// Verbose lowers the console threshold to debug.
	Verbose bool
}

// New returns a logger and a function that flushes it.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var cores []zapcore.Core

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(enc),
			zapcore.AddSync(rotator),
			level,
		))
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleLevel := zapcore.WarnLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(console),
		consoleLevel,
	))

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, func() { _ = logger.Sync() }, nil
}
