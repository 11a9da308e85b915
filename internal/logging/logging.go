// Package logging builds the zap loggers used across barrage.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
//
// Level: debug, info, warn, error (default info)
// Format: "console" (human-readable) or "json" (structured)
// File: optional path; when set, entries are also written there as JSON
// with size-based rotation.
// Writer: console destination, stderr when nil.
type Options struct {
	Level  string
	Format string
	File   string
	Writer io.Writer
}

// New creates a logger writing to Writer (stderr by default), and to File
// when configured. stdout is left for program output such as session
// summaries.
func New(opts Options) *zap.Logger {
	level := ParseLevel(opts.Level)
	var out zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.Writer != nil {
		out = zapcore.Lock(zapcore.AddSync(opts.Writer))
	}
	cores := []zapcore.Core{newCore(opts.Format, out, level)}
	if opts.File != "" {
		cores = append(cores, newCore("json", zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}), level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

func newCore(format string, w zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "json":
		enc = zapcore.NewJSONEncoder(cfg)
	default:
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewCore(enc, w, level)
}

// ParseLevel converts a string log level to a zap level.
// Returns InfoLevel for unrecognized values.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
