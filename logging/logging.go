// Package logging builds the process's structured logger, following
// tos-pool's internal/util/log.go level/format switch but handed back as
// a constructor result rather than a package global, so every component
// takes its logger by injection (spec SPEC_FULL.md, "Logging").
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger New builds.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	File   string // optional additional output file
}

// New builds a *zap.SugaredLogger per opts.
func New(opts Options) (*zap.SugaredLogger, error) {
	var zapLevel zapcore.Level
	switch opts.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	var encoder zapcore.Encoder
	if opts.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	writeSyncer := zapcore.AddSync(os.Stdout)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file %s: %w", opts.File, err)
		}
		writeSyncer = zapcore.NewMultiWriteSyncer(writeSyncer, zapcore.AddSync(f))
	}

	core := zapcore.NewCore(encoder, writeSyncer, zapLevel)
	return zap.New(core, zap.AddCaller()).Sugar(), nil
}

// NewDevelopment is a convenience constructor for tests and local runs.
func NewDevelopment() *zap.SugaredLogger {
	l, _ := zap.NewDevelopment()
	return l.Sugar()
}
