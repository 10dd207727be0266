package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity controls how much output reaches the console. The log file, when
// configured, always receives everything at the configured level.
type Verbosity int

const (
	VerbosityNone Verbosity = iota
	VerbosityBasic
	VerbosityVerbose
)

// New builds a SugaredLogger with a console core governed by verbosity and
// an optional always-on file sink.
func New(level string, verbosity Verbosity, logFile string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cores []zapcore.Core

	if verbosity != VerbosityNone {
		encCfg := zap.NewDevelopmentEncoderConfig()
		consoleLvl := zapcore.InfoLevel
		if verbosity == VerbosityVerbose {
			consoleLvl = zapcore.DebugLevel
		}
		if consoleLvl < lvl {
			consoleLvl = lvl
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			consoleLvl,
		))
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.Lock(f),
			lvl,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop().Sugar(), nil
	}

	return zap.New(zapcore.NewTee(cores...)).Sugar(), nil
}
