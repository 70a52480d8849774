package tlog

import (
	"fmt"
	"testing"

	"github.com/ridge/must/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// New creates a top-level logger writing to stderr
func New(config Config) *zap.Logger {
	encoding := "json"
	if config.Format != FormatJSON {
		var color bool
		switch config.Color {
		case ColorYes:
			color = true
		case ColorNo:
		case ColorAuto:
			color = term.IsTerminal(unix.Stderr)
		default:
			panic(fmt.Errorf("unexpected color setting: %s", config.Color))
		}
		encoding = consoleEncoderName(color)
	}

	level := zapcore.InfoLevel
	if config.Verbose {
		level = zapcore.DebugLevel
	}

	logger := must.OK1(zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      config.Format != FormatJSON,
		Encoding:         encoding,
		EncoderConfig:    EncoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}.Build())
	if config.Name != "" {
		logger = logger.Named(config.Name)
	}
	return logger
}

// NewForTesting creates a logger writing through t.Log at Debug level
func NewForTesting(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel)).Named(t.Name())
}
