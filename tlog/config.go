package tlog

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format is the log output format
type Format string

// Format values
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat parses a --log-format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("invalid log format %q, expected json or text", s)
}

// Color tells whether text logs are colored
type Color string

// Color values
const (
	ColorAuto Color = ""
	ColorYes  Color = "yes"
	ColorNo   Color = "no"
)

// ParseColor parses a --log-color value
func ParseColor(s string) (Color, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "yes":
		return ColorYes, nil
	case "no":
		return ColorNo, nil
	}
	return "", fmt.Errorf("invalid log color %q, expected yes, no or auto", s)
}

// Config describes a top-level logger
type Config struct {
	Name    string // top-level logger name, optional
	Format  Format
	Color   Color
	Verbose bool // log at Debug level
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
}

// EncoderConfig is the encoder configuration of top-level loggers
var EncoderConfig = func() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = timeEncoder
	return ec
}()
