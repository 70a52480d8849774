package tlog

import (
	"fmt"
	"sync"

	"github.com/ridge/keystone/tlog/formatter"
	"github.com/ridge/must/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// The console encoder renders every entry with the JSON encoder first and
// reformats it, so text logs and logs piped through keyscan pretty look the
// same.

const consoleEncoder = "keystone-console"

func consoleEncoderName(color bool) string {
	return fmt.Sprintf("%s;color=%t", consoleEncoder, color)
}

func init() {
	for _, color := range []bool{false, true} {
		must.OK(zap.RegisterEncoder(consoleEncoderName(color), func(cfg zapcore.EncoderConfig) (zapcore.Encoder, error) {
			return newConsole(cfg, color), nil
		}))
	}
}

type console struct {
	zapcore.Encoder // JSON
	color           bool

	mu     sync.Mutex
	prevTS string
}

func newConsole(cfg zapcore.EncoderConfig, color bool) *console {
	return &console{Encoder: zapcore.NewJSONEncoder(cfg), color: color}
}

// Clone implements zapcore.Encoder
func (c *console) Clone() zapcore.Encoder {
	return &console{Encoder: c.Encoder.Clone(), color: c.color}
}

// EncodeEntry implements zapcore.Encoder
func (c *console) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	raw, err := c.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer raw.Free()

	c.mu.Lock()
	defer c.mu.Unlock()
	out, ts, err := formatter.Line(raw.Bytes(), c.prevTS, c.color)
	if err != nil {
		return nil, err
	}
	c.prevTS = ts
	return out, nil
}
