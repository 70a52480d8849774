package formatter

import "go.uber.org/zap/buffer"

// ANSI SGR sequences
type sgr string

const (
	reset   sgr = "\x1b[0m"
	bold    sgr = "\x1b[1m"
	italic  sgr = "\x1b[3m"
	red     sgr = "\x1b[31m"
	green   sgr = "\x1b[32m"
	yellow  sgr = "\x1b[33m"
	blue    sgr = "\x1b[34m"
	magenta sgr = "\x1b[35m"
	cyan    sgr = "\x1b[36m"
	gray    sgr = "\x1b[90m"
)

const (
	debugStyle   = magenta
	infoStyle    = blue
	warnStyle    = yellow
	errorStyle   = red
	keyStyle     = green
	subKeyStyle  = cyan
	messageStyle = bold
	callerStyle  = italic
	repeatStyle  = gray // timestamp digits unchanged since the previous line
	punctStyle   = yellow
)

// painter appends text to a buffer, styled or not
type painter func(buf *buffer.Buffer, style sgr, text string)

func painterFor(color bool) painter {
	if !color {
		return func(buf *buffer.Buffer, _ sgr, text string) {
			buf.AppendString(text)
		}
	}
	return func(buf *buffer.Buffer, style sgr, text string) {
		if text == "" {
			return
		}
		buf.AppendString(string(style))
		buf.AppendString(text)
		buf.AppendString(string(reset))
	}
}
