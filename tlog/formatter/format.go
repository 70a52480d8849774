// Package formatter renders zap JSON log lines as human-readable text
package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap/buffer"
)

// ErrForeign is returned for JSON lines not written by zap
var ErrForeign = errors.New("not a zap log line")

var pool = buffer.NewPool()

// take removes a string field from the parsed line. Values of other types
// are rendered rather than lost.
func take(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("<%T %v>", v, v), true
}

// Line formats one JSON log line. prevTS is the timestamp of the previous
// line: the part the two share is dimmed. Returns the formatted line and its
// timestamp.
func Line(line []byte, prevTS string, color bool) (*buffer.Buffer, string, error) {
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, "", err
	}
	ts, ok := take(fields, "ts")
	if !ok {
		return nil, "", ErrForeign
	}
	level, _ := take(fields, "level")
	msg, _ := take(fields, "msg")
	caller, _ := take(fields, "caller")
	logger, _ := take(fields, "logger")
	errText, hasErr := take(fields, "error")

	paint := painterFor(color)
	buf := pool.Get()

	writeTimestamp(buf, ts, prevTS, paint)
	buf.AppendByte(' ')
	writeLevel(buf, level, paint)
	buf.AppendByte(' ')
	paint(buf, messageStyle, msg)

	var blocks []string
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		if s, ok := fields[key].(string); ok && strings.Contains(s, "\n") {
			blocks = append(blocks, key)
			continue
		}
		buf.AppendByte(' ')
		paint(buf, keyStyle, key+"=")
		writeValue(buf, fields[key], paint)
	}
	if hasErr {
		if strings.Contains(errText, "\n") {
			blocks = append([]string{"error"}, blocks...)
			fields["error"] = errText
		} else {
			buf.AppendByte(' ')
			paint(buf, errorStyle, "error=")
			buf.AppendString(strconv.Quote(errText))
		}
	}

	if logger != "" {
		buf.AppendString(" [")
		buf.AppendString(logger)
		buf.AppendByte(']')
	}
	if caller != "" {
		buf.AppendString(" (")
		paint(buf, callerStyle, caller)
		buf.AppendByte(')')
	}
	buf.AppendByte('\n')

	for _, key := range blocks {
		style := keyStyle
		if key == "error" {
			style = errorStyle
		}
		writeBlock(buf, key, fields[key].(string), style, paint)
	}
	return buf, ts, nil
}

func writeLevel(buf *buffer.Buffer, level string, paint painter) {
	switch level {
	case "debug":
		paint(buf, debugStyle, "DBG")
	case "info":
		paint(buf, infoStyle, "INF")
	case "warn":
		paint(buf, warnStyle, "WRN")
	case "":
		paint(buf, errorStyle, "???")
	default:
		l := strings.ToUpper(level)
		if len(l) > 3 {
			l = l[:3]
		}
		paint(buf, errorStyle, l)
	}
}

// writeTimestamp dims the leading characters shared with the previous
// timestamp
func writeTimestamp(buf *buffer.Buffer, ts, prevTS string, paint painter) {
	n := 0
	for n < len(ts) && n < len(prevTS) && ts[n] == prevTS[n] {
		n++
	}
	paint(buf, repeatStyle, ts[:n])
	buf.AppendString(ts[n:])
}

func writeValue(buf *buffer.Buffer, v any, paint painter) {
	switch v := v.(type) {
	case nil:
		buf.AppendString("null")
	case bool:
		buf.AppendBool(v)
	case float64:
		buf.AppendString(strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		buf.AppendString(strconv.Quote(v))
	case []any:
		paint(buf, punctStyle, "[")
		for i, elem := range v {
			if i > 0 {
				paint(buf, punctStyle, ", ")
			}
			writeValue(buf, elem, paint)
		}
		paint(buf, punctStyle, "]")
	case map[string]any:
		paint(buf, punctStyle, "{")
		for i, key := range slices.Sorted(maps.Keys(v)) {
			if i > 0 {
				paint(buf, punctStyle, ", ")
			}
			paint(buf, subKeyStyle, key)
			paint(buf, punctStyle, ": ")
			writeValue(buf, v[key], paint)
		}
		paint(buf, punctStyle, "}")
	default:
		fmt.Fprint(buf, v)
	}
}

func writeBlock(buf *buffer.Buffer, key, text string, style sgr, paint painter) {
	paint(buf, style, "--- "+key+" ---")
	buf.AppendByte('\n')
	buf.AppendString(text)
	if !strings.HasSuffix(text, "\n") {
		buf.AppendByte('\n')
	}
}
