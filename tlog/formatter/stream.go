package formatter

import (
	"bufio"
	"errors"
	"io"
)

// Stream reformats the JSON log lines read from r and writes them to w.
// Lines that are not zap JSON pass through unchanged.
func Stream(r io.Reader, w io.Writer, color bool) error {
	br := bufio.NewReader(r)
	var prevTS string
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			out, ts, err := Line(line, prevTS, color)
			if err != nil {
				if _, err := w.Write(line); err != nil {
					return err
				}
			} else {
				prevTS = ts
				_, err := w.Write(out.Bytes())
				out.Free()
				if err != nil {
					return err
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
