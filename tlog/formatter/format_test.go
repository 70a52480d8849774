package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ridge/must/v2"
	"github.com/ridge/tj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func format(t *testing.T, line tj.O, prevTS string, color bool) string {
	out, _, err := Line(must.OK1(json.Marshal(line)), prevTS, color)
	require.NoError(t, err)
	defer out.Free()
	return out.String()
}

func TestLine(t *testing.T) {
	line := tj.O{
		"ts":     "2024-05-01T12:00:00.000123Z",
		"level":  "debug",
		"caller": "store/exec.go:68",
		"msg":    "Scan planned",
		"logger": "keyscan",
		"error":  "first\nsecond",
		"plan": tj.O{
			"strategy": "key ranges",
			"ranges":   tj.A{"[00, 05)", "[07, +inf)"},
		},
		"limit":  5.0,
		"desc":   true,
		"family": nil,
		"dump":   "a\nb\n",
	}

	expected := `2024-05-01T12:00:00.000123Z DBG Scan planned desc=true family=null limit=5 plan={ranges: ["[00, 05)", "[07, +inf)"], strategy: "key ranges"} [keyscan] (store/exec.go:68)
--- error ---
first
second
--- dump ---
a
b
`
	assert.Equal(t, expected, format(t, line, "", false))
}

func TestLineMinimal(t *testing.T) {
	assert.Equal(t, "2024-05-01T00:00:00Z ERR broken error=\"no \\\"luck\\\"\"\n", format(t, tj.O{
		"ts":    "2024-05-01T00:00:00Z",
		"level": "error",
		"msg":   "broken",
		"error": `no "luck"`,
	}, "", false))
	assert.Equal(t, "2024-05-01T00:00:00Z ??? bare\n", format(t, tj.O{"ts": "2024-05-01T00:00:00Z", "msg": "bare"}, "", false))
}

func TestLineColor(t *testing.T) {
	out := format(t, tj.O{"ts": "2024-05-01T12:00:01Z", "level": "info", "msg": "hi"}, "2024-05-01T12:00:00Z", true)
	assert.Equal(t, string(repeatStyle)+"2024-05-01T12:00:0"+string(reset)+"1Z "+
		string(infoStyle)+"INF"+string(reset)+" "+string(messageStyle)+"hi"+string(reset)+"\n", out)
}

func TestLineForeign(t *testing.T) {
	_, _, err := Line([]byte(`{"msg":"no timestamp"}`), "", false)
	require.ErrorIs(t, err, ErrForeign)
	_, _, err = Line([]byte(`plain text`), "", false)
	require.Error(t, err)
}

func TestStream(t *testing.T) {
	in := strings.Join([]string{
		`{"ts":"2024-05-01T00:00:00Z","level":"info","msg":"one"}`,
		`not json`,
		`{"ts":"2024-05-01T00:00:01Z","level":"warn","msg":"two"}`,
	}, "\n")
	var out bytes.Buffer
	require.NoError(t, Stream(strings.NewReader(in), &out, false))
	assert.Equal(t, "2024-05-01T00:00:00Z INF one\nnot json\n2024-05-01T00:00:01Z WRN two\n", out.String())
}
