package codec

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridge/keystone/meta"
	"github.com/stretchr/testify/require"
)

type event struct {
	meta.Meta `keystone:"name=event"`
	ID        uuid.UUID `keystone:"identity"`
	Number    uint32
	Name      string `keystone:"name=name"`
	Note      *string
	Tags      []string
	Labels    map[string]int
}

var eventStruct = meta.Survey(reflect.TypeOf(event{}))

func TestRecord(t *testing.T) {
	note := "note"
	e := event{
		ID:     uuid.MustParse("0190c3d4-6f1e-7b8a-9c0d-1e2f3a4b5c6d"),
		Number: 5,
		Name:   "🦄",
		Note:   &note,
		Tags:   []string{"a", "b"},
		Labels: map[string]int{"x": 1},
	}

	var encoded [][]byte
	for _, c := range []Codec{
		{Format: MsgPack},
		{Format: MsgPack, Compression: Snappy},
		{Format: MsgPack, Compression: Zstd},
		{Format: JSON},
		{Format: JSON, Compression: Snappy},
		{Format: JSON, Compression: Zstd},
		{Format: JSON, Compression: MinLZ},
	} {
		b, err := c.Marshal(eventStruct, &e)
		require.NoError(t, err, c)
		require.Equal(t, c, codecOf(b[0]))
		encoded = append(encoded, b)

		v, err := Unmarshal(eventStruct, b)
		require.NoError(t, err, c)
		require.Equal(t, e, v, c)
	}
	require.NotEqual(t, encoded[0], encoded[1])
}

func TestZeroFieldsOmitted(t *testing.T) {
	b, err := Codec{Format: JSON}.Marshal(eventStruct, event{Name: "Jan"})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"\"Jan\""}`, jsonBody(t, b))

	v, err := Unmarshal(eventStruct, b)
	require.NoError(t, err)
	require.Equal(t, event{Name: "Jan"}, v)
}

func jsonBody(t *testing.T, b []byte) string {
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b[1:], &fields))
	res := map[string]string{}
	for k, v := range fields {
		res[k] = string(v)
	}
	out, err := json.Marshal(res)
	require.NoError(t, err)
	return string(out)
}

func TestUnknownFieldsIgnored(t *testing.T) {
	b := append([]byte{Codec{Format: JSON}.header()}, `{"Number":7,"Gone":"x"}`...)
	v, err := Unmarshal(eventStruct, b)
	require.NoError(t, err)
	require.Equal(t, event{Number: 7}, v)
}

func TestTime(t *testing.T) {
	type timed struct {
		meta.Meta `keystone:"name=timed"`
		At        time.Time
	}
	s := meta.Survey(reflect.TypeOf(timed{}))
	at := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)

	for _, c := range []Codec{Default, {Format: JSON, Compression: Zstd}, {Format: MsgPack, Compression: MinLZ}} {
		b, err := c.Marshal(s, timed{At: at})
		require.NoError(t, err)
		var got timed
		require.NoError(t, UnmarshalInto(s, b, &got))
		require.True(t, at.Equal(got.At), c)
	}
}

func TestCorrupt(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		{0x00},
		{Codec{Format: JSON}.header(), '{'},
		{Codec{Format: MsgPack, Compression: Snappy}.header(), 0xff, 0xff},
		{Codec{Format: MsgPack, Compression: Zstd}.header(), 1, 2, 3},
		{byte(JSON)<<4 | 0x0f},
		append([]byte{Codec{Format: JSON}.header()}, `{"Number":"five"}`...),
	} {
		_, err := Unmarshal(eventStruct, b)
		require.ErrorIs(t, err, ErrCorrupt, "%x", b)
	}
}

func TestNames(t *testing.T) {
	require.Equal(t, "msgpack+snappy", Default.String())
	require.Equal(t, "json+zstd", Codec{Format: JSON, Compression: Zstd}.String())
	require.Panics(t, func() { _, _ = Codec{}.Marshal(eventStruct, event{}) })
}
