package types

import (
	"bytes"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncodeBool(t *testing.T) {
	type Bool bool
	b, err := TBool.Encode(Bool(false))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, b)
	b, err = TBool.Encode(true)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, b)
}

func TestEncodeUint(t *testing.T) {
	type UShort uint16
	b, err := TUInt16.Encode(UShort(0))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00}, b)
	b, err = TUInt16.Encode(UShort(258))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, b)
	b, err = TUInt32.Encode(5)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, b)

	_, err = TUInt16.Encode(65536)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = TUInt16.Encode(-1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = TUInt16.Encode("1")
	require.ErrorIs(t, err, ErrIncompatible)
}

func TestEncodeInt(t *testing.T) {
	type Short int16
	for _, tc := range []struct {
		v   Short
		enc []byte
	}{
		{0, []byte{0x80, 0x00}},
		{258, []byte{0x81, 0x02}},
		{-1, []byte{0x7f, 0xff}},
		{-258, []byte{0x7e, 0xfe}},
		{-32768, []byte{0x00, 0x00}},
	} {
		b, err := TSInt16.Encode(tc.v)
		require.NoError(t, err)
		require.Equal(t, tc.enc, b)
		v, err := TSInt16.Decode(b)
		require.NoError(t, err)
		require.Equal(t, int16(tc.v), v)
	}
	_, err := TSInt8.Encode(128)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = TSInt64.Encode(uint64(1 << 63))
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestEncodeString(t *testing.T) {
	b, err := TString.Encode("abc")
	require.NoError(t, err)
	require.Equal(t, []byte("abc\x00"), b)

	b, err = TString.EncodePrefix("ab")
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), b)

	_, err = TString.Encode("a\x00b")
	require.ErrorIs(t, err, ErrIncompatible)

	v, err := TString.Decode([]byte("🦄\x00"))
	require.NoError(t, err)
	require.Equal(t, "🦄", v)

	_, err = TString.Decode([]byte("abc"))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeTime(t *testing.T) {
	b, err := TDateTime.Encode(time.Time{})
	require.NoError(t, err)
	require.Equal(t, make([]byte, 12), b)

	ts := time.Date(2023, 5, 1, 12, 30, 0, 42, time.UTC)
	b, err = TDateTime.Encode(ts)
	require.NoError(t, err)
	v, err := TDateTime.Decode(b)
	require.NoError(t, err)
	require.True(t, ts.Equal(v.(time.Time)))

	_, err = TDateTime.Encode("2023-05-01")
	require.ErrorIs(t, err, ErrIncompatible)
}

func TestEncodeUUID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	b, err := TUUID.Encode(id)
	require.NoError(t, err)
	require.Equal(t, id[:], b)

	b2, err := TUUID.Encode(id.String())
	require.NoError(t, err)
	require.Equal(t, b, b2)

	v, err := TUUID.Decode(b)
	require.NoError(t, err)
	require.Equal(t, id, v)
}

func TestEncodeFixedBytes(t *testing.T) {
	typ := Bytes(3)
	b, err := typ.Encode([3]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)
	_, err = typ.Encode([]byte{1, 2})
	require.ErrorIs(t, err, ErrIncompatible)
	b, err = typ.EncodePrefix([]byte{1})
	require.NoError(t, err)
	require.Equal(t, []byte{1}, b)
}

func TestOrderPreserved(t *testing.T) {
	for _, tc := range []struct {
		typ    Type
		values []any
	}{
		{TSInt32, []any{-100, -1, 0, 1, 100}},
		{TUInt64, []any{0, 1, 255, 256, uint64(1 << 63)}},
		{TFloat64, []any{-1e10, -1.5, -0.25, 0.0, 0.25, 3.0, 1e300}},
		{TString, []any{"", "a", "aa", "ab", "b"}},
		{TDateTime, []any{
			time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(1970, 1, 1, 0, 0, 0, 1, time.UTC),
			time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	} {
		var encoded [][]byte
		for _, v := range tc.values {
			b, err := tc.typ.Encode(v)
			require.NoError(t, err)
			encoded = append(encoded, b)
		}
		require.True(t, sort.SliceIsSorted(encoded, func(i, j int) bool {
			return bytes.Compare(encoded[i], encoded[j]) < 0
		}), tc.typ.Name())
		for i := 1; i < len(encoded); i++ {
			require.NotEqual(t, encoded[i-1], encoded[i])
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{-2.5, 0, 1, 1e-300} {
		b, err := TFloat64.Encode(f)
		require.NoError(t, err)
		v, err := TFloat64.Decode(b)
		require.NoError(t, err)
		require.Equal(t, f, v)
	}
}

func TestWidth(t *testing.T) {
	n, ok := TUInt32.Width([]byte{1, 2, 3, 4, 5}, false)
	require.True(t, ok)
	require.Equal(t, 4, n)
	_, ok = TUInt32.Width([]byte{1, 2}, false)
	require.False(t, ok)

	n, ok = TString.Width([]byte("ab\x00cd\x00"), false)
	require.True(t, ok)
	require.Equal(t, 3, n)
	n, ok = TString.Width([]byte{0x9e, 0x9d, 0xff, 0x00}, true)
	require.True(t, ok)
	require.Equal(t, 3, n)
	_, ok = TString.Width([]byte("ab"), false)
	require.False(t, ok)
}

func TestMax(t *testing.T) {
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, TUInt32.Max())
	require.Nil(t, TString.Max())
}

func TestOf(t *testing.T) {
	type ID string
	for _, tc := range []struct {
		v   any
		typ Type
	}{
		{true, TBool},
		{uint8(0), TUInt8},
		{uint(0), TUInt64},
		{int(0), TSInt64},
		{int16(0), TSInt16},
		{float32(0), TFloat64},
		{ID(""), TString},
		{time.Time{}, TDateTime},
		{uuid.UUID{}, TUUID},
		{[4]byte{}, Bytes(4)},
	} {
		typ, ok := Of(reflect.TypeOf(tc.v))
		require.True(t, ok)
		require.Equal(t, tc.typ, typ)
	}
	_, ok := Of(reflect.TypeOf(map[string]int{}))
	require.False(t, ok)
}

func TestParse(t *testing.T) {
	for _, typ := range []Type{TBool, TUInt32, TSInt64, TFloat64, TString, TDateTime, TUUID, Bytes(12)} {
		parsed, err := Parse(typ.Name())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}
	_, err := Parse("bytes")
	require.Error(t, err)
	_, err = Parse("complex128")
	require.Error(t, err)
}

func TestGoType(t *testing.T) {
	for _, typ := range []Type{TBool, TUInt8, TUInt16, TUInt32, TUInt64, TSInt8, TSInt16, TSInt32, TSInt64,
		TFloat64, TString, TDateTime, TUUID, Bytes(3)} {
		gt, ok := typ.GoType()
		require.True(t, ok, typ)
		back, ok := Of(gt)
		require.True(t, ok, typ)
		require.Equal(t, typ, back)
	}
	_, ok := Type{}.GoType()
	require.False(t, ok)
}
