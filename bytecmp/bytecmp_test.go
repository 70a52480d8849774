package bytecmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareWithOffsetLength(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	require.Equal(t, 0, CompareWithOffsetLength([]byte{2, 3}, b, 1, 2))
	require.Equal(t, 1, CompareWithOffsetLength([]byte{2, 4}, b, 1, 2))
	require.Equal(t, -1, CompareWithOffsetLength([]byte{2, 2}, b, 1, 2))
	// a longer than the window
	require.Equal(t, 1, CompareWithOffsetLength([]byte{2, 3, 4}, b, 1, 2))
	// window clipped at the end of b
	require.Equal(t, 0, CompareWithOffsetLength([]byte{4, 5}, b, 3, 10))
	require.Equal(t, 1, CompareWithOffsetLength([]byte{4}, b, 10, 1))
}

func TestCompareUnsigned(t *testing.T) {
	require.Equal(t, 1, Compare([]byte{0x80}, []byte{0x7f}))
	require.Equal(t, -1, Compare([]byte{0x01}, []byte{0x01, 0x00}))
}

func TestComparePrefix(t *testing.T) {
	require.Equal(t, 0, ComparePrefix([]byte("Jan"), []byte("January")))
	require.Equal(t, 1, ComparePrefix([]byte("Jan"), []byte("Ja")))
	require.Equal(t, -1, ComparePrefix([]byte("Jan"), []byte("Jao")))
	require.Equal(t, 0, ComparePrefix(nil, []byte("x")))
}

func TestPrevByteInSameLength(t *testing.T) {
	b, ok := PrevByteInSameLength([]byte{0x01, 0x00})
	require.True(t, ok)
	require.Equal(t, []byte{0x00, 0xff}, b)

	b, ok = PrevByteInSameLength([]byte{0x05})
	require.True(t, ok)
	require.Equal(t, []byte{0x04}, b)

	_, ok = PrevByteInSameLength([]byte{0x00, 0x00})
	require.False(t, ok)
	_, ok = PrevByteInSameLength(nil)
	require.False(t, ok)
}

func TestNextByteInSameLength(t *testing.T) {
	in := []byte{0x00, 0xff}
	b, ok := NextByteInSameLength(in)
	require.True(t, ok)
	require.Equal(t, []byte{0x01, 0x00}, b)
	require.Equal(t, []byte{0x00, 0xff}, in)

	_, ok = NextByteInSameLength([]byte{0xff, 0xff})
	require.False(t, ok)
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte{0x01, 0x03}, PrefixEnd([]byte{0x01, 0x02}))
	require.Equal(t, []byte{0x02}, PrefixEnd([]byte{0x01, 0xff}))
	require.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
	require.Nil(t, PrefixEnd(nil))
}

func TestComplementAndPad(t *testing.T) {
	require.Equal(t, []byte{0xff, 0x00, 0xfe}, Complement([]byte{0x00, 0xff, 0x01}))
	require.Nil(t, Complement(nil))
	require.Equal(t, []byte{1, 0xff, 0xff}, Pad([]byte{1}, 3, 0xff))
	require.Equal(t, []byte{1, 2}, Pad([]byte{1, 2}, 1, 0))
	require.Equal(t, []byte{1, 2, 3}, Concat([]byte{1}, nil, []byte{2, 3}))
}
