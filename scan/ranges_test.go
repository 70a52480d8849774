package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func point(b ...byte) ScanRange {
	return ScanRange{Start: b, StartInclusive: true, End: b, EndInclusive: true}
}

func TestCreateRanges(t *testing.T) {
	require.Empty(t, CreateRanges(nil, [][]byte{{1}}, true, true))
	require.Empty(t, CreateRanges([][]byte{{1}}, nil, true, true))
	require.Empty(t, CreateRanges([][]byte{{1}, {2}}, [][]byte{{1}, {2}, {3}}, true, true))

	require.Equal(t, []ScanRange{point(1), point(2)},
		CreateRanges([][]byte{{1}, {2}}, [][]byte{{1}, {2}}, true, true))

	require.Equal(t, []ScanRange{
		{Start: []byte{1}, End: []byte{5}, EndInclusive: true},
		{Start: []byte{2}, End: []byte{5}, EndInclusive: true},
	}, CreateRanges([][]byte{{1}, {2}}, [][]byte{{5}}, false, true))

	// provably empty pairs are dropped
	require.Equal(t, []ScanRange{point(1)},
		CreateRanges([][]byte{{1}, {3}}, [][]byte{{1}, {2}}, true, true))
}

func TestMerge(t *testing.T) {
	require.Nil(t, Merge(nil))
	require.Equal(t, []ScanRange{point(1), point(3)}, Merge([]ScanRange{point(3), point(1), point(3)}))

	// [1, 3] and (2, 4) overlap
	require.Equal(t, []ScanRange{
		{Start: []byte{1}, StartInclusive: true, End: []byte{4}},
	}, Merge([]ScanRange{
		{Start: []byte{2}, End: []byte{4}},
		{Start: []byte{1}, StartInclusive: true, End: []byte{3}, EndInclusive: true},
	}))

	// adjacent points stay apart
	require.Equal(t, []ScanRange{point(1), point(2)}, Merge([]ScanRange{point(2), point(1)}))

	// unbounded end swallows everything after it
	require.Equal(t, []ScanRange{
		{Start: []byte{1}, StartInclusive: true},
	}, Merge([]ScanRange{
		{Start: []byte{1}, StartInclusive: true},
		point(7),
		{Start: []byte{0xff}},
	}))

	require.Equal(t, Unbounded(), Merge(append(Unbounded(), point(2))))
}

func TestWithStartKey(t *testing.T) {
	kr := KeyScanRanges{
		ScanRanges: ScanRanges{Ranges: []ScanRange{
			{Start: []byte{1}, StartInclusive: true, End: []byte{2}, EndInclusive: true},
			{Start: []byte{5}, StartInclusive: true, End: []byte{6}, EndInclusive: true},
		}},
		KeySize: 2,
	}

	asc := kr.WithStartKey([]byte{5, 3}, false, false)
	require.Equal(t, []ScanRange{
		{Start: []byte{5, 3}, End: []byte{6}, EndInclusive: true},
	}, asc.Ranges)
	require.Len(t, kr.Ranges, 2)

	asc = kr.WithStartKey([]byte{0, 0}, true, false)
	require.Equal(t, kr.Ranges, asc.Ranges)

	desc := kr.WithStartKey([]byte{2, 0}, true, true)
	require.Equal(t, []ScanRange{
		{Start: []byte{1}, StartInclusive: true, End: []byte{2, 0}, EndInclusive: true},
	}, desc.Ranges)

	require.Empty(t, kr.WithStartKey([]byte{9, 9}, true, false).Ranges)
}

func TestSingleKey(t *testing.T) {
	kr := KeyScanRanges{ScanRanges: ScanRanges{Ranges: []ScanRange{point(1, 2), point(3, 4)}}, KeySize: 2}
	require.True(t, kr.IsSingleKey())
	require.Equal(t, [][]byte{{1, 2}, {3, 4}}, kr.Keys())

	kr.KeySize = 3
	require.False(t, kr.IsSingleKey())
	require.False(t, KeyScanRanges{KeySize: 2}.IsSingleKey())
}

func TestMatchesEntry(t *testing.T) {
	ir := IndexScanRanges{
		ScanRanges: ScanRanges{
			Ranges:         []ScanRange{{Start: []byte("Jan"), StartInclusive: true, End: []byte("Jan"), EndInclusive: true}},
			PartialMatches: []Partial{PartialSizeToMatch{At: At(0), Span: Span{Terminator: 0}, Size: 8}},
		},
		Key: KeyScanRanges{
			ScanRanges: ScanRanges{Ranges: []ScanRange{{Start: []byte{0x10}, StartInclusive: true}}},
			KeySize:    2,
		},
	}
	require.True(t, ir.MatchesEntry(append([]byte("January\x00"), 0x10, 0x01)))
	require.False(t, ir.MatchesEntry(append([]byte("January\x00"), 0x01, 0x01)))
	require.False(t, ir.MatchesEntry(append([]byte("Jan\x00"), 0x10, 0x01)))
	require.False(t, ir.MatchesEntry([]byte{0x10}))

	value, key, ok := ir.SplitEntry([]byte("x\x00\x01\x02"))
	require.True(t, ok)
	require.Equal(t, []byte("x\x00"), value)
	require.Equal(t, []byte{1, 2}, key)
	require.False(t, ir.Contains([]byte("Jan\x00")))
}

func TestLogObjects(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	kr := KeyScanRanges{
		ScanRanges: ScanRanges{
			Ranges:         []ScanRange{point(0, 5)},
			PartialMatches: []Partial{PartialToMatch{At: At(2), ToMatch: []byte{1}}},
		},
		KeySize: 4,
	}
	require.NoError(t, kr.MarshalLogObject(enc))
	require.Equal(t, 4, enc.Fields["keySize"])
	require.Equal(t, []any{
		map[string]any{"start": "0005", "startInclusive": true, "end": "0005", "endInclusive": true},
	}, enc.Fields["ranges"])
	require.Equal(t, []any{
		map[string]any{"kind": "IndexPartialToMatch", "offset": 2, "toMatch": "01"},
	}, enc.Fields["partials"])
}
