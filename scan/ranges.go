package scan

import (
	"sort"

	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
)

// EqualPair records a property pinned to one exact value by the filter
type EqualPair struct {
	Field meta.Field
	Value any
}

// UniqueToMatch records a unique property pinned to a value, allowing a
// point lookup through the unique value index
type UniqueToMatch struct {
	Reference  []byte
	Definition meta.Field
	Value      any
}

// ScanRanges is the compiled form of a filter over one indexable: sorted,
// non-overlapping ranges plus partial matchers every key must pass.
//
// No ranges at all means nothing can match.
type ScanRanges struct {
	Ranges         []ScanRange
	PartialMatches []Partial
	EqualPairs     []EqualPair
}

// MatchesPartials returns true if key passes every partial matcher
func (sr ScanRanges) MatchesPartials(key []byte) bool {
	for _, p := range sr.PartialMatches {
		if !MatchPartial(p, key) {
			return false
		}
	}
	return true
}

// Contains returns true if key is within one of the ranges and passes every
// partial matcher
func (sr ScanRanges) Contains(key []byte) bool {
	for _, r := range sr.Ranges {
		if r.Contains(key) {
			return sr.MatchesPartials(key)
		}
	}
	return false
}

// IsEmpty returns true if nothing can match
func (sr ScanRanges) IsEmpty() bool {
	return len(sr.Ranges) == 0
}

// KeyScanRanges is the compiled form of a filter over the primary key
type KeyScanRanges struct {
	ScanRanges
	Uniques []UniqueToMatch
	KeySize int
}

// IsSingleKey returns true if every range is a single full-size key, so the
// backend can fetch records directly instead of iterating
func (kr KeyScanRanges) IsSingleKey() bool {
	if len(kr.Ranges) == 0 {
		return false
	}
	for _, r := range kr.Ranges {
		if !r.IsPoint(kr.KeySize) {
			return false
		}
	}
	return true
}

// Keys returns the keys of single key ranges
func (kr KeyScanRanges) Keys() [][]byte {
	keys := make([][]byte, 0, len(kr.Ranges))
	for _, r := range kr.Ranges {
		keys = append(keys, r.Start)
	}
	return keys
}

// IndexScanRanges is the compiled form of a filter over a secondary index.
// Index entries are the index value immediately followed by the primary key.
type IndexScanRanges struct {
	ScanRanges
	Key KeyScanRanges
}

// SplitEntry splits an index entry into the index value and the primary key
func (ir IndexScanRanges) SplitEntry(entry []byte) ([]byte, []byte, bool) {
	n := len(entry) - ir.Key.KeySize
	if n < 0 {
		return nil, nil, false
	}
	return entry[:n], entry[n:], true
}

// MatchesEntry checks the partial matchers of the index against an entry and
// the key ranges and matchers against the key it holds
func (ir IndexScanRanges) MatchesEntry(entry []byte) bool {
	_, key, ok := ir.SplitEntry(entry)
	return ok && ir.MatchesPartials(entry) && ir.Key.Contains(key)
}

// CreateRanges pairs start and end bounds positionally into ranges. A
// single bound on either side is paired with every bound on the other.
//
// Returns no ranges if either list is empty or the lists have different
// lengths: there is nothing to bound.
func CreateRanges(start, end [][]byte, startInclusive, endInclusive bool) []ScanRange {
	if len(start) == 0 || len(end) == 0 {
		return nil
	}
	n := max(len(start), len(end))
	if len(start) != len(end) && len(start) != 1 && len(end) != 1 {
		return nil
	}
	ranges := make([]ScanRange, 0, n)
	for i := 0; i < n; i++ {
		r := ScanRange{
			Start:          start[min(i, len(start)-1)],
			StartInclusive: startInclusive,
			End:            end[min(i, len(end)-1)],
			EndInclusive:   endInclusive,
		}
		if !r.IsEmpty() {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

// Unbounded returns the single range covering every key
func Unbounded() []ScanRange {
	return []ScanRange{{StartInclusive: true, EndInclusive: true}}
}

type bounded struct {
	r  ScanRange
	lb []byte
	ub []byte
}

// Merge sorts ranges and coalesces the ones that overlap. Empty ranges are
// dropped. Ranges that merely touch stay separate, so distinct point ranges
// survive.
func Merge(ranges []ScanRange) []ScanRange {
	bs := make([]bounded, 0, len(ranges))
	for _, r := range ranges {
		if r.IsEmpty() {
			continue
		}
		lb, _ := r.LowerBound()
		bs = append(bs, bounded{r: r, lb: lb, ub: r.UpperBound()})
	}
	if len(bs) == 0 {
		return nil
	}
	sort.SliceStable(bs, func(i, j int) bool {
		return bytecmp.Compare(bs[i].lb, bs[j].lb) < 0
	})

	res := make([]ScanRange, 0, len(bs))
	cur := bs[0]
	for _, next := range bs[1:] {
		if cur.ub != nil && bytecmp.Compare(next.lb, cur.ub) >= 0 {
			res = append(res, cur.r)
			cur = next
			continue
		}
		if cur.ub != nil && (next.ub == nil || bytecmp.Compare(next.ub, cur.ub) > 0) {
			cur.r.End, cur.r.EndInclusive = next.r.End, next.r.EndInclusive
			cur.ub = next.ub
		}
	}
	return append(res, cur.r)
}

// WithStartKey resumes a scan at startKey: ranges entirely on the already
// visited side of startKey are dropped and the range holding it is narrowed
// to begin (or end, for descending scans) at startKey
func (kr KeyScanRanges) WithStartKey(startKey []byte, inclusive, descending bool) KeyScanRanges {
	if len(startKey) == 0 {
		return kr
	}
	ranges := make([]ScanRange, 0, len(kr.Ranges))
	for _, r := range kr.Ranges {
		if descending {
			if r.KeyBeforeStart(startKey) {
				continue
			}
			if !r.KeyOutOfRange(startKey) {
				r.End, r.EndInclusive = startKey, inclusive
			}
		} else {
			if r.KeyOutOfRange(startKey) {
				continue
			}
			if !r.KeyBeforeStart(startKey) {
				r.Start, r.StartInclusive = startKey, inclusive
			}
		}
		if !r.IsEmpty() {
			ranges = append(ranges, r)
		}
	}
	kr.Ranges = ranges
	return kr
}
