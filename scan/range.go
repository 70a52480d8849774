// Package scan holds the compiled form of a filter: byte ranges bounding
// where a backend has to look, and partial matchers deciding which keys
// within those ranges qualify.
//
// Range bounds use prefix semantics. A candidate key is compared against a
// bound truncated to the bound's length, so a bound shorter than a full key
// (a pinned leading part of a composite key, a string prefix) covers every
// key sharing it. With that rule a range [Start, End] is exactly the
// half-open interval [LowerBound, UpperBound) of full keys.
package scan

import (
	"encoding/hex"
	"strings"

	"github.com/ridge/keystone/bytecmp"
)

// ScanRange is a contiguous byte range of keys.
//
// An empty Start means there is no lower bound; an empty End means there is
// no upper bound.
type ScanRange struct {
	Start          []byte
	StartInclusive bool
	End            []byte
	EndInclusive   bool
}

// KeyBeforeStart returns true if key sorts before the start of the range.
// Backends skip such keys rather than stop.
func (r ScanRange) KeyBeforeStart(key []byte) bool {
	if len(r.Start) == 0 {
		return false
	}
	c := bytecmp.ComparePrefix(r.Start, key)
	return c > 0 || c == 0 && !r.StartInclusive
}

// KeyOutOfRange returns true if key sorts after the end of the range.
// Backends walking upwards stop at the first such key.
func (r ScanRange) KeyOutOfRange(key []byte) bool {
	if len(r.End) == 0 {
		return false
	}
	c := bytecmp.ComparePrefix(r.End, key)
	return c < 0 || c == 0 && !r.EndInclusive
}

// Contains returns true if key is within the range
func (r ScanRange) Contains(key []byte) bool {
	return !r.KeyBeforeStart(key) && !r.KeyOutOfRange(key)
}

// LowerBound returns the smallest key that can be within the range (nil if
// the range has no lower bound). Returns false if no key can follow the
// start of the range.
func (r ScanRange) LowerBound() ([]byte, bool) {
	if len(r.Start) == 0 {
		return nil, true
	}
	if r.StartInclusive {
		return r.Start, true
	}
	lb := bytecmp.PrefixEnd(r.Start)
	return lb, lb != nil
}

// UpperBound returns the smallest key past the range, or nil if the range
// extends to the end of the keyspace
func (r ScanRange) UpperBound() []byte {
	if len(r.End) == 0 {
		return nil
	}
	if r.EndInclusive {
		return bytecmp.PrefixEnd(r.End)
	}
	return r.End
}

// IsEmpty returns true if no key can be within the range
func (r ScanRange) IsEmpty() bool {
	lb, ok := r.LowerBound()
	if !ok {
		return true
	}
	ub := r.UpperBound()
	return ub != nil && bytecmp.Compare(lb, ub) >= 0
}

// IsPoint returns true if the range holds the single key of a given size
func (r ScanRange) IsPoint(keySize int) bool {
	return len(r.Start) == keySize && r.StartInclusive && r.EndInclusive &&
		bytecmp.Compare(r.Start, r.End) == 0
}

// AscendingStartKey returns the first key of a given fixed size within the
// range, to position an iterator walking upwards. Returns false if no key of
// that size can be within the range.
func (r ScanRange) AscendingStartKey(keySize int) ([]byte, bool) {
	if r.StartInclusive || len(r.Start) == 0 {
		return bytecmp.Pad(r.Start, keySize, 0x00), true
	}
	return bytecmp.NextByteInSameLength(bytecmp.Pad(r.Start, keySize, 0xff))
}

// DescendingStartKey returns the last key of a given fixed size within the
// range, to position an iterator walking downwards. Returns false if no key
// of that size can be within the range.
func (r ScanRange) DescendingStartKey(keySize int) ([]byte, bool) {
	if len(r.End) == 0 {
		return bytecmp.Pad(nil, keySize, 0xff), true
	}
	if r.EndInclusive {
		return bytecmp.Pad(r.End, keySize, 0xff), true
	}
	return bytecmp.PrevByteInSameLength(bytecmp.Pad(r.End, keySize, 0x00))
}

// String renders the range in interval notation with hex bounds
func (r ScanRange) String() string {
	var sb strings.Builder
	switch {
	case len(r.Start) == 0:
		sb.WriteString("(-inf")
	case r.StartInclusive:
		sb.WriteString("[" + hex.EncodeToString(r.Start))
	default:
		sb.WriteString("(" + hex.EncodeToString(r.Start))
	}
	sb.WriteString(", ")
	switch {
	case len(r.End) == 0:
		sb.WriteString("+inf)")
	case r.EndInclusive:
		sb.WriteString(hex.EncodeToString(r.End) + "]")
	default:
		sb.WriteString(hex.EncodeToString(r.End) + ")")
	}
	return sb.String()
}
