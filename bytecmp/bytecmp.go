// Package bytecmp contains unsigned byte sequence helpers shared by the key
// encoders, the scan range compiler and the storage backends.
//
// All comparisons are lexicographic over unsigned bytes; a sequence that is a
// proper prefix of another sorts before it.
package bytecmp

import "bytes"

// Compare compares a and b and returns -1, 0 or 1
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// CompareWithOffsetLength compares a in full against b[offset:offset+length].
// The window is clipped to the end of b.
func CompareWithOffsetLength(a, b []byte, offset, length int) int {
	if offset > len(b) {
		offset = len(b)
	}
	end := offset + length
	if end > len(b) {
		end = len(b)
	}
	return bytes.Compare(a, b[offset:end])
}

// ComparePrefix compares bound against the leading len(bound) bytes of key.
// A key shorter than bound compares as the shorter sequence.
func ComparePrefix(bound, key []byte) int {
	return CompareWithOffsetLength(bound, key, 0, len(bound))
}

// PrevByteInSameLength returns the greatest sequence of the same length that
// is smaller than b. Returns false if b is empty or all zeros.
func PrevByteInSameLength(b []byte) ([]byte, bool) {
	res := bytes.Clone(b)
	for i := len(res) - 1; i >= 0; i-- {
		if res[i] != 0x00 {
			res[i]--
			return res, true
		}
		res[i] = 0xff
	}
	return nil, false
}

// NextByteInSameLength returns the smallest sequence of the same length that
// is greater than b. Returns false if b is empty or all 0xff.
func NextByteInSameLength(b []byte) ([]byte, bool) {
	res := bytes.Clone(b)
	for i := len(res) - 1; i >= 0; i-- {
		if res[i] != 0xff {
			res[i]++
			return res, true
		}
		res[i] = 0x00
	}
	return nil, false
}

// PrefixEnd returns the smallest sequence greater than every sequence that
// starts with p, or nil if there is none (p is empty or all 0xff).
func PrefixEnd(p []byte) []byte {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0xff {
			end := make([]byte, i+1)
			copy(end, p)
			end[i]++
			return end
		}
	}
	return nil
}

// Complement returns a copy of b with every bit inverted
func Complement(b []byte) []byte {
	if b == nil {
		return nil
	}
	res := make([]byte, len(b))
	for i, c := range b {
		res[i] = ^c
	}
	return res
}

// Pad returns a copy of b extended to size bytes with fill.
// Sequences already at least size long are copied unchanged.
func Pad(b []byte, size int, fill byte) []byte {
	if len(b) >= size {
		return bytes.Clone(b)
	}
	res := make([]byte, size)
	copy(res, b)
	for i := len(b); i < size; i++ {
		res[i] = fill
	}
	return res
}

// Concat joins parts into a freshly allocated sequence
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	res := make([]byte, 0, n)
	for _, p := range parts {
		res = append(res, p...)
	}
	return res
}
