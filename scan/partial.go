package scan

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"

	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/types"
	"go.uber.org/zap/zapcore"
)

// Span describes how many bytes one part of a composite key occupies: a
// fixed Size, or everything up to and including Terminator when Size is 0
type Span struct {
	Size       int
	Terminator byte
}

// Width returns the length of the part at the start of b, or false if b is
// too short
func (s Span) Width(b []byte) (int, bool) {
	if s.Size > 0 {
		return s.Size, len(b) >= s.Size
	}
	i := bytes.IndexByte(b, s.Terminator)
	return i + 1, i >= 0
}

// Locator finds where a part of a composite key starts. When every
// preceding part is fixed-width the position is the static Offset;
// otherwise Before lists the spans of all preceding parts.
type Locator struct {
	Offset int
	Before []Span
}

// At returns a static locator
func At(offset int) Locator {
	return Locator{Offset: offset}
}

// Find returns the position of the part in key
func (l Locator) Find(key []byte) (int, bool) {
	if l.Before == nil {
		return l.Offset, l.Offset <= len(key)
	}
	off := 0
	for _, span := range l.Before {
		w, ok := span.Width(key[off:])
		if !ok {
			return 0, false
		}
		off += w
	}
	return off, true
}

// PartialKind identifies a partial matcher variant
type PartialKind uint8

// PartialKind values
const (
	KindToMatch PartialKind = iota + 1
	KindToBeOneOf
	KindToBeBigger
	KindToBeSmaller
	KindSizeToMatch
	KindToRegexMatch
)

var partialKindNames = [...]string{
	KindToMatch:      "IndexPartialToMatch",
	KindToBeOneOf:    "IndexPartialToBeOneOf",
	KindToBeBigger:   "IndexPartialToBeBigger",
	KindToBeSmaller:  "IndexPartialToBeSmaller",
	KindSizeToMatch:  "IndexPartialSizeToMatch",
	KindToRegexMatch: "IndexPartialToRegexMatch",
}

// String returns the name of the partial matcher kind
func (k PartialKind) String() string {
	if k > 0 && int(k) < len(partialKindNames) {
		return partialKindNames[k]
	}
	return fmt.Sprintf("PartialKind(%d)", uint8(k))
}

// Partial is one of the partial matcher variants declared in this package.
// A partial matcher is checked against every key found within the ranges.
type Partial interface {
	zapcore.ObjectMarshaler
	Kind() PartialKind
	isPartial()
}

// PartialToMatch requires the part at At to start with ToMatch
type PartialToMatch struct {
	At      Locator
	ToMatch []byte
}

// PartialToBeOneOf requires the part at At to start with one of ToBeOneOf
type PartialToBeOneOf struct {
	At        Locator
	ToBeOneOf [][]byte
}

// PartialToBeBigger requires the part at At to sort after Bound, compared
// with prefix semantics
type PartialToBeBigger struct {
	At        Locator
	Bound     []byte
	Inclusive bool
}

// PartialToBeSmaller requires the part at At to sort before Bound, compared
// with prefix semantics
type PartialToBeSmaller struct {
	At        Locator
	Bound     []byte
	Inclusive bool
}

// PartialSizeToMatch requires the part at At to be exactly Size bytes long
type PartialSizeToMatch struct {
	At   Locator
	Span Span
	Size int
}

// PartialToRegexMatch decodes the string part at At and matches it against
// Regex. It never narrows a range.
type PartialToRegexMatch struct {
	Field    meta.Field
	At       Locator
	Span     Span
	Reversed bool
	Regex    *regexp.Regexp
}

func (PartialToMatch) Kind() PartialKind      { return KindToMatch }
func (PartialToBeOneOf) Kind() PartialKind    { return KindToBeOneOf }
func (PartialToBeBigger) Kind() PartialKind   { return KindToBeBigger }
func (PartialToBeSmaller) Kind() PartialKind  { return KindToBeSmaller }
func (PartialSizeToMatch) Kind() PartialKind  { return KindSizeToMatch }
func (PartialToRegexMatch) Kind() PartialKind { return KindToRegexMatch }

func (PartialToMatch) isPartial()      {}
func (PartialToBeOneOf) isPartial()    {}
func (PartialToBeBigger) isPartial()   {}
func (PartialToBeSmaller) isPartial()  {}
func (PartialSizeToMatch) isPartial()  {}
func (PartialToRegexMatch) isPartial() {}

// MatchPartial checks a single partial matcher against a key
func MatchPartial(p Partial, key []byte) bool {
	switch p := p.(type) {
	case PartialToMatch:
		off, ok := p.At.Find(key)
		return ok && bytes.HasPrefix(key[off:], p.ToMatch)

	case PartialToBeOneOf:
		off, ok := p.At.Find(key)
		if !ok {
			return false
		}
		for _, m := range p.ToBeOneOf {
			if bytes.HasPrefix(key[off:], m) {
				return true
			}
		}
		return false

	case PartialToBeBigger:
		off, ok := p.At.Find(key)
		if !ok {
			return false
		}
		c := bytecmp.ComparePrefix(p.Bound, key[off:])
		return c < 0 || c == 0 && p.Inclusive

	case PartialToBeSmaller:
		off, ok := p.At.Find(key)
		if !ok {
			return false
		}
		c := bytecmp.ComparePrefix(p.Bound, key[off:])
		return c > 0 || c == 0 && p.Inclusive

	case PartialSizeToMatch:
		off, ok := p.At.Find(key)
		if !ok {
			return false
		}
		w, ok := p.Span.Width(key[off:])
		return ok && w == p.Size

	case PartialToRegexMatch:
		off, ok := p.At.Find(key)
		if !ok {
			return false
		}
		w, ok := p.Span.Width(key[off:])
		if !ok {
			return false
		}
		b := key[off : off+w]
		if p.Reversed {
			b = bytecmp.Complement(b)
		}
		v, err := p.Field.Type.Decode(b)
		if err != nil {
			return false
		}
		rv := reflect.ValueOf(v)
		return rv.Kind() == reflect.String && p.Regex.MatchString(rv.String())

	default:
		panic(fmt.Sprintf("unexpected partial matcher %T", p))
	}
}

// SpanOf returns the span of a part of a given type
func SpanOf(t types.Type, reversed bool) Span {
	if size, ok := t.FixedSize(); ok {
		return Span{Size: size}
	}
	return Span{Terminator: t.Terminator(reversed)}
}
