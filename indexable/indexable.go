package indexable

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/scan"
	"github.com/ridge/keystone/types"
)

// ErrMissingValue is returned when an entity lacks a value for one of the
// properties an indexable is built from
var ErrMissingValue = errors.New("missing value")

// Kind identifies an indexable variant
type Kind uint8

// Indexable kinds
const (
	KindReference Kind = iota + 1
	KindMultiple
	KindReversed
	KindReferenceToMax
	KindUUIDv4Key
	KindUUIDv7Key
)

var kindNames = [...]string{
	KindReference:      "Reference",
	KindMultiple:       "Multiple",
	KindReversed:       "Reversed",
	KindReferenceToMax: "ReferenceToMax",
	KindUUIDv4Key:      "UUIDv4Key",
	KindUUIDv7Key:      "UUIDv7Key",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Indexable describes how the ordered bytes of a key or an index value are
// built from the properties of an entity
type Indexable interface {
	Kind() Kind
	isIndexable()
}

// Reference is a single property stored in its ascending encoding
type Reference struct {
	Field meta.Field
}

// Multiple is a composite of several parts stored one after another
type Multiple struct {
	Parts []Indexable
}

// Reversed stores its part complemented so that it sorts descending
type Reversed struct {
	Part Indexable
}

// ReferenceToMax behaves like its part, but a scan with no upper limit on
// the part stops at the maximum value of the part's type
type ReferenceToMax struct {
	Part Indexable
}

// UUIDv4Key is a random UUID identity used as a key part
type UUIDv4Key struct {
	Field meta.Field
}

// UUIDv7Key is a time-ordered UUID identity used as a key part
type UUIDv7Key struct {
	Field meta.Field
}

func (Reference) Kind() Kind      { return KindReference }
func (Multiple) Kind() Kind       { return KindMultiple }
func (Reversed) Kind() Kind       { return KindReversed }
func (ReferenceToMax) Kind() Kind { return KindReferenceToMax }
func (UUIDv4Key) Kind() Kind      { return KindUUIDv4Key }
func (UUIDv7Key) Kind() Kind      { return KindUUIDv7Key }

func (Reference) isIndexable()      {}
func (Multiple) isIndexable()       {}
func (Reversed) isIndexable()       {}
func (ReferenceToMax) isIndexable() {}
func (UUIDv4Key) isIndexable()      {}
func (UUIDv7Key) isIndexable()      {}

// Ref returns a reference to the named property of the structure.
// Panics if the property does not exist or has no key encoding.
func Ref(s meta.Struct, name string) Indexable {
	f := s.MustField(name)
	if !f.Encodable() {
		panic(fmt.Errorf("field %s of %s has no key encoding", f, s))
	}
	return Reference{Field: f}
}

// Multi combines parts into a composite. Nested composites are flattened.
func Multi(parts ...Indexable) Indexable {
	if len(parts) == 0 {
		panic(errors.New("composite indexable needs at least one part"))
	}
	var flat []Indexable
	for _, part := range parts {
		if m, ok := part.(Multiple); ok {
			flat = append(flat, m.Parts...)
			continue
		}
		flat = append(flat, part)
	}
	return Multiple{Parts: flat}
}

// Reverse makes the part sort descending
func Reverse(part Indexable) Indexable {
	mustBeLeaf(part)
	return Reversed{Part: part}
}

// ToMax caps open-ended scans of the part at the type maximum
func ToMax(part Indexable) Indexable {
	mustBeLeaf(part)
	return ReferenceToMax{Part: part}
}

// UUIDv4 returns a random UUID key part on the identity field of s
func UUIDv4(s meta.Struct) Indexable {
	return UUIDv4Key{Field: identity(s)}
}

// UUIDv7 returns a time-ordered UUID key part on the identity field of s
func UUIDv7(s meta.Struct) Indexable {
	return UUIDv7Key{Field: identity(s)}
}

func identity(s meta.Struct) meta.Field {
	f, ok := s.Identity()
	if !ok {
		panic(fmt.Errorf("%s has no identity field", s))
	}
	return f
}

func mustBeLeaf(part Indexable) {
	if _, ok := part.(Multiple); ok {
		panic(errors.New("only single parts can be wrapped"))
	}
}

// Parts returns the parts of a composite, or the indexable itself
func Parts(ix Indexable) []Indexable {
	if m, ok := ix.(Multiple); ok {
		return m.Parts
	}
	return []Indexable{ix}
}

// leaf describes a single part after looking through its wrappers
type leaf struct {
	field    meta.Field
	reversed bool
	toMax    bool
}

func leafOf(part Indexable) leaf {
	switch p := part.(type) {
	case Reference:
		return leaf{field: p.Field}
	case UUIDv4Key:
		return leaf{field: p.Field}
	case UUIDv7Key:
		return leaf{field: p.Field}
	case Reversed:
		l := leafOf(p.Part)
		l.reversed = !l.reversed
		return l
	case ReferenceToMax:
		l := leafOf(p.Part)
		l.toMax = true
		return l
	default:
		panic(fmt.Sprintf("unexpected indexable part %T", part))
	}
}

// Fields returns the properties the indexable is built from, in order
func Fields(ix Indexable) []meta.Field {
	parts := Parts(ix)
	fields := make([]meta.Field, 0, len(parts))
	for _, part := range parts {
		fields = append(fields, leafOf(part).field)
	}
	return fields
}

// Spans returns the spans of all parts
func Spans(ix Indexable) []scan.Span {
	parts := Parts(ix)
	spans := make([]scan.Span, 0, len(parts))
	for _, part := range parts {
		l := leafOf(part)
		spans = append(spans, scan.SpanOf(l.field.Type, l.reversed))
	}
	return spans
}

// FixedWidth returns the total width of the stored bytes, or false if some
// part has a variable width
func FixedWidth(ix Indexable) (int, bool) {
	width := 0
	for _, span := range Spans(ix) {
		if span.Size == 0 {
			return 0, false
		}
		width += span.Size
	}
	return width, true
}

// locate returns the locator of part i
func locate(spans []scan.Span, i int) scan.Locator {
	offset := 0
	for _, span := range spans[:i] {
		if span.Size == 0 {
			return scan.Locator{Before: append([]scan.Span(nil), spans[:i]...)}
		}
		offset += span.Size
	}
	return scan.At(offset)
}

// StorageBytes builds the stored bytes of the indexable from the property
// values of an entity. Returns ErrMissingValue if some property is absent.
func StorageBytes(ix Indexable, values meta.Values) ([]byte, error) {
	var res []byte
	for _, part := range Parts(ix) {
		l := leafOf(part)
		v, ok := values.Value(l.field)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingValue, l.field)
		}
		b, err := l.field.Type.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", l.field, err)
		}
		if l.reversed {
			b = bytecmp.Complement(b)
		}
		res = append(res, b...)
	}
	return res, nil
}

// Generate returns a new value for a UUID key part, or false if the part is
// not a UUID key
func Generate(part Indexable) (uuid.UUID, bool, error) {
	switch part.(type) {
	case UUIDv4Key:
		id, err := uuid.NewRandom()
		return id, true, err
	case UUIDv7Key:
		id, err := uuid.NewV7()
		return id, true, err
	default:
		return uuid.Nil, false, nil
	}
}

// FamilyName returns a stable name derived from the structure of the
// indexable, usable in storage paths
func FamilyName(ix Indexable) string {
	return base64.RawURLEncoding.EncodeToString(appendFamily(nil, ix))
}

func appendFamily(b []byte, ix Indexable) []byte {
	b = append(b, byte(ix.Kind()))
	switch ix := ix.(type) {
	case Reference:
		return appendRef(b, ix.Field)
	case UUIDv4Key:
		return appendRef(b, ix.Field)
	case UUIDv7Key:
		return appendRef(b, ix.Field)
	case Multiple:
		b = binary.AppendUvarint(b, uint64(len(ix.Parts)))
		for _, part := range ix.Parts {
			b = appendFamily(b, part)
		}
		return b
	case Reversed:
		return appendFamily(b, ix.Part)
	case ReferenceToMax:
		return appendFamily(b, ix.Part)
	default:
		panic(fmt.Sprintf("unexpected indexable %T", ix))
	}
}

func appendRef(b []byte, f meta.Field) []byte {
	ref := f.Ref()
	b = binary.AppendUvarint(b, uint64(len(ref)))
	return append(b, ref...)
}

// Describe returns the shorthand form of the indexable accepted by Parse
func Describe(ix Indexable) string {
	parts := Parts(ix)
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		words = append(words, describe(part))
	}
	return strings.Join(words, " ")
}

func describe(part Indexable) string {
	switch p := part.(type) {
	case Reference:
		return p.Field.GoName
	case UUIDv4Key:
		return "@uuid4"
	case UUIDv7Key:
		return "@uuid7"
	case Reversed:
		return "-" + describe(p.Part)
	case ReferenceToMax:
		return describe(p.Part) + "^"
	default:
		panic(fmt.Sprintf("unexpected indexable part %T", part))
	}
}

// Type returns the value type of a part
func Type(part Indexable) types.Type {
	return leafOf(part).field.Type
}
