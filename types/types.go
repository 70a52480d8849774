// Package types defines the closed set of property types that can take part
// in keys and indexes, together with their order-preserving byte encodings.
//
// For every type the lexicographic order of encodings equals the logical
// order of values. Fixed-width types always encode to the same number of
// bytes. Strings are variable-width and carry a 0x00 terminator, which makes
// every encoding prefix-free.
package types

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a property type
type Kind uint8

// Kind values
const (
	Invalid Kind = iota
	Bool
	UInt8
	UInt16
	UInt32
	UInt64
	SInt8
	SInt16
	SInt32
	SInt64
	Float64
	String
	DateTime
	FixedBytes
	UUID
)

var kindNames = [...]string{
	Invalid:    "invalid",
	Bool:       "bool",
	UInt8:      "uint8",
	UInt16:     "uint16",
	UInt32:     "uint32",
	UInt64:     "uint64",
	SInt8:      "int8",
	SInt16:     "int16",
	SInt32:     "int32",
	SInt64:     "int64",
	Float64:    "float64",
	String:     "string",
	DateTime:   "datetime",
	FixedBytes: "bytes",
	UUID:       "uuid",
}

// String returns the name of the kind
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Errors returned by encoding functions
var (
	ErrIncompatible = errors.New("incompatible value")
	ErrOutOfRange   = errors.New("value out of range")
	ErrMalformed    = errors.New("malformed encoding")
)

// Type is a property type. Size is only meaningful for FixedBytes.
type Type struct {
	Kind Kind
	Size int
}

// Predefined types
var (
	TBool     = Type{Kind: Bool}
	TUInt8    = Type{Kind: UInt8}
	TUInt16   = Type{Kind: UInt16}
	TUInt32   = Type{Kind: UInt32}
	TUInt64   = Type{Kind: UInt64}
	TSInt8    = Type{Kind: SInt8}
	TSInt16   = Type{Kind: SInt16}
	TSInt32   = Type{Kind: SInt32}
	TSInt64   = Type{Kind: SInt64}
	TFloat64  = Type{Kind: Float64}
	TString   = Type{Kind: String}
	TDateTime = Type{Kind: DateTime}
	TUUID     = Type{Kind: UUID}
)

// Bytes returns the fixed-width byte array type of a given size
func Bytes(size int) Type {
	if size <= 0 {
		panic(fmt.Sprintf("invalid fixed bytes size %d", size))
	}
	return Type{Kind: FixedBytes, Size: size}
}

// Name returns a stable textual name of the type, accepted by Parse
func (t Type) Name() string {
	if t.Kind == FixedBytes {
		return kindNames[FixedBytes] + strconv.Itoa(t.Size)
	}
	return t.Kind.String()
}

// String returns the name of the type
func (t Type) String() string {
	return t.Name()
}

// Valid returns true if t can be encoded
func (t Type) Valid() bool {
	return t.Kind != Invalid && int(t.Kind) < len(kindNames)
}

// Parse parses a type name as returned by Name
func Parse(name string) (Type, error) {
	if rest, ok := strings.CutPrefix(name, kindNames[FixedBytes]); ok && rest != "" {
		size, err := strconv.Atoi(rest)
		if err != nil || size <= 0 {
			return Type{}, fmt.Errorf("invalid type name %q", name)
		}
		return Bytes(size), nil
	}
	for k, n := range kindNames {
		if n == name && Kind(k) != Invalid && Kind(k) != FixedBytes {
			return Type{Kind: Kind(k)}, nil
		}
	}
	return Type{}, fmt.Errorf("invalid type name %q", name)
}

// FixedSize returns the width of every encoding of the type, or false for
// variable-width types
func (t Type) FixedSize() (int, bool) {
	switch t.Kind {
	case Bool, UInt8, SInt8:
		return 1, true
	case UInt16, SInt16:
		return 2, true
	case UInt32, SInt32:
		return 4, true
	case UInt64, SInt64, Float64:
		return 8, true
	case DateTime:
		return 12, true
	case FixedBytes:
		return t.Size, true
	case UUID:
		return 16, true
	default:
		return 0, false
	}
}

// Terminator returns the final byte of a variable-width encoding. Reversed
// storage complements every byte, including the terminator.
func (t Type) Terminator(reversed bool) byte {
	if reversed {
		return 0xff
	}
	return 0x00
}

// Width returns the length of the encoding at the start of b, or false if b
// does not hold a complete encoding
func (t Type) Width(b []byte, reversed bool) (int, bool) {
	if size, ok := t.FixedSize(); ok {
		return size, len(b) >= size
	}
	if !t.Valid() {
		return 0, false
	}
	term := t.Terminator(reversed)
	for i, c := range b {
		if c == term {
			return i + 1, true
		}
	}
	return 0, false
}

// Max returns the greatest possible encoding of a fixed-width type (all
// 0xff), or nil for variable-width types
func (t Type) Max() []byte {
	size, ok := t.FixedSize()
	if !ok {
		return nil
	}
	b := make([]byte, size)
	for i := range b {
		b[i] = 0xff
	}
	return b
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// Of returns the property type for a Go type, or false if values of the Go
// type cannot be encoded
func Of(t reflect.Type) (Type, bool) {
	switch t {
	case timeType:
		return TDateTime, true
	case uuidType:
		return TUUID, true
	}
	switch t.Kind() {
	case reflect.Bool:
		return TBool, true
	case reflect.Uint8:
		return TUInt8, true
	case reflect.Uint16:
		return TUInt16, true
	case reflect.Uint32:
		return TUInt32, true
	case reflect.Uint, reflect.Uint64:
		return TUInt64, true
	case reflect.Int8:
		return TSInt8, true
	case reflect.Int16:
		return TSInt16, true
	case reflect.Int32:
		return TSInt32, true
	case reflect.Int, reflect.Int64:
		return TSInt64, true
	case reflect.Float32, reflect.Float64:
		return TFloat64, true
	case reflect.String:
		return TString, true
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 && t.Len() > 0 {
			return Bytes(t.Len()), true
		}
	}
	return Type{}, false
}

// GoType returns the Go type holding values of t: the inverse of Of for the
// canonical Go type of every kind
func (t Type) GoType() (reflect.Type, bool) {
	switch t.Kind {
	case Bool:
		return reflect.TypeOf(false), true
	case UInt8:
		return reflect.TypeOf(uint8(0)), true
	case UInt16:
		return reflect.TypeOf(uint16(0)), true
	case UInt32:
		return reflect.TypeOf(uint32(0)), true
	case UInt64:
		return reflect.TypeOf(uint64(0)), true
	case SInt8:
		return reflect.TypeOf(int8(0)), true
	case SInt16:
		return reflect.TypeOf(int16(0)), true
	case SInt32:
		return reflect.TypeOf(int32(0)), true
	case SInt64:
		return reflect.TypeOf(int64(0)), true
	case Float64:
		return reflect.TypeOf(float64(0)), true
	case String:
		return reflect.TypeOf(""), true
	case DateTime:
		return timeType, true
	case UUID:
		return uuidType, true
	case FixedBytes:
		if t.Size > 0 {
			return reflect.ArrayOf(t.Size, reflect.TypeOf(byte(0))), true
		}
	}
	return nil, false
}
