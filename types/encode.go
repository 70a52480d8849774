package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unixSecondsOffset = time.Time{}.Unix()

func incompatible(t Type, v any) error {
	return fmt.Errorf("%w: %T for %s", ErrIncompatible, v, t)
}

func outOfRange(t Type, v any) error {
	return fmt.Errorf("%w: %v for %s", ErrOutOfRange, v, t)
}

func deref(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}

func (t Type) unsigned(rv reflect.Value, v any) (uint64, error) {
	size, _ := t.FixedSize()
	var n uint64
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n = rv.Uint()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < 0 {
			return 0, outOfRange(t, v)
		}
		n = uint64(i)
	default:
		return 0, incompatible(t, v)
	}
	if size < 8 && n >= 1<<(8*size) {
		return 0, outOfRange(t, v)
	}
	return n, nil
}

func (t Type) signed(rv reflect.Value, v any) (int64, error) {
	size, _ := t.FixedSize()
	var n int64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, outOfRange(t, v)
		}
		n = int64(u)
	default:
		return 0, incompatible(t, v)
	}
	if size < 8 {
		limit := int64(1) << (8*size - 1)
		if n < -limit || n >= limit {
			return 0, outOfRange(t, v)
		}
	}
	return n, nil
}

func (t Type) float(rv reflect.Value, v any) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	default:
		return 0, incompatible(t, v)
	}
}

func (t Type) rawBytes(rv reflect.Value, v any) ([]byte, error) {
	switch {
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return rv.Bytes(), nil
	case rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8:
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return b, nil
	default:
		return nil, incompatible(t, v)
	}
}

func (t Type) uuid(rv reflect.Value, v any) (uuid.UUID, error) {
	if rv.Kind() == reflect.String {
		id, err := uuid.Parse(rv.String())
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("%w: %s", ErrIncompatible, err)
		}
		return id, nil
	}
	b, err := t.rawBytes(rv, v)
	if err != nil {
		return uuid.UUID{}, err
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.UUID{}, incompatible(t, v)
	}
	return id, nil
}

func (t Type) str(rv reflect.Value, v any) (string, error) {
	if rv.Kind() != reflect.String {
		return "", incompatible(t, v)
	}
	s := rv.String()
	if strings.IndexByte(s, 0) >= 0 {
		return "", fmt.Errorf("%w: string %q contains NUL", ErrIncompatible, s)
	}
	return s, nil
}

// Encode renders a value as its order-preserving byte encoding
func (t Type) Encode(v any) ([]byte, error) {
	rv, ok := deref(v)
	if !ok {
		return nil, incompatible(t, v)
	}

	switch t.Kind {
	case Bool:
		if rv.Kind() != reflect.Bool {
			return nil, incompatible(t, v)
		}
		if rv.Bool() {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case UInt8, UInt16, UInt32, UInt64:
		n, err := t.unsigned(rv, v)
		if err != nil {
			return nil, err
		}
		size, _ := t.FixedSize()
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], n)
		return append([]byte(nil), b[8-size:]...), nil

	case SInt8, SInt16, SInt32, SInt64:
		n, err := t.signed(rv, v)
		if err != nil {
			return nil, err
		}
		size, _ := t.FixedSize()
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(n))
		res := append([]byte(nil), b[8-size:]...)
		// inverting the sign bit makes the serializations sort naturally
		res[0] ^= 0x80
		return res, nil

	case Float64:
		f, err := t.float(rv, v)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) {
			return nil, outOfRange(t, v)
		}
		bits := math.Float64bits(f)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, bits)
		return b, nil

	case String:
		s, err := t.str(rv, v)
		if err != nil {
			return nil, err
		}
		return []byte(s + "\x00"), nil

	case DateTime:
		if rv.Type() != timeType {
			return nil, incompatible(t, v)
		}
		// The time is kept close to its internal format: seconds since
		// time.Time{} (64 bits) followed by nanoseconds (32 bits), so that
		// time.Time{} encodes to all zeros.
		tm := rv.Interface().(time.Time)
		b := make([]byte, 12)
		binary.BigEndian.PutUint64(b[:8], uint64(tm.Unix()-unixSecondsOffset))
		binary.BigEndian.PutUint32(b[8:], uint32(tm.Nanosecond()))
		return b, nil

	case FixedBytes:
		b, err := t.rawBytes(rv, v)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("%w: %d bytes for %s", ErrIncompatible, len(b), t)
		}
		return bytes.Clone(b), nil

	case UUID:
		id, err := t.uuid(rv, v)
		if err != nil {
			return nil, err
		}
		return id[:], nil

	default:
		return nil, fmt.Errorf("%w: type %s cannot be encoded", ErrIncompatible, t)
	}
}

// EncodePrefix renders a partial value of a string or byte array type. Every
// encoding of a value starting with v starts with the result.
func (t Type) EncodePrefix(v any) ([]byte, error) {
	rv, ok := deref(v)
	if !ok {
		return nil, incompatible(t, v)
	}
	switch t.Kind {
	case String:
		s, err := t.str(rv, v)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case FixedBytes:
		b, err := t.rawBytes(rv, v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%w: %d byte prefix for %s", ErrIncompatible, len(b), t)
		}
		return bytes.Clone(b), nil
	default:
		return nil, fmt.Errorf("%w: prefix of %s", ErrIncompatible, t)
	}
}

// Decode parses an encoding produced by Encode. The result has the canonical
// Go type for the kind: bool, uintN, intN, float64, string, time.Time, []byte
// or uuid.UUID.
func (t Type) Decode(b []byte) (any, error) {
	if size, ok := t.FixedSize(); ok && len(b) != size {
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrMalformed, len(b), t)
	}

	switch t.Kind {
	case Bool:
		return b[0] != 0, nil
	case UInt8:
		return b[0], nil
	case UInt16:
		return binary.BigEndian.Uint16(b), nil
	case UInt32:
		return binary.BigEndian.Uint32(b), nil
	case UInt64:
		return binary.BigEndian.Uint64(b), nil
	case SInt8:
		return int8(b[0] ^ 0x80), nil
	case SInt16:
		return int16(binary.BigEndian.Uint16(b) ^ 0x8000), nil
	case SInt32:
		return int32(binary.BigEndian.Uint32(b) ^ 0x80000000), nil
	case SInt64:
		return int64(binary.BigEndian.Uint64(b) ^ 1<<63), nil
	case Float64:
		bits := binary.BigEndian.Uint64(b)
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), nil
	case String:
		if len(b) == 0 || b[len(b)-1] != 0 || bytes.IndexByte(b[:len(b)-1], 0) >= 0 {
			return nil, fmt.Errorf("%w: string %q", ErrMalformed, b)
		}
		return string(b[:len(b)-1]), nil
	case DateTime:
		secs := int64(binary.BigEndian.Uint64(b[:8])) + unixSecondsOffset
		nanos := int64(binary.BigEndian.Uint32(b[8:]))
		return time.Unix(secs, nanos).UTC(), nil
	case FixedBytes:
		return bytes.Clone(b), nil
	case UUID:
		return uuid.FromBytes(b)
	default:
		return nil, fmt.Errorf("%w: type %s cannot be decoded", ErrMalformed, t)
	}
}
