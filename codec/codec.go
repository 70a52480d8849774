// Package codec serializes records for storage.
//
// A record is a map from DB field names to independently encoded values.
// Only fields that differ from their zero value are written, so fields can be
// added to a structure without rewriting stored records, and fields unknown to
// the structure are ignored on decoding.
//
// Every stored record starts with a header byte naming its format and
// compression, so records written with any codec can be read by any other.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minlz"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/must/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCorrupt is returned when stored bytes cannot be decoded
var ErrCorrupt = errors.New("corrupt record")

// Format is the encoding of field values
type Format uint8

// Formats
const (
	MsgPack Format = iota + 1
	JSON
)

func (f Format) String() string {
	switch f {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("Format(%d)", f)
	}
}

// Compression is the compression applied to the encoded record
type Compression uint8

// Compressions
const (
	None Compression = iota
	Snappy
	Zstd
	MinLZ
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	case MinLZ:
		return "minlz"
	default:
		return fmt.Sprintf("Compression(%d)", c)
	}
}

// Codec encodes records with a given format and compression
type Codec struct {
	Format      Format
	Compression Compression
}

// Default is the codec used by stores unless configured otherwise
var Default = Codec{Format: MsgPack, Compression: Snappy}

func (c Codec) String() string {
	return fmt.Sprintf("%s+%s", c.Format, c.Compression)
}

func (c Codec) header() byte {
	return byte(c.Format)<<4 | byte(c.Compression)
}

func codecOf(header byte) Codec {
	return Codec{Format: Format(header >> 4), Compression: Compression(header & 0x0f)}
}

var (
	zstdEncoder = sync.OnceValue(func() *zstd.Encoder {
		return must.OK1(zstd.NewWriter(nil))
	})
	zstdDecoder = sync.OnceValue(func() *zstd.Decoder {
		return must.OK1(zstd.NewReader(nil))
	})
)

// Marshal serializes a record, given by value or pointer
func (c Codec) Marshal(s meta.Struct, obj any) ([]byte, error) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	if v.Type() != s.Type {
		panic(fmt.Sprintf("expected struct type %v", s.Type))
	}

	var body []byte
	var err error
	switch c.Format {
	case MsgPack:
		fields := map[string]msgpack.RawMessage{}
		err = encodeFields(s, v, func(name string, value any) error {
			raw, err := msgpack.Marshal(value)
			fields[name] = raw
			return err
		})
		if err == nil {
			body, err = msgpack.Marshal(fields)
		}
	case JSON:
		fields := map[string]json.RawMessage{}
		err = encodeFields(s, v, func(name string, value any) error {
			raw, err := json.Marshal(value)
			fields[name] = raw
			return err
		})
		if err == nil {
			body, err = json.Marshal(fields)
		}
	default:
		panic(fmt.Sprintf("unknown format %s", c.Format))
	}
	if err != nil {
		return nil, fmt.Errorf("record encoding failed: %s: %w", s, err)
	}

	res := []byte{c.header()}
	switch c.Compression {
	case None:
		return append(res, body...), nil
	case Snappy:
		return append(res, snappy.Encode(nil, body)...), nil
	case Zstd:
		return zstdEncoder().EncodeAll(body, res), nil
	case MinLZ:
		compressed, err := minlz.Encode(nil, body, minlz.LevelBalanced)
		if err != nil {
			return nil, fmt.Errorf("record encoding failed: %s: %w", s, err)
		}
		return append(res, compressed...), nil
	default:
		panic(fmt.Sprintf("unknown compression %s", c.Compression))
	}
}

func encodeFields(s meta.Struct, v reflect.Value, encode func(name string, value any) error) error {
	for _, field := range s.Fields {
		f := v.FieldByIndex(field.Index)
		if f.IsZero() {
			continue
		}
		if err := encode(field.DBName, f.Interface()); err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
	}
	return nil
}

// Unmarshal deserializes a record written by any codec into a new value of
// the structure type
func Unmarshal(s meta.Struct, data []byte) (any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrCorrupt)
	}
	c := codecOf(data[0])

	var body []byte
	var err error
	switch c.Compression {
	case None:
		body = data[1:]
	case Snappy:
		body, err = snappy.Decode(nil, data[1:])
	case Zstd:
		body, err = zstdDecoder().DecodeAll(data[1:], nil)
	case MinLZ:
		body, err = minlz.Decode(nil, data[1:])
	default:
		return nil, fmt.Errorf("%w: unknown compression %s", ErrCorrupt, c.Compression)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, c.Compression, err)
	}

	v := reflect.New(s.Type).Elem()
	switch c.Format {
	case MsgPack:
		var fields map[string]msgpack.RawMessage
		if err := msgpack.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s, err)
		}
		err = decodeFields(s, v, func(name string, ptr any) error {
			raw, ok := fields[name]
			if !ok {
				return nil
			}
			return msgpack.Unmarshal(raw, ptr)
		})
	case JSON:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s, err)
		}
		err = decodeFields(s, v, func(name string, ptr any) error {
			raw, ok := fields[name]
			if !ok {
				return nil
			}
			return json.Unmarshal(raw, ptr)
		})
	default:
		return nil, fmt.Errorf("%w: unknown format %s", ErrCorrupt, c.Format)
	}
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func decodeFields(s meta.Struct, v reflect.Value, decode func(name string, ptr any) error) error {
	for _, field := range s.Fields {
		f := v.FieldByIndex(field.Index)
		if err := decode(field.DBName, f.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: field %s of %s: %w", ErrCorrupt, field, s, err)
		}
	}
	return nil
}

// UnmarshalInto is like Unmarshal but stores the record at ptr
func UnmarshalInto(s meta.Struct, data []byte, ptr any) error {
	v, err := Unmarshal(s, data)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.Elem().Type() != s.Type {
		panic(fmt.Sprintf("pointer to %v expected, got %T", s.Type, ptr))
	}
	rv.Elem().Set(reflect.ValueOf(v))
	return nil
}
