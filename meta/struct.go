package meta

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/ridge/keystone/types"
)

// Meta is a type for dummy fields bearing tags for the containing structure
type Meta struct{}

var metaType = reflect.TypeOf(Meta{})

// Field describes a leaf structure field (not an embedded substructure).
// All fields are read-only.
type Field struct {
	GoName string
	DBName string
	Index  []int
	GoType reflect.Type
	Prop   uint32     // property index, stable across renames
	Type   types.Type // zero if values of the field cannot be encoded

	Required bool
	Unique   bool
}

// String returns the Go and DB field names
func (f Field) String() string {
	if f.DBName != "" && f.DBName != f.GoName {
		return fmt.Sprintf("%s (%s)", f.GoName, f.DBName)
	}
	return f.GoName
}

// Ref returns the byte reference of the property: its index as uvarint
func (f Field) Ref() []byte {
	return binary.AppendUvarint(nil, uint64(f.Prop))
}

// Encodable returns true if values of the field have a key encoding
func (f Field) Encodable() bool {
	return f.Type.Valid()
}

// Struct describes a structure.
// All fields are read-only.
type Struct struct {
	DBName   string
	Type     reflect.Type
	Fields   []Field
	identity int // index into Fields
}

const noIdentity = -1

// String returns the Go and DB type names
func (s Struct) String() string {
	return fmt.Sprintf("%s (%s)", s.Type, s.DBName)
}

// Identity returns the structure's identity field, if declared
func (s Struct) Identity() (Field, bool) {
	if s.identity == noIdentity {
		return Field{}, false
	}
	return s.Fields[s.identity], true
}

// Field finds the field with a given Go or DB name
func (s Struct) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.GoName == name {
			return field, true
		}
	}
	for _, field := range s.Fields {
		if field.DBName == name {
			return field, true
		}
	}
	return Field{}, false
}

// MustField is like Field but panics if the field does not exist
func (s Struct) MustField(name string) Field {
	f, ok := s.Field(name)
	if !ok {
		panicf("field %s not found in %s", name, s)
	}
	return f
}

// ByProp finds the field with a given property index
func (s Struct) ByProp(prop uint32) (Field, bool) {
	for _, field := range s.Fields {
		if field.Prop == prop {
			return field, true
		}
	}
	return Field{}, false
}
