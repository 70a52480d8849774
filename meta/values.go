package meta

import (
	"reflect"
)

// Values is a source of property values for a single record
type Values interface {
	// Value returns the value of a field, or false if the field is absent
	Value(f Field) (any, bool)
}

type structValues struct {
	v reflect.Value
}

// ValuesOf returns the property values of an entity given by value or
// pointer. Nil pointer and nil interface fields are absent.
func (s Struct) ValuesOf(entity any) Values {
	v := reflect.Indirect(reflect.ValueOf(entity))
	if v.Type() != s.Type {
		panicf("expected struct type %v", s.Type)
	}
	return structValues{v: v}
}

func (sv structValues) Value(f Field) (any, bool) {
	if f.Index == nil {
		return nil, false
	}
	fv := sv.v.FieldByIndex(f.Index)
	switch fv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if fv.IsNil() {
			return nil, false
		}
		fv = fv.Elem()
	}
	return fv.Interface(), true
}

// ValueMap is a literal source of values keyed by property index
type ValueMap map[uint32]any

// Value implements Values
func (m ValueMap) Value(f Field) (any, bool) {
	v, ok := m[f.Prop]
	return v, ok && v != nil
}
