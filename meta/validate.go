package meta

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalid is returned for records that cannot be stored
var ErrInvalid = errors.New("invalid record")

// Validate checks that every required field of the entity is filled and that
// every present value of an encodable field has a key encoding. The entity
// may be given by value or pointer.
func (s Struct) Validate(entity any) error {
	v := reflect.Indirect(reflect.ValueOf(entity))
	if v.Type() != s.Type {
		panicf("expected struct type %v", s.Type)
	}
	values := structValues{v: v}
	for _, field := range s.Fields {
		if field.Required && v.FieldByIndex(field.Index).IsZero() {
			return fmt.Errorf("%w %s: missing required field %s", ErrInvalid, s, field)
		}
		if !field.Encodable() {
			continue
		}
		value, ok := values.Value(field)
		if !ok {
			continue
		}
		if _, err := field.Type.Encode(value); err != nil {
			return fmt.Errorf("%w %s: field %s: %w", ErrInvalid, s, field, err)
		}
	}
	return nil
}
