package filter

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/ridge/keystone/meta"
)

var regexCache sync.Map // pattern -> *regexp.Regexp

// Compile compiles a RegEx pattern, caching the result
func Compile(pattern string) (*regexp.Regexp, error) {
	if rx, ok := regexCache.Load(pattern); ok {
		return rx.(*regexp.Regexp), nil
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, rx)
	return rx, nil
}

func encode(field meta.Field, v any) ([]byte, error) {
	if !field.Encodable() {
		return nil, fmt.Errorf("%w: field %s has no comparable encoding", ErrUnsupported, field)
	}
	b, err := field.Type.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field, err)
	}
	return b, nil
}

func prefix(field meta.Field, v any) ([]byte, error) {
	if !field.Encodable() {
		return nil, fmt.Errorf("%w: field %s has no comparable encoding", ErrUnsupported, field)
	}
	b, err := field.Type.EncodePrefix(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field, err)
	}
	return b, nil
}

// Validate checks that every value in the filter can be encoded for its
// property type and every pattern compiles
func Validate(f Filter) error {
	var err error
	Walk(f, func(f Filter) bool {
		if err != nil {
			return false
		}
		err = validate(f)
		return err == nil
	})
	return err
}

func validate(f Filter) error {
	var err error
	switch f := f.(type) {
	case Equals:
		_, err = encode(f.Field, f.Value)
	case GreaterThan:
		_, err = encode(f.Field, f.Value)
	case GreaterThanEquals:
		_, err = encode(f.Field, f.Value)
	case LessThan:
		_, err = encode(f.Field, f.Value)
	case LessThanEquals:
		_, err = encode(f.Field, f.Value)
	case Range:
		var from, to []byte
		if from, err = encode(f.Field, f.From); err == nil {
			to, err = encode(f.Field, f.To)
		}
		if err == nil && bytes.Compare(from, to) > 0 {
			err = fmt.Errorf("range on %s: %v is after %v", f.Field, f.From, f.To)
		}
	case ValueIn:
		for _, v := range f.Values {
			if _, err = encode(f.Field, v); err != nil {
				break
			}
		}
	case Prefix:
		_, err = prefix(f.Field, f.Value)
	case RegEx:
		if _, err = Compile(f.Pattern); err != nil {
			err = fmt.Errorf("regex on %s: %w", f.Field, err)
		}
	case Not:
		if f.Filter == nil {
			err = fmt.Errorf("%w: Not without operand", ErrUnsupported)
		}
	case And, Or, Exists:
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupported, f)
	}
	return err
}

// Matches evaluates a filter against the values of a record. A nil filter
// matches everything. Comparisons against absent properties never match.
func Matches(f Filter, values meta.Values) (bool, error) {
	switch f := f.(type) {
	case nil:
		return true, nil

	case And:
		for _, sub := range f.Filters {
			ok, err := Matches(sub, values)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case Or:
		for _, sub := range f.Filters {
			ok, err := Matches(sub, values)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil

	case Not:
		ok, err := Matches(f.Filter, values)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case Exists:
		_, ok := values.Value(f.Field)
		return ok, nil

	case RegEx:
		v, ok := values.Value(f.Field)
		if !ok {
			return false, nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return false, fmt.Errorf("%w: regex on non-string field %s", ErrUnsupported, f.Field)
		}
		rx, err := Compile(f.Pattern)
		if err != nil {
			return false, fmt.Errorf("regex on %s: %w", f.Field, err)
		}
		return rx.MatchString(rv.String()), nil
	}

	field, ok := FieldOf(f)
	if !ok {
		return false, fmt.Errorf("%w: %T", ErrUnsupported, f)
	}
	v, ok := values.Value(field)
	if !ok {
		return false, nil
	}
	actual, err := encode(field, v)
	if err != nil {
		return false, err
	}

	cmp := func(other any) (int, error) {
		b, err := encode(field, other)
		if err != nil {
			return 0, err
		}
		return bytes.Compare(actual, b), nil
	}

	var c int
	switch f := f.(type) {
	case Equals:
		c, err = cmp(f.Value)
		return err == nil && c == 0, err
	case GreaterThan:
		c, err = cmp(f.Value)
		return err == nil && c > 0, err
	case GreaterThanEquals:
		c, err = cmp(f.Value)
		return err == nil && c >= 0, err
	case LessThan:
		c, err = cmp(f.Value)
		return err == nil && c < 0, err
	case LessThanEquals:
		c, err = cmp(f.Value)
		return err == nil && c <= 0, err
	case Range:
		if c, err = cmp(f.From); err != nil || c < 0 {
			return false, err
		}
		c, err = cmp(f.To)
		return err == nil && c <= 0, err
	case ValueIn:
		for _, other := range f.Values {
			if c, err = cmp(other); err != nil || c == 0 {
				return err == nil, err
			}
		}
		return false, nil
	case Prefix:
		p, err := prefix(field, f.Value)
		if err != nil {
			return false, err
		}
		return bytes.HasPrefix(actual, p), nil
	default:
		return false, fmt.Errorf("%w: %T", ErrUnsupported, f)
	}
}
