package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/indexable"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/scan"
)

// ErrUnknownIndex is returned when a request names an index the kind lacks
var ErrUnknownIndex = errors.New("unknown index")

// Kind describes a particular type of records handled by the stores: the
// structure, its primary key and its secondary indexes.
// All fields are read-only.
type Kind struct {
	meta.Struct
	Key     indexable.Indexable
	KeySize int
	Indexes map[string]indexable.Indexable
	Uniques []meta.Field
}

// KindOf creates a Kind for a given record example, primary key and index
// definitions, all in the shorthand accepted by indexable.Parse. Index names
// are the definitions themselves.
//
// Example:
//
//	var kindEvent = model.KindOf(event{}, "Number -Time @uuid7", "Name", "Time Number")
//
// Panics if a definition is invalid, the key is not fixed width or an index
// is defined twice.
func KindOf(example any, key string, indexes ...string) *Kind {
	s := meta.Survey(reflect.TypeOf(example))
	kind := Kind{
		Struct:  s,
		Key:     indexable.MustParse(s, key),
		Indexes: map[string]indexable.Indexable{},
	}
	size, ok := indexable.FixedWidth(kind.Key)
	if !ok {
		panic(fmt.Sprintf("key %q of %s must be fixed width", key, s))
	}
	kind.KeySize = size

	for _, def := range indexes {
		ix := indexable.MustParse(s, def)
		name := indexable.Describe(ix)
		if kind.Indexes[name] != nil {
			panic(fmt.Sprintf("duplicate index name on %s: %s", s, name))
		}
		kind.Indexes[name] = ix
	}

	for _, field := range s.Fields {
		if field.Unique {
			kind.Uniques = append(kind.Uniques, field)
		}
	}
	return &kind
}

// Index returns the secondary index with a given name
func (k *Kind) Index(name string) (indexable.Indexable, bool) {
	ix, ok := k.Indexes[name]
	return ix, ok
}

// IndexNames returns the names of all secondary indexes, sorted
func (k *Kind) IndexNames() []string {
	names := make([]string, 0, len(k.Indexes))
	for name := range k.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Family returns the storage family name of an index
func (k *Kind) Family(name string) (string, error) {
	ix, ok := k.Indexes[name]
	if !ok {
		return "", fmt.Errorf("%w %q on %s", ErrUnknownIndex, name, k)
	}
	return indexable.FamilyName(ix), nil
}

func (k *Kind) entity(obj any) reflect.Value {
	v := reflect.Indirect(reflect.ValueOf(obj))
	if v.Type() != k.Type {
		panic(fmt.Sprintf("unexpected type %T for %s", obj, k))
	}
	return v
}

// Validate checks that obj can be stored: required fields are filled and
// every value has a key encoding
func (k *Kind) Validate(obj any) error {
	return k.Struct.Validate(k.entity(obj).Interface())
}

// KeyOf returns the primary key of obj
func (k *Kind) KeyOf(obj any) ([]byte, error) {
	key, err := indexable.StorageBytes(k.Key, k.ValuesOf(obj))
	if err != nil {
		return nil, fmt.Errorf("key of %s: %w", k, err)
	}
	return key, nil
}

// AssignKey fills zero UUID key parts of the record at ptr with newly
// generated identities
func (k *Kind) AssignKey(ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.Elem().Type() != k.Type {
		panic(fmt.Sprintf("pointer to %v expected, got %T", k.Type, ptr))
	}
	for _, part := range indexable.Parts(k.Key) {
		field := indexable.Fields(part)[0]
		fv := rv.Elem().FieldByIndex(field.Index)
		if !fv.IsZero() {
			continue
		}
		id, ok, err := indexable.Generate(part)
		if err != nil {
			return fmt.Errorf("generating %s of %s: %w", field, k, err)
		}
		if ok {
			fv.Set(reflect.ValueOf(id).Convert(fv.Type()))
		}
	}
	return nil
}

// IndexEntry returns the entry of obj stored in the named index: the index
// value followed by the primary key. Returns false if some property the index
// is built from is absent.
func (k *Kind) IndexEntry(name string, obj any, key []byte) ([]byte, bool, error) {
	ix, ok := k.Indexes[name]
	if !ok {
		return nil, false, fmt.Errorf("%w %q on %s", ErrUnknownIndex, name, k)
	}
	value, err := indexable.StorageBytes(ix, k.ValuesOf(obj))
	switch {
	case errors.Is(err, indexable.ErrMissingValue):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("index %s of %s: %w", name, k, err)
	}
	return append(value, key...), true, nil
}

// UniqueValue is the encoded value of a unique property
type UniqueValue struct {
	Field meta.Field
	Value []byte
}

// UniqueValues returns the encoded values of the unique properties of obj.
// Absent properties are skipped.
func (k *Kind) UniqueValues(obj any) ([]UniqueValue, error) {
	values := k.ValuesOf(obj)
	var res []UniqueValue
	for _, field := range k.Uniques {
		v, ok := values.Value(field)
		if !ok {
			continue
		}
		b, err := field.Type.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("unique %s of %s: %w", field, k, err)
		}
		res = append(res, UniqueValue{Field: field, Value: b})
	}
	return res, nil
}

// Compile compiles a filter into primary key ranges
func (k *Kind) Compile(f filter.Filter, startKey []byte, includeStart bool) (scan.KeyScanRanges, error) {
	return indexable.KeyScanRange(k.Key, f, startKey, includeStart)
}

// CompileIndex compiles a filter into ranges over the named index
func (k *Kind) CompileIndex(name string, f filter.Filter, key scan.KeyScanRanges) (scan.IndexScanRanges, error) {
	ix, ok := k.Indexes[name]
	if !ok {
		return scan.IndexScanRanges{}, fmt.Errorf("%w %q on %s", ErrUnknownIndex, name, k)
	}
	return indexable.IndexScanRange(ix, f, key)
}

// New returns a pointer to a new zero record of the kind
func (k *Kind) New() any {
	return reflect.New(k.Type).Interface()
}
