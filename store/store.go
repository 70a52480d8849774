// Package store defines the contract of record stores and the scan machinery
// shared by their backends.
//
// A scan compiles its filter once into primary key ranges and, when an index
// is requested, index ranges. The plan then picks the cheapest strategy: a
// lookup through a unique value, direct gets of single keys, or range scans.
// Every candidate key is checked against the range it was found in, then
// against the partial matchers, and the decoded record is finally checked
// against the whole filter.
package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/ridge/keystone/codec"
	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/model"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrUniqueConflict is returned when a write would give a unique property
	// value to a second record
	ErrUniqueConflict = errors.New("unique conflict")
)

// Request describes a scan
type Request struct {
	Filter       filter.Filter
	Index        string // name of the index to scan; primary key order if empty
	StartKey     []byte // primary key to resume from
	IncludeStart bool
	Descending   bool
	Limit        int  // no limit if 0
	Parallel     bool // scan ranges concurrently
}

// Visitor is called for every matching record with its primary key and a
// pointer to the decoded record. Returning false stops the scan.
type Visitor func(key []byte, obj any) bool

// Store is a persistent or in-memory collection of records of several kinds
type Store interface {
	// Put writes a record given by pointer, generating missing UUID key
	// parts, and returns its primary key
	Put(ctx context.Context, ptr any) ([]byte, error)
	// Get reads the record with a given key into ptr. Returns false if the
	// record does not exist.
	Get(ctx context.Context, kind *model.Kind, key []byte, ptr any) (bool, error)
	// Delete removes a record. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, kind *model.Kind, key []byte) error
	// Scan visits the records matching a request
	Scan(ctx context.Context, kind *model.Kind, req Request, visit Visitor) error
	// Close releases the resources of the store
	Close() error
}

// Kinds is a registry of the kinds handled by a store
type Kinds struct {
	byType map[reflect.Type]*model.Kind
	all    []*model.Kind
}

// NewKinds creates a registry. Panics if a record type is registered twice.
func NewKinds(kinds []*model.Kind) Kinds {
	ks := Kinds{byType: map[reflect.Type]*model.Kind{}, all: kinds}
	for _, kind := range kinds {
		if ks.byType[kind.Type] != nil {
			panic(fmt.Sprintf("duplicate entity type: %v", kind.Type))
		}
		ks.byType[kind.Type] = kind
	}
	return ks
}

// All returns the registered kinds
func (ks Kinds) All() []*model.Kind {
	return ks.all
}

// OfPtr returns the kind of the record pointed to by ptr
func (ks Kinds) OfPtr(ptr any) *model.Kind {
	t := reflect.TypeOf(ptr)
	if t == nil || t.Kind() != reflect.Ptr {
		panic("pointer expected")
	}
	kind := ks.byType[t.Elem()]
	if kind == nil {
		panic(fmt.Sprintf("unexpected struct type: %v", t))
	}
	return kind
}

// Check panics if kind is not registered
func (ks Kinds) Check(kind *model.Kind) {
	if ks.byType[kind.Type] != kind {
		panic(fmt.Sprintf("unexpected kind: %s", kind))
	}
}

// Options configure a store
type Options struct {
	Codec           codec.Codec
	Sync            bool
	BloomCapacity   uint
	BloomFalseRatio float64
}

// Option changes store options
type Option func(*Options)

// WithCodec sets the codec used to write records
func WithCodec(c codec.Codec) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithSync makes every write durable before it returns
func WithSync(sync bool) Option {
	return func(o *Options) {
		o.Sync = sync
	}
}

// WithBloom sizes the bloom filters of unique values: expected number of
// values and false positive ratio
func WithBloom(capacity uint, falseRatio float64) Option {
	return func(o *Options) {
		o.BloomCapacity = capacity
		o.BloomFalseRatio = falseRatio
	}
}

// NewOptions applies options over the defaults
func NewOptions(opts ...Option) Options {
	o := Options{
		Codec:           codec.Default,
		BloomCapacity:   100000,
		BloomFalseRatio: 0.01,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
