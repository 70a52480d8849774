// Package memstore keeps records in memory, in go-memdb tables
package memstore

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/hashicorp/go-memdb"
	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/scan"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/tlog"
	"github.com/ridge/must/v2"
	"go.uber.org/zap"
)

const idIndex = "id"

func indexName(family string) string {
	return "i/" + family
}

func uniqueName(field meta.Field) string {
	return "u/" + hex.EncodeToString(field.Ref())
}

// row is a stored record together with its precomputed index values
type row struct {
	key     []byte
	data    []byte
	entries map[string][]byte // by index family
	uniques map[string][]byte // by unique index name
}

// bytesIndexer indexes rows by one of their precomputed byte values
type bytesIndexer struct {
	value func(r *row) ([]byte, bool)
}

func (bi bytesIndexer) FromObject(obj any) (bool, []byte, error) {
	b, ok := bi.value(obj.(*row))
	return ok, b, nil
}

func (bi bytesIndexer) FromArgs(args ...any) ([]byte, error) {
	switch len(args) {
	case 0:
		return []byte{}, nil
	case 1:
		b, ok := args[0].([]byte)
		if !ok {
			return nil, fmt.Errorf("[]byte argument expected, got %T", args[0])
		}
		return b, nil
	default:
		return nil, fmt.Errorf("at most one argument expected, got %d", len(args))
	}
}

func tableSchema(kind *model.Kind) *memdb.TableSchema {
	indexes := map[string]*memdb.IndexSchema{
		idIndex: {
			Name:    idIndex,
			Unique:  true,
			Indexer: bytesIndexer{value: func(r *row) ([]byte, bool) { return r.key, true }},
		},
	}
	for _, name := range kind.IndexNames() {
		family := must.OK1(kind.Family(name))
		indexes[indexName(family)] = &memdb.IndexSchema{
			Name:         indexName(family),
			Unique:       true, // entries end with the primary key
			AllowMissing: true,
			Indexer: bytesIndexer{value: func(r *row) ([]byte, bool) {
				b, ok := r.entries[family]
				return b, ok
			}},
		}
	}
	for _, field := range kind.Uniques {
		name := uniqueName(field)
		indexes[name] = &memdb.IndexSchema{
			Name:         name,
			Unique:       true,
			AllowMissing: true,
			Indexer: bytesIndexer{value: func(r *row) ([]byte, bool) {
				b, ok := r.uniques[name]
				return b, ok
			}},
		}
	}
	return &memdb.TableSchema{Name: kind.DBName, Indexes: indexes}
}

// Store is an in-memory store. Safe for concurrent use.
type Store struct {
	kinds   store.Kinds
	options store.Options
	db      *memdb.MemDB
}

var _ store.Store = (*Store)(nil)

// New creates an in-memory store for the given kinds
func New(kinds []*model.Kind, opts ...store.Option) *Store {
	tables := map[string]*memdb.TableSchema{}
	for _, kind := range kinds {
		tables[kind.DBName] = tableSchema(kind)
	}
	return &Store{
		kinds:   store.NewKinds(kinds),
		options: store.NewOptions(opts...),
		db:      must.OK1(memdb.NewMemDB(&memdb.DBSchema{Tables: tables})),
	}
}

// Put writes a record given by pointer and returns its primary key
func (s *Store) Put(ctx context.Context, ptr any) ([]byte, error) {
	kind := s.kinds.OfPtr(ptr)
	if err := kind.AssignKey(ptr); err != nil {
		return nil, err
	}
	if err := kind.Validate(ptr); err != nil {
		return nil, err
	}
	key, err := kind.KeyOf(ptr)
	if err != nil {
		return nil, err
	}
	ref := model.Ref{Kind: kind, Key: key}

	r := &row{key: key, entries: map[string][]byte{}, uniques: map[string][]byte{}}
	for _, name := range kind.IndexNames() {
		entry, ok, err := kind.IndexEntry(name, ptr, key)
		if err != nil {
			return nil, err
		}
		if ok {
			r.entries[must.OK1(kind.Family(name))] = entry
		}
	}
	uniques, err := kind.UniqueValues(ptr)
	if err != nil {
		return nil, err
	}
	if r.data, err = s.options.Codec.Marshal(kind.Struct, ptr); err != nil {
		return nil, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()
	for _, u := range uniques {
		name := uniqueName(u.Field)
		holder := must.OK1(txn.First(kind.DBName, name, u.Value))
		if holder != nil && !bytes.Equal(holder.(*row).key, key) {
			return nil, fmt.Errorf("%w: %s: %s already held by %x", store.ErrUniqueConflict, ref, u.Field, holder.(*row).key)
		}
		r.uniques[name] = u.Value
	}
	must.OK(txn.Insert(kind.DBName, r))
	txn.Commit()

	tlog.Get(ctx).Debug("Record written", zap.Stringer("ref", ref))
	return key, nil
}

// Get reads the record with a given key into ptr
func (s *Store) Get(ctx context.Context, kind *model.Kind, key []byte, ptr any) (bool, error) {
	s.kinds.Check(kind)
	sn := snapshot{txn: s.db.Txn(false)}
	prefix := len(store.RecordPrefix(kind.DBName))
	return store.GetKV(func(k []byte) ([]byte, bool, error) {
		return sn.Record(ctx, kind, k[prefix:])
	}, kind, key, ptr)
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, kind *model.Kind, key []byte) error {
	s.kinds.Check(kind)
	ref := model.Ref{Kind: kind, Key: key}
	txn := s.db.Txn(true)
	defer txn.Abort()
	existing := must.OK1(txn.First(kind.DBName, idIndex, key))
	if existing == nil {
		return fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	}
	must.OK(txn.Delete(kind.DBName, existing))
	txn.Commit()

	tlog.Get(ctx).Debug("Record deleted", zap.Stringer("ref", ref))
	return nil
}

// Scan visits the records matching a request in a consistent snapshot
func (s *Store) Scan(ctx context.Context, kind *model.Kind, req store.Request, visit store.Visitor) error {
	s.kinds.Check(kind)
	return store.Execute(ctx, snapshot{txn: s.db.Txn(false)}, kind, req, visit)
}

// Close does nothing
func (s *Store) Close() error {
	return nil
}

// snapshot is a read-only view of the store serving scans
type snapshot struct {
	txn *memdb.Txn
}

var _ store.Engine = snapshot{}

func (sn snapshot) Record(_ context.Context, kind *model.Kind, key []byte) ([]byte, bool, error) {
	obj, err := sn.txn.First(kind.DBName, idIndex, key)
	if err != nil || obj == nil {
		return nil, false, err
	}
	return obj.(*row).data, true, nil
}

func (sn snapshot) Unique(_ context.Context, kind *model.Kind, field meta.Field, value []byte) ([]byte, bool, error) {
	obj, err := sn.txn.First(kind.DBName, uniqueName(field), value)
	if err != nil || obj == nil {
		return nil, false, err
	}
	return obj.(*row).key, true, nil
}

func (sn snapshot) Iterate(ctx context.Context, kind *model.Kind, family string, r scan.ScanRange, descending bool,
	fn func(entry, record []byte) (bool, error)) error {
	lower, upper, ok := store.Bounds(nil, r)
	if !ok {
		return nil
	}

	index := idIndex
	value := func(r *row) ([]byte, []byte) { return r.key, r.data }
	if family != "" {
		index = indexName(family)
		value = func(r *row) ([]byte, []byte) { return r.entries[family], nil }
	}

	var it memdb.ResultIterator
	var err error
	switch {
	case !descending:
		it, err = sn.txn.LowerBound(kind.DBName, index, lower)
	case upper == nil:
		it, err = sn.txn.GetReverse(kind.DBName, index)
	default:
		it, err = sn.txn.ReverseLowerBound(kind.DBName, index, upper)
	}
	if err != nil {
		return err
	}

	for obj := it.Next(); obj != nil; obj = it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, data := value(obj.(*row))
		if !descending && upper != nil && bytecmp.Compare(entry, upper) >= 0 {
			return nil
		}
		if descending && bytecmp.Compare(entry, lower) < 0 {
			return nil
		}
		more, err := fn(entry, data)
		if err != nil || !more {
			return err
		}
	}
	return nil
}
