// Package pebblestore keeps records in a Pebble database
package pebblestore

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/cockroachdb/pebble/v2"
	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/scan"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/tlog"
	"go.uber.org/zap"
)

// Store is a store backed by Pebble. Safe for concurrent use.
type Store struct {
	kinds   store.Kinds
	options store.Options
	db      *pebble.DB

	writeMu sync.Mutex

	bloomMu sync.RWMutex
	blooms  map[string]*bloom.BloomFilter // by unique prefix
}

var _ store.Store = (*Store)(nil)

// Open opens or creates a database in dir
func Open(ctx context.Context, dir string, kinds []*model.Kind, opts ...store.Option) (*Store, error) {
	logger := tlog.Get(ctx).Named("pebble")
	db, err := pebble.Open(dir, &pebble.Options{Logger: logger.Sugar()})
	if err != nil {
		return nil, err
	}
	s := &Store{
		kinds:   store.NewKinds(kinds),
		options: store.NewOptions(opts...),
		db:      db,
		blooms:  map[string]*bloom.BloomFilter{},
	}
	if err := s.loadBlooms(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Store opened", zap.String("dir", dir), zap.Int("kinds", len(kinds)), zap.Int("blooms", len(s.blooms)))
	return s, nil
}

// loadBlooms fills the bloom filters with the unique values already stored
func (s *Store) loadBlooms() error {
	for _, kind := range s.kinds.All() {
		for _, field := range kind.Uniques {
			prefix := store.UniquePrefix(kind.DBName, field)
			bf := bloom.NewWithEstimates(s.options.BloomCapacity, s.options.BloomFalseRatio)
			s.blooms[string(prefix)] = bf

			it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: bytecmp.PrefixEnd(prefix)})
			if err != nil {
				return err
			}
			for valid := it.First(); valid; valid = it.Next() {
				bf.Add(it.Key()[len(prefix):])
			}
			if err := it.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// bloomOf finds the bloom filter of a unique storage key
func (s *Store) bloomOf(key []byte) (*bloom.BloomFilter, []byte) {
	for prefix, bf := range s.blooms {
		if bytes.HasPrefix(key, []byte(prefix)) {
			return bf, key[len(prefix):]
		}
	}
	return nil, nil
}

// mayHold returns false if the unique storage key is certainly absent
func (s *Store) mayHold(key []byte) bool {
	s.bloomMu.RLock()
	defer s.bloomMu.RUnlock()
	bf, value := s.bloomOf(key)
	return bf == nil || bf.Test(value)
}

func (s *Store) remember(key []byte) {
	s.bloomMu.Lock()
	defer s.bloomMu.Unlock()
	if bf, value := s.bloomOf(key); bf != nil {
		bf.Add(value)
	}
}

func (s *Store) writeOptions() *pebble.WriteOptions {
	if s.options.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// write runs fn over a batch and commits it
func (s *Store) write(fn func(kv store.KV) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	batch := s.db.NewIndexedBatch()
	defer batch.Close()
	if err := fn(batchKV{s: s, batch: batch}); err != nil {
		return err
	}
	return batch.Commit(s.writeOptions())
}

// Put writes a record given by pointer and returns its primary key
func (s *Store) Put(ctx context.Context, ptr any) ([]byte, error) {
	kind := s.kinds.OfPtr(ptr)
	var key []byte
	err := s.write(func(kv store.KV) error {
		var err error
		key, err = store.PutKV(ctx, kv, kind, s.options.Codec, ptr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Get reads the record with a given key into ptr
func (s *Store) Get(ctx context.Context, kind *model.Kind, key []byte, ptr any) (bool, error) {
	s.kinds.Check(kind)
	return store.GetKV(func(k []byte) ([]byte, bool, error) {
		return get(s.db, k)
	}, kind, key, ptr)
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, kind *model.Kind, key []byte) error {
	s.kinds.Check(kind)
	return s.write(func(kv store.KV) error {
		return store.DeleteKV(ctx, kv, kind, key)
	})
}

// Scan visits the records matching a request in a consistent snapshot
func (s *Store) Scan(ctx context.Context, kind *model.Kind, req store.Request, visit store.Visitor) error {
	s.kinds.Check(kind)
	snap := s.db.NewSnapshot()
	defer snap.Close()
	return store.Execute(ctx, engine{s: s, snap: snap}, kind, req, visit)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// get reads a value, copying it out of Pebble's buffers
func get(r pebble.Reader, key []byte) ([]byte, bool, error) {
	value, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return bytes.Clone(value), true, nil
}

// batchKV is the view of the store inside one write
type batchKV struct {
	s     *Store
	batch *pebble.Batch
}

func (kv batchKV) Get(key []byte) ([]byte, bool, error) {
	if !kv.s.mayHold(key) {
		return nil, false, nil
	}
	return get(kv.batch, key)
}

func (kv batchKV) Set(key, value []byte) error {
	kv.s.remember(key)
	return kv.batch.Set(key, value, nil)
}

func (kv batchKV) Delete(key []byte) error {
	return kv.batch.Delete(key, nil)
}

// engine serves scans from a snapshot
type engine struct {
	s    *Store
	snap *pebble.Snapshot
}

var _ store.Engine = engine{}

func (e engine) Record(_ context.Context, kind *model.Kind, key []byte) ([]byte, bool, error) {
	return get(e.snap, store.RecordKey(kind.DBName, key))
}

func (e engine) Unique(_ context.Context, kind *model.Kind, field meta.Field, value []byte) ([]byte, bool, error) {
	key := store.UniqueKey(kind.DBName, field, value)
	if !e.s.mayHold(key) {
		return nil, false, nil
	}
	return get(e.snap, key)
}

func (e engine) Iterate(ctx context.Context, kind *model.Kind, family string, r scan.ScanRange, descending bool,
	fn func(entry, record []byte) (bool, error)) error {
	prefix := store.RecordPrefix(kind.DBName)
	if family != "" {
		prefix = store.IndexPrefix(kind.DBName, family)
	}
	lower, upper, ok := store.Bounds(prefix, r)
	if !ok {
		return nil
	}

	it, err := e.snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	defer it.Close()

	first, next := it.First, it.Next
	if descending {
		first, next = it.Last, it.Prev
	}
	for valid := first(); valid; valid = next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var record []byte
		if family == "" {
			if record, err = it.ValueAndErr(); err != nil {
				return err
			}
		}
		more, err := fn(it.Key()[len(prefix):], record)
		if err != nil || !more {
			return err
		}
	}
	return it.Error()
}
