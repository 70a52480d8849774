// Package badgerstore keeps records in a Badger database
package badgerstore

import (
	"bytes"
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/retry"
	"github.com/ridge/keystone/scan"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/tlog"
	"go.uber.org/zap"
)

// logger passes Badger logs to zap
type logger struct {
	*zap.SugaredLogger
}

func (l logger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}

// Store is a store backed by Badger. Safe for concurrent use.
type Store struct {
	kinds   store.Kinds
	options store.Options
	db      *badger.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates a database in dir
func Open(ctx context.Context, dir string, kinds []*model.Kind, opts ...store.Option) (*Store, error) {
	log := tlog.Get(ctx).Named("badger")
	options := store.NewOptions(opts...)
	db, err := badger.Open(badger.DefaultOptions(dir).
		WithLogger(logger{SugaredLogger: log.Sugar()}).
		WithLoggingLevel(badger.WARNING).
		WithSyncWrites(options.Sync))
	if err != nil {
		return nil, err
	}
	log.Info("Store opened", zap.String("dir", dir), zap.Int("kinds", len(kinds)))
	return &Store{kinds: store.NewKinds(kinds), options: options, db: db}, nil
}

// Put writes a record given by pointer and returns its primary key
func (s *Store) Put(ctx context.Context, ptr any) ([]byte, error) {
	kind := s.kinds.OfPtr(ptr)
	var key []byte
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		key, err = store.PutKV(ctx, txnKV{txn: txn}, kind, s.options.Codec, ptr)
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
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = store.GetKV(txnKV{txn: txn}.Get, kind, key, ptr)
		return err
	})
	return found, err
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, kind *model.Kind, key []byte) error {
	s.kinds.Check(kind)
	return s.update(ctx, func(txn *badger.Txn) error {
		return store.DeleteKV(ctx, txnKV{txn: txn}, kind, key)
	})
}

// update runs fn in a read-write transaction, repeating it when the commit
// conflicts with a concurrent one
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	return retry.Do(ctx, retry.Default, func() error {
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			return retry.Retriable(err)
		}
		return err
	})
}

// Scan visits the records matching a request in a consistent snapshot
func (s *Store) Scan(ctx context.Context, kind *model.Kind, req store.Request, visit store.Visitor) error {
	s.kinds.Check(kind)
	return s.db.View(func(txn *badger.Txn) error {
		return store.Execute(ctx, engine{txn: txn}, kind, req, visit)
	})
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// txnKV is the view of the store inside one transaction
type txnKV struct {
	txn *badger.Txn
}

func (kv txnKV) Get(key []byte) ([]byte, bool, error) {
	item, err := kv.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (kv txnKV) Set(key, value []byte) error {
	return kv.txn.Set(key, value)
}

func (kv txnKV) Delete(key []byte) error {
	return kv.txn.Delete(key)
}

// engine serves scans from a read-only transaction
type engine struct {
	txn *badger.Txn
}

var _ store.Engine = engine{}

func (e engine) Record(_ context.Context, kind *model.Kind, key []byte) ([]byte, bool, error) {
	return txnKV{txn: e.txn}.Get(store.RecordKey(kind.DBName, key))
}

func (e engine) Unique(_ context.Context, kind *model.Kind, field meta.Field, value []byte) ([]byte, bool, error) {
	return txnKV{txn: e.txn}.Get(store.UniqueKey(kind.DBName, field, value))
}

// Iterate walks the keys between the bounds of r. A reverse Badger iterator
// with a prefix set may stop before reaching keys of the prefix, so
// descending scans seek to the upper bound without one and check the bounds
// themselves.
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

	opts := badger.IteratorOptions{PrefetchValues: family == "", PrefetchSize: 100}
	if descending {
		opts.Reverse = true
	} else {
		opts.Prefix = prefix
	}
	it := e.txn.NewIterator(opts)
	defer it.Close()

	if descending {
		it.Seek(upper)
	} else {
		it.Seek(lower)
	}
	for ; it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		key := item.Key()
		if descending {
			if bytecmp.Compare(key, upper) >= 0 {
				continue
			}
			if bytecmp.Compare(key, lower) < 0 {
				return nil
			}
		} else if bytecmp.Compare(key, upper) >= 0 {
			return nil
		}
		if !bytes.HasPrefix(key, prefix) {
			return nil
		}

		var record []byte
		if family == "" {
			var err error
			if record, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		more, err := fn(key[len(prefix):], record)
		if err != nil || !more {
			return err
		}
	}
	return nil
}
