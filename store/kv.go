package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ridge/keystone/codec"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/tlog"
	"go.uber.org/zap"
)

// KV is a read-write view of a key-value backend within one write
type KV interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

// storedEntries returns the index and unique entries a record occupies in
// the keyspace, keyed by storage key
func storedEntries(kind *model.Kind, key []byte, obj any) (map[string][]byte, error) {
	entries := map[string][]byte{}
	for _, name := range kind.IndexNames() {
		entry, ok, err := kind.IndexEntry(name, obj, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		family, err := kind.Family(name)
		if err != nil {
			return nil, err
		}
		entries[string(append(IndexPrefix(kind.DBName, family), entry...))] = nil
	}
	uniques, err := kind.UniqueValues(obj)
	if err != nil {
		return nil, err
	}
	for _, u := range uniques {
		entries[string(UniqueKey(kind.DBName, u.Field, u.Value))] = key
	}
	return entries, nil
}

// PutKV writes the record at ptr through kv, replacing the index and unique
// entries of its previous version, and returns its primary key
func PutKV(ctx context.Context, kv KV, kind *model.Kind, c codec.Codec, ptr any) ([]byte, error) {
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

	entries, err := storedEntries(kind, key, ptr)
	if err != nil {
		return nil, err
	}
	stale, err := previousEntries(kv, kind, key)
	if err != nil {
		return nil, err
	}

	for k, v := range entries {
		if v == nil {
			continue
		}
		holder, ok, err := kv.Get([]byte(k))
		if err != nil {
			return nil, err
		}
		if ok && !bytes.Equal(holder, key) {
			return nil, fmt.Errorf("%w: %s: value already held by %x", ErrUniqueConflict, ref, holder)
		}
	}

	data, err := c.Marshal(kind.Struct, ptr)
	if err != nil {
		return nil, err
	}
	for k := range stale {
		if _, ok := entries[k]; ok {
			continue
		}
		if err := kv.Delete([]byte(k)); err != nil {
			return nil, err
		}
	}
	for k, v := range entries {
		if err := kv.Set([]byte(k), v); err != nil {
			return nil, err
		}
	}
	if err := kv.Set(RecordKey(kind.DBName, key), data); err != nil {
		return nil, err
	}
	tlog.Get(ctx).Debug("Record written", zap.Stringer("ref", ref), zap.Int("entries", len(entries)), zap.Int("stale", len(stale)))
	return key, nil
}

// previousEntries returns the entries of the stored version of a record, if
// any
func previousEntries(kv KV, kind *model.Kind, key []byte) (map[string][]byte, error) {
	data, ok, err := kv.Get(RecordKey(kind.DBName, key))
	if err != nil || !ok {
		return nil, err
	}
	old, err := codec.Unmarshal(kind.Struct, data)
	if err != nil {
		return nil, err
	}
	return storedEntries(kind, key, old)
}

// DeleteKV removes a record with its index and unique entries through kv
func DeleteKV(ctx context.Context, kv KV, kind *model.Kind, key []byte) error {
	ref := model.Ref{Kind: kind, Key: key}
	data, ok, err := kv.Get(RecordKey(kind.DBName, key))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	old, err := codec.Unmarshal(kind.Struct, data)
	if err != nil {
		return err
	}
	entries, err := storedEntries(kind, key, old)
	if err != nil {
		return err
	}
	for k := range entries {
		if err := kv.Delete([]byte(k)); err != nil {
			return err
		}
	}
	if err := kv.Delete(RecordKey(kind.DBName, key)); err != nil {
		return err
	}
	tlog.Get(ctx).Debug("Record deleted", zap.Stringer("ref", ref))
	return nil
}

// GetKV reads a record through a getter into ptr
func GetKV(get func(key []byte) ([]byte, bool, error), kind *model.Kind, key []byte, ptr any) (bool, error) {
	data, ok, err := get(RecordKey(kind.DBName, key))
	if err != nil || !ok {
		return false, err
	}
	if err := codec.UnmarshalInto(kind.Struct, data, ptr); err != nil {
		return false, fmt.Errorf("%s: %w", model.Ref{Kind: kind, Key: key}, err)
	}
	return true, nil
}
