package pebblestore

import (
	"testing"

	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/store/storetest"
	"github.com/ridge/keystone/test"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, kinds []*model.Kind, opts ...store.Option) store.Store {
	s, err := Open(test.Context(t), t.TempDir(), kinds, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, open)
}

func TestSync(t *testing.T) {
	storetest.Run(t, func(t *testing.T, kinds []*model.Kind, opts ...store.Option) store.Store {
		return open(t, kinds, append(opts, store.WithSync(true), store.WithBloom(1000, 0.001))...)
	})
}

func TestReopen(t *testing.T) {
	ctx := test.Context(t)
	dir := t.TempDir()
	kinds := []*model.Kind{storetest.KindEvent}

	s, err := Open(ctx, dir, kinds)
	require.NoError(t, err)
	events := storetest.Populate(t, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, dir, kinds)
	require.NoError(t, err)
	defer s.Close()

	// unique values written before are known to the bloom filters again
	_, err = s.Put(ctx, &storetest.Event{Number: 1, Name: events[3].Name})
	require.ErrorIs(t, err, store.ErrUniqueConflict)

	var got []*storetest.Event
	name := storetest.KindEvent.MustField("Name")
	require.NoError(t, s.Scan(ctx, storetest.KindEvent, store.Request{Filter: filter.Eq(name, events[3].Name)}, func(_ []byte, obj any) bool {
		got = append(got, obj.(*storetest.Event))
		return true
	}))
	require.Len(t, got, 1)
	require.Equal(t, events[3].ID, got[0].ID)
}
