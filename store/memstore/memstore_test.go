package memstore

import (
	"testing"

	"github.com/ridge/keystone/codec"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/store/storetest"
	"github.com/ridge/keystone/test"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, kinds []*model.Kind, opts ...store.Option) store.Store {
	return New(kinds, opts...)
}

func TestStore(t *testing.T) {
	storetest.Run(t, open)
}

func TestCodec(t *testing.T) {
	storetest.Run(t, func(t *testing.T, kinds []*model.Kind, opts ...store.Option) store.Store {
		return New(kinds, append(opts, store.WithCodec(codec.Codec{Format: codec.JSON, Compression: codec.Zstd}))...)
	})
}

func TestSnapshot(t *testing.T) {
	ctx := test.Context(t)
	s := New([]*model.Kind{storetest.KindEvent})
	events := storetest.Populate(t, s)

	// records written during a scan are not seen by it
	var n int
	require.NoError(t, s.Scan(ctx, storetest.KindEvent, store.Request{}, func([]byte, any) bool {
		if n == 0 {
			_, err := s.Put(ctx, &storetest.Event{Number: 9, Name: "late"})
			require.NoError(t, err)
		}
		n++
		return true
	}))
	require.Equal(t, len(events), n)
}

func TestUnknownKind(t *testing.T) {
	s := New(nil)
	require.Panics(t, func() { _, _ = s.Put(test.Context(t), &storetest.Event{}) })
	require.Panics(t, func() {
		_ = s.Scan(test.Context(t), storetest.KindEvent, store.Request{}, func([]byte, any) bool { return true })
	})
}
