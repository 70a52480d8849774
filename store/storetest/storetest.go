// Package storetest is a conformance suite run against every store backend
package storetest

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/test"
	"github.com/stretchr/testify/require"
)

// Event is the record type used by the suite
type Event struct {
	meta.Meta `keystone:"name=event"`
	ID        uuid.UUID `keystone:"identity"`
	Number    uint32
	Time      time.Time
	Name      string `keystone:"unique"`
	Score     int64
	Tags      []string
}

// Indexes of KindEvent
const (
	IndexName       = "Name"
	IndexTimeNumber = "-Time Number"
)

// KindEvent is the kind of Event
var KindEvent = model.KindOf(Event{}, "Number @uuid7", IndexName, IndexTimeNumber)

var (
	number = KindEvent.MustField("Number")
	ts     = KindEvent.MustField("Time")
	name   = KindEvent.MustField("Name")
	score  = KindEvent.MustField("Score")
)

// Base is the time of the first seeded event
var Base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// Open opens an empty store for the given kinds
type Open func(t *testing.T, kinds []*model.Kind, opts ...store.Option) store.Store

// Seed returns the events written by Populate
func Seed() []Event {
	var events []Event
	for i := 0; i < 30; i++ {
		events = append(events, Event{
			Number: uint32(i % 5),
			Time:   Base.Add(time.Duration(i*7%30) * time.Hour),
			Name:   fmt.Sprintf("e%02d", i),
			Score:  int64(i*7%11 - 5),
			Tags:   []string{fmt.Sprintf("t%d", i%3)},
		})
	}
	return events
}

// Populate writes the seed events and returns them with their keys assigned
func Populate(t *testing.T, s store.Store) []Event {
	ctx := test.Context(t)
	events := Seed()
	for i := range events {
		_, err := s.Put(ctx, &events[i])
		require.NoError(t, err)
	}
	return events
}

// Run runs the suite
func Run(t *testing.T, open Open) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, open) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, open) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open) })
	t.Run("Unique", func(t *testing.T) { testUnique(t, open) })
	t.Run("Scan", func(t *testing.T) { testScan(t, open) })
	t.Run("Order", func(t *testing.T) { testOrder(t, open) })
	t.Run("Limit", func(t *testing.T) { testLimit(t, open) })
	t.Run("StartKey", func(t *testing.T) { testStartKey(t, open) })
	t.Run("Invalid", func(t *testing.T) { testInvalid(t, open) })
}

func keyOf(t *testing.T, e Event) []byte {
	key, err := KindEvent.KeyOf(e)
	require.NoError(t, err)
	return key
}

func normalize(e *Event) {
	e.Time = e.Time.UTC()
}

func testPutGet(t *testing.T, open Open) {
	ctx := test.Context(t)
	s := open(t, []*model.Kind{KindEvent})

	e := Event{Number: 3, Time: Base, Name: "🦄", Score: -2, Tags: []string{"a"}}
	key, err := s.Put(ctx, &e)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, e.ID)
	require.Equal(t, keyOf(t, e), key)

	var got Event
	ok, err := s.Get(ctx, KindEvent, key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	normalize(&got)
	require.Equal(t, e, got)

	ok, err = s.Get(ctx, KindEvent, bytecmp.Pad(nil, KindEvent.KeySize, 0), &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.Panics(t, func() { _, _ = s.Put(ctx, e) })
}

func testUpdate(t *testing.T, open Open) {
	ctx := test.Context(t)
	s := open(t, []*model.Kind{KindEvent})

	e := Event{Number: 1, Time: Base, Name: "old"}
	key, err := s.Put(ctx, &e)
	require.NoError(t, err)
	e.Name = "new"
	e.Time = Base.Add(time.Hour)
	key2, err := s.Put(ctx, &e)
	require.NoError(t, err)
	require.Equal(t, key, key2)

	require.Empty(t, scanKeys(t, s, store.Request{Filter: filter.Eq(name, "old")}))
	require.Empty(t, scanKeys(t, s, store.Request{Filter: filter.Eq(ts, Base), Index: IndexTimeNumber}))
	require.Equal(t, [][]byte{key}, scanKeys(t, s, store.Request{Filter: filter.Eq(name, "new")}))
	require.Equal(t, [][]byte{key}, scanKeys(t, s, store.Request{Index: IndexName}))
	require.Equal(t, [][]byte{key}, scanKeys(t, s, store.Request{Index: IndexTimeNumber}))

	// the old unique value is free again
	other := Event{Number: 2, Name: "old"}
	_, err = s.Put(ctx, &other)
	require.NoError(t, err)
}

func testDelete(t *testing.T, open Open) {
	ctx := test.Context(t)
	s := open(t, []*model.Kind{KindEvent})

	e := Event{Number: 1, Name: "gone"}
	key, err := s.Put(ctx, &e)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, KindEvent, key))

	var got Event
	ok, err := s.Get(ctx, KindEvent, key, &got)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, scanKeys(t, s, store.Request{}))
	require.Empty(t, scanKeys(t, s, store.Request{Index: IndexName}))
	require.Empty(t, scanKeys(t, s, store.Request{Filter: filter.Eq(name, "gone")}))

	require.ErrorIs(t, s.Delete(ctx, KindEvent, key), store.ErrNotFound)

	again := Event{Number: 2, Name: "gone"}
	_, err = s.Put(ctx, &again)
	require.NoError(t, err)
}

func testUnique(t *testing.T, open Open) {
	ctx := test.Context(t)
	s := open(t, []*model.Kind{KindEvent})

	_, err := s.Put(ctx, &Event{Number: 1, Name: "taken"})
	require.NoError(t, err)
	_, err = s.Put(ctx, &Event{Number: 2, Name: "taken"})
	require.ErrorIs(t, err, store.ErrUniqueConflict)
	require.Len(t, scanKeys(t, s, store.Request{}), 1)
}

func scanKeys(t *testing.T, s store.Store, req store.Request) [][]byte {
	var keys [][]byte
	require.NoError(t, s.Scan(test.Context(t), KindEvent, req, func(key []byte, obj any) bool {
		e := obj.(*Event)
		require.Equal(t, keyOf(t, *e), key)
		keys = append(keys, key)
		return true
	}))
	return keys
}

// Filters exercised by the suite
func Filters() []filter.Filter {
	return []filter.Filter{
		nil,
		filter.Eq(number, uint32(2)),
		filter.Gt(number, uint32(2)),
		filter.Lte(number, uint32(0)),
		filter.Between(number, uint32(1), uint32(3)),
		filter.In(number, uint32(4), uint32(0), uint32(9)),
		filter.AllOf(filter.Eq(number, uint32(2)), filter.Gt(ts, Base.Add(10*time.Hour))),
		filter.AllOf(filter.In(number, uint32(1), uint32(3)), filter.Lt(ts, Base.Add(12*time.Hour))),
		filter.Eq(name, "e07"),
		filter.In(name, "e03", "e99", "e11"),
		filter.AllOf(filter.Eq(name, "e07"), filter.Eq(number, uint32(3))),
		filter.HasPrefix(name, "e1"),
		filter.Lt(ts, Base.Add(5*time.Hour)),
		filter.Between(ts, Base.Add(3*time.Hour), Base.Add(9*time.Hour)),
		filter.AllOf(filter.Gte(score, int64(0)), filter.Lte(number, uint32(1))),
		filter.Regex(name, "^e[0-2]5$"),
		filter.AnyOf(filter.Eq(number, uint32(1)), filter.Eq(name, "e20")),
		filter.Negate(filter.Eq(number, uint32(3))),
		filter.AllOf(filter.Eq(number, uint32(1)), filter.Eq(number, uint32(2))),
	}
}

func expected(t *testing.T, events []Event, f filter.Filter) [][]byte {
	var keys [][]byte
	for _, e := range events {
		ok, err := filter.Matches(f, KindEvent.ValuesOf(e))
		require.NoError(t, err)
		if ok {
			keys = append(keys, keyOf(t, e))
		}
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys [][]byte) {
	sort.Slice(keys, func(i, j int) bool { return bytecmp.Compare(keys[i], keys[j]) < 0 })
}

func testScan(t *testing.T, open Open) {
	s := open(t, []*model.Kind{KindEvent})
	events := Populate(t, s)

	for _, f := range Filters() {
		want := expected(t, events, f)
		for _, index := range []string{"", IndexName, IndexTimeNumber} {
			for _, descending := range []bool{false, true} {
				for _, parallel := range []bool{false, true} {
					req := store.Request{Filter: f, Index: index, Descending: descending, Parallel: parallel}
					got := scanKeys(t, s, req)
					sortKeys(got)
					require.Equal(t, want, got, "%s index=%q descending=%t parallel=%t", filter.Describe(f), index, descending, parallel)
				}
			}
		}
	}
}

func testOrder(t *testing.T, open Open) {
	s := open(t, []*model.Kind{KindEvent})
	events := Populate(t, s)

	all := expected(t, events, nil)
	require.Equal(t, all, scanKeys(t, s, store.Request{}))
	require.Equal(t, all, scanKeys(t, s, store.Request{Parallel: true}))

	reversed := make([][]byte, len(all))
	for i, key := range all {
		reversed[len(all)-1-i] = key
	}
	require.Equal(t, reversed, scanKeys(t, s, store.Request{Descending: true}))

	byName := append([]Event(nil), events...)
	sort.Slice(byName, func(i, j int) bool { return byName[i].Name < byName[j].Name })
	var want [][]byte
	for _, e := range byName {
		want = append(want, keyOf(t, e))
	}
	require.Equal(t, want, scanKeys(t, s, store.Request{Index: IndexName}))

	// newest first, ties by number
	var got []Event
	require.NoError(t, s.Scan(test.Context(t), KindEvent, store.Request{Index: IndexTimeNumber}, func(_ []byte, obj any) bool {
		got = append(got, *obj.(*Event))
		return true
	}))
	require.Len(t, got, len(events))
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		require.True(t, prev.Time.After(cur.Time) || prev.Time.Equal(cur.Time) && prev.Number <= cur.Number)
	}

	// several ranges are visited in order in both directions
	f := filter.In(number, uint32(3), uint32(1))
	want = expected(t, events, f)
	require.Equal(t, want, scanKeys(t, s, store.Request{Filter: f}))
	require.Equal(t, want, scanKeys(t, s, store.Request{Filter: f, Parallel: true}))
}

func testLimit(t *testing.T, open Open) {
	s := open(t, []*model.Kind{KindEvent})
	events := Populate(t, s)

	f := filter.In(number, uint32(1), uint32(2))
	want := expected(t, events, f)
	for _, parallel := range []bool{false, true} {
		require.Equal(t, want[:4], scanKeys(t, s, store.Request{Filter: f, Limit: 4, Parallel: parallel}))
	}

	var n int
	require.NoError(t, s.Scan(test.Context(t), KindEvent, store.Request{}, func([]byte, any) bool {
		n++
		return n < 3
	}))
	require.Equal(t, 3, n)
}

func testStartKey(t *testing.T, open Open) {
	s := open(t, []*model.Kind{KindEvent})
	events := Populate(t, s)

	all := expected(t, events, nil)
	start := all[10]
	require.Equal(t, all[10:], scanKeys(t, s, store.Request{StartKey: start, IncludeStart: true}))
	require.Equal(t, all[11:], scanKeys(t, s, store.Request{StartKey: start}))

	var before [][]byte
	for i := 9; i >= 0; i-- {
		before = append(before, all[i])
	}
	require.Equal(t, before, scanKeys(t, s, store.Request{StartKey: start, Descending: true}))
	require.Equal(t, append([][]byte{start}, before...),
		scanKeys(t, s, store.Request{StartKey: start, IncludeStart: true, Descending: true}))
}

func testInvalid(t *testing.T, open Open) {
	s := open(t, []*model.Kind{KindEvent})
	ctx := test.Context(t)
	visit := func([]byte, any) bool { return true }

	err := s.Scan(ctx, KindEvent, store.Request{Filter: filter.Eq(number, "three")}, visit)
	require.Error(t, err)
	err = s.Scan(ctx, KindEvent, store.Request{Index: "Score"}, visit)
	require.ErrorIs(t, err, model.ErrUnknownIndex)

	_, err = s.Put(ctx, &Event{Number: 1, Time: Base, Name: "nul\x00"})
	require.ErrorIs(t, err, meta.ErrInvalid)
	var n int
	require.NoError(t, s.Scan(ctx, KindEvent, store.Request{}, func([]byte, any) bool {
		n++
		return true
	}))
	require.Zero(t, n)
}
