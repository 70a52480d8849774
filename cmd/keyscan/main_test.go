package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/store/memstore"
	"github.com/ridge/keystone/test"
	"github.com/ridge/keystone/tlog"
	"github.com/ridge/keystone/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var eventFields = []string{"ID:uuid:identity", "Number:uint32", "Time:datetime", "Name:string:unique"}

func eventKind(t *testing.T) *model.Kind {
	kind, err := kindOf("event", eventFields, "Number @uuid7", []string{"Name", "-Time Number"})
	require.NoError(t, err)
	return kind
}

func TestKindOf(t *testing.T) {
	kind := eventKind(t)
	require.Equal(t, "event", kind.DBName)
	require.Equal(t, 4+16, kind.KeySize)
	require.Equal(t, []string{"-Time Number", "Name"}, kind.IndexNames())
	require.Equal(t, types.TDateTime, kind.MustField("Time").Type)
	require.True(t, kind.MustField("Name").Unique)

	for _, c := range []struct {
		fields []string
		key    string
		err    string
	}{
		{nil, "Number", "no fields"},
		{[]string{"Number"}, "Number", "expected Name:type"},
		{[]string{"number:uint32"}, "number", "upper case"},
		{[]string{"Number:uint128"}, "Number", "invalid type name"},
		{[]string{"Number:uint32:sorted"}, "Number", "unknown option"},
		{[]string{"Number:uint32"}, "Missing", "invalid definition"},
		{[]string{"Name:string"}, "Name", "invalid definition"},
		{[]string{"Number:uint32", "Number:int64"}, "Number", "invalid definition"},
	} {
		_, err := kindOf("event", c.fields, c.key, nil)
		require.ErrorContains(t, err, c.err, c.fields)
	}
}

func observed(t *testing.T) (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return tlog.WithLogger(test.Context(t), zap.New(core)), logs
}

func TestExplain(t *testing.T) {
	kind := eventKind(t)
	ctx, logs := observed(t)

	req, err := options{useIndex: "-Time Number"}.request(kind, "Number = 5 AND Time > '2024-05-01T00:00:00Z'")
	require.NoError(t, err)
	require.NoError(t, explain(ctx, kind, req))

	var messages []string
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
	}
	require.Equal(t, []string{"Filter", "Key ranges", "Index ranges", "Plan"}, messages)
	require.Equal(t, []any{"Number", "Time"}, logs.FilterMessage("Filter").All()[0].ContextMap()["fields"])
	plan := logs.FilterMessage("Plan").All()[0].ContextMap()
	require.Equal(t, false, plan["empty"])
	require.Equal(t, "index ranges", plan["plan"].(map[string]any)["strategy"])

	_, err = options{}.request(kind, "Number = 'five'")
	require.Error(t, err)
	_, err = options{start: "zz"}.request(kind, "")
	require.Error(t, err)
}

func TestShell(t *testing.T) {
	kind := eventKind(t)
	ctx := test.Context(t)
	s := memstore.New([]*model.Kind{kind})
	var out bytes.Buffer
	sh := &shell{kind: kind, store: s, out: &out}

	exec := func(input string) string {
		out.Reset()
		quit, err := sh.execute(ctx, input)
		require.NoError(t, err, input)
		require.False(t, quit)
		return out.String()
	}

	for _, rec := range []string{
		`{"Number":1,"Name":"a","Time":"2024-05-01T00:00:00Z"}`,
		`{"Number":2,"Name":"b","Time":"2024-05-02T00:00:00Z"}`,
		`{"Number":2,"Name":"c","Time":"2024-05-03T00:00:00Z"}`,
	} {
		key := strings.TrimSpace(exec(`\put ` + rec))
		require.Len(t, key, 2*kind.KeySize)
	}

	names := func(output string) []string {
		var res []string
		for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
			if line == "" {
				continue
			}
			var row struct {
				Key    string
				Record struct{ Name string }
			}
			require.NoError(t, json.Unmarshal([]byte(line), &row))
			res = append(res, row.Record.Name)
		}
		return res
	}

	require.Equal(t, []string{"b", "c"}, names(exec("Number = 2")))
	require.Equal(t, []string{"a"}, names(exec("Name = 'a';")))

	exec(`\index -Time Number`)
	require.Equal(t, []string{"c", "b", "a"}, names(exec("Number >= 1")))
	exec(`\desc`)
	exec(`\limit 2`)
	require.Equal(t, []string{"a", "b"}, names(exec("Number >= 1")))
	exec(`\index`)
	require.Equal(t, []string{"c", "b"}, names(exec("Number >= 1")))

	_, err := sh.execute(ctx, `\index Score`)
	require.ErrorIs(t, err, model.ErrUnknownIndex)
	_, err = sh.execute(ctx, `\put {"Number":3,"Name":"a"}`)
	require.ErrorIs(t, err, store.ErrUniqueConflict)
	_, err = sh.execute(ctx, `\delete 00`)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = sh.execute(ctx, `\nope`)
	require.Error(t, err)

	quit, err := sh.execute(ctx, `\q`)
	require.NoError(t, err)
	require.True(t, quit)

	require.Equal(t, []string{"Number", "(Name"}, []string{sh.complete("Num")[0], sh.complete("(Na")[0]})
}
