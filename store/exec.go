package store

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/ridge/keystone/codec"
	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/scan"
	"github.com/ridge/keystone/tlog"
	"github.com/ridge/parallel"
	"go.uber.org/zap"
)

// Engine is the set of storage primitives a backend provides for scans
type Engine interface {
	// Record returns the stored bytes of a record
	Record(ctx context.Context, kind *model.Kind, key []byte) ([]byte, bool, error)
	// Unique returns the primary key of the record holding a unique value
	Unique(ctx context.Context, kind *model.Kind, field meta.Field, value []byte) ([]byte, bool, error)
	// Iterate visits, in order, the stored records (when family is empty) or
	// the entries of an index family within the bounds of r. For records fn
	// receives the primary key and the stored bytes; for index entries the
	// entry and nil. Iteration stops when fn returns false.
	Iterate(ctx context.Context, kind *model.Kind, family string, r scan.ScanRange, descending bool,
		fn func(entry, record []byte) (bool, error)) error
}

// hit is a record found by a scan
type hit struct {
	key []byte
	obj any
}

// sink receives matching records and counts them against the limit
type sink struct {
	limit int
	count int
	visit Visitor
}

// emit passes a record on and returns false if the scan must stop
func (s *sink) emit(key []byte, obj any) bool {
	s.count++
	if !s.visit(key, obj) {
		return false
	}
	return s.limit == 0 || s.count < s.limit
}

type execution struct {
	engine Engine
	kind   *model.Kind
	req    Request
	plan   Plan
}

// Execute runs a scan request over an engine
func Execute(ctx context.Context, engine Engine, kind *model.Kind, req Request, visit Visitor) error {
	plan, err := NewPlan(kind, req)
	if err != nil {
		return err
	}
	tlog.Get(ctx).Debug("Scan planned", zap.Stringer("kind", kind), zap.Object("request", req), zap.Object("plan", plan))
	if plan.IsEmpty() {
		return nil
	}

	x := execution{engine: engine, kind: kind, req: req, plan: plan}
	out := &sink{limit: req.Limit, visit: visit}
	switch plan.Strategy {
	case UniqueLookup:
		return x.uniqueLookup(ctx, out)
	case KeyGets:
		return x.keyGets(ctx, out)
	default:
		ranges := plan.Ranges(req.Descending)
		if req.Parallel && len(ranges) > 1 {
			return x.parallelRanges(ctx, ranges, out)
		}
		for _, r := range ranges {
			more, err := x.scanRange(ctx, r, out.emit)
			if err != nil || !more {
				return err
			}
		}
		return nil
	}
}

// accept decodes a candidate record and passes it on if it matches the filter
func (x execution) accept(key, data []byte, emit func([]byte, any) bool) (bool, error) {
	obj, err := codec.Unmarshal(x.kind.Struct, data)
	if err != nil {
		return false, fmt.Errorf("%s: %w", model.Ref{Kind: x.kind, Key: key}, err)
	}
	ok, err := filter.Matches(x.req.Filter, x.kind.ValuesOf(obj))
	if err != nil || !ok {
		return err == nil, err
	}
	return emit(bytes.Clone(key), pointerTo(obj)), nil
}

func pointerTo(obj any) any {
	ptr := reflect.New(reflect.TypeOf(obj))
	ptr.Elem().Set(reflect.ValueOf(obj))
	return ptr.Interface()
}

// fetch reads a candidate record by key and accepts it
func (x execution) fetch(ctx context.Context, key []byte, emit func([]byte, any) bool) (bool, error) {
	data, ok, err := x.engine.Record(ctx, x.kind, key)
	if err != nil || !ok {
		return err == nil, err
	}
	return x.accept(key, data, emit)
}

func (x execution) uniqueLookup(ctx context.Context, out *sink) error {
	keys := make([][]byte, 0, len(x.plan.Uniques))
	seen := map[string]bool{}
	for _, u := range x.plan.Uniques {
		value, err := u.Definition.Type.Encode(u.Value)
		if err != nil {
			return err
		}
		key, ok, err := x.engine.Unique(ctx, x.kind, u.Definition, value)
		if err != nil {
			return err
		}
		if !ok || seen[string(key)] || !x.plan.Key.Contains(key) {
			continue
		}
		seen[string(key)] = true
		keys = append(keys, key)
	}
	tlog.Get(ctx).Debug("Unique lookup", zap.Int("values", len(x.plan.Uniques)), zap.Int("found", len(keys)))

	sortKeys(keys, x.req.Descending)
	for _, key := range keys {
		more, err := x.fetch(ctx, key, out.emit)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func (x execution) keyGets(ctx context.Context, out *sink) error {
	for _, key := range x.plan.Keys(x.req.Descending) {
		if !x.plan.Key.MatchesPartials(key) {
			continue
		}
		more, err := x.fetch(ctx, key, out.emit)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

// scanRange visits the candidates of one range. Returns false if emit asked
// to stop.
func (x execution) scanRange(ctx context.Context, r scan.ScanRange, emit func([]byte, any) bool) (bool, error) {
	more := true
	if x.plan.Strategy == IndexRanges {
		err := x.engine.Iterate(ctx, x.kind, x.plan.Family, r, x.req.Descending, func(entry, _ []byte) (bool, error) {
			switch Decide(r, entry, x.req.Descending) {
			case Stop:
				return false, nil
			case Skip:
				return true, nil
			}
			if !x.plan.Index.MatchesEntry(entry) {
				return true, nil
			}
			_, key, _ := x.plan.Index.SplitEntry(entry)
			var err error
			more, err = x.fetch(ctx, key, emit)
			return more, err
		})
		return more, err
	}

	err := x.engine.Iterate(ctx, x.kind, "", r, x.req.Descending, func(key, data []byte) (bool, error) {
		switch Decide(r, key, x.req.Descending) {
		case Stop:
			return false, nil
		case Skip:
			return true, nil
		}
		if !x.plan.Key.MatchesPartials(key) {
			return true, nil
		}
		var err error
		more, err = x.accept(key, data, emit)
		return more, err
	})
	return more, err
}

// parallelRanges scans every range in its own goroutine and passes the
// results on in range order
func (x execution) parallelRanges(ctx context.Context, ranges []scan.ScanRange, out *sink) error {
	results := make([][]hit, len(ranges))
	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for i, r := range ranges {
			spawn(fmt.Sprintf("range%d", i), parallel.Continue, func(ctx context.Context) error {
				_, err := x.scanRange(ctx, r, func(key []byte, obj any) bool {
					results[i] = append(results[i], hit{key: key, obj: obj})
					return x.req.Limit == 0 || len(results[i]) < x.req.Limit
				})
				return err
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, hits := range results {
		for _, h := range hits {
			if !out.emit(h.key, h.obj) {
				return nil
			}
		}
	}
	return nil
}
