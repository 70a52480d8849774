package store

import (
	"encoding/hex"

	"github.com/ridge/keystone/filter"
	"github.com/ridge/must/v2"
	"go.uber.org/zap/zapcore"
)

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Plan with zap.Object
func (p Plan) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("strategy", p.Strategy.String())
	switch p.Strategy {
	case UniqueLookup:
		e.AddInt("uniques", len(p.Uniques))
	case IndexRanges:
		e.AddString("family", p.Family)
		must.OK(e.AddObject("index", p.Index))
	default:
		must.OK(e.AddObject("key", p.Key))
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Request with zap.Object
func (r Request) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("filter", filter.Describe(r.Filter))
	if r.Index != "" {
		e.AddString("index", r.Index)
	}
	if r.StartKey != nil {
		e.AddString("startKey", hex.EncodeToString(r.StartKey))
		e.AddBool("includeStart", r.IncludeStart)
	}
	if r.Descending {
		e.AddBool("descending", true)
	}
	if r.Limit != 0 {
		e.AddInt("limit", r.Limit)
	}
	if r.Parallel {
		e.AddBool("parallel", true)
	}
	return nil
}
