package scan

import (
	"encoding/hex"

	"github.com/ridge/must/v2"
	"go.uber.org/zap/zapcore"
)

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of ScanRange with zap.Object
func (r ScanRange) MarshalLogObject(e zapcore.ObjectEncoder) error {
	if len(r.Start) > 0 {
		e.AddString("start", hex.EncodeToString(r.Start))
		e.AddBool("startInclusive", r.StartInclusive)
	}
	if len(r.End) > 0 {
		e.AddString("end", hex.EncodeToString(r.End))
		e.AddBool("endInclusive", r.EndInclusive)
	}
	return nil
}

type rangesForLog []ScanRange

func (rs rangesForLog) MarshalLogArray(e zapcore.ArrayEncoder) error {
	for _, r := range rs {
		must.OK(e.AppendObject(r))
	}
	return nil
}

type partialsForLog []Partial

func (ps partialsForLog) MarshalLogArray(e zapcore.ArrayEncoder) error {
	for _, p := range ps {
		must.OK(e.AppendObject(p))
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of ScanRanges with zap.Object
func (sr ScanRanges) MarshalLogObject(e zapcore.ObjectEncoder) error {
	must.OK(e.AddArray("ranges", rangesForLog(sr.Ranges)))
	if len(sr.PartialMatches) > 0 {
		must.OK(e.AddArray("partials", partialsForLog(sr.PartialMatches)))
	}
	if len(sr.EqualPairs) > 0 {
		e.AddInt("equalPairs", len(sr.EqualPairs))
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of KeyScanRanges with zap.Object
func (kr KeyScanRanges) MarshalLogObject(e zapcore.ObjectEncoder) error {
	must.OK(kr.ScanRanges.MarshalLogObject(e))
	if len(kr.Uniques) > 0 {
		e.AddInt("uniques", len(kr.Uniques))
	}
	e.AddInt("keySize", kr.KeySize)
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of IndexScanRanges with zap.Object
func (ir IndexScanRanges) MarshalLogObject(e zapcore.ObjectEncoder) error {
	must.OK(ir.ScanRanges.MarshalLogObject(e))
	return e.AddObject("key", ir.Key)
}

func addLocator(e zapcore.ObjectEncoder, l Locator) {
	if l.Before == nil {
		e.AddInt("offset", l.Offset)
	} else {
		e.AddInt("after", len(l.Before))
	}
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (p PartialToMatch) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", p.Kind().String())
	addLocator(e, p.At)
	e.AddString("toMatch", hex.EncodeToString(p.ToMatch))
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (p PartialToBeOneOf) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", p.Kind().String())
	addLocator(e, p.At)
	return e.AddArray("toBeOneOf", zapcore.ArrayMarshalerFunc(func(e zapcore.ArrayEncoder) error {
		for _, b := range p.ToBeOneOf {
			e.AppendString(hex.EncodeToString(b))
		}
		return nil
	}))
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (p PartialToBeBigger) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", p.Kind().String())
	addLocator(e, p.At)
	e.AddString("bound", hex.EncodeToString(p.Bound))
	e.AddBool("inclusive", p.Inclusive)
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (p PartialToBeSmaller) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", p.Kind().String())
	addLocator(e, p.At)
	e.AddString("bound", hex.EncodeToString(p.Bound))
	e.AddBool("inclusive", p.Inclusive)
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (p PartialSizeToMatch) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", p.Kind().String())
	addLocator(e, p.At)
	e.AddInt("size", p.Size)
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (p PartialToRegexMatch) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", p.Kind().String())
	e.AddString("field", p.Field.DBName)
	addLocator(e, p.At)
	e.AddString("regex", p.Regex.String())
	return nil
}
