package indexable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/scan"
)

// ErrInvalidFilter is returned when a filter cannot be compiled
var ErrInvalidFilter = errors.New("invalid filter")

// maxRanges limits the cross product of pinned parts; further pinned parts
// become partial matchers
const maxRanges = 1024

// bound is one side of a span; an empty b is unbounded
type bound struct {
	b         []byte
	inclusive bool
}

func (b bound) bounded() bool {
	return len(b.b) > 0
}

// constraint is what a filter demands of one part, in stored byte space
type constraint struct {
	empty  bool
	pinned bool     // the part takes one of points
	points [][]byte // sorted, distinct
	start  bound
	end    bound
}

var unconstrained = constraint{start: bound{inclusive: true}, end: bound{inclusive: true}}

func (c constraint) constrained() bool {
	return c.empty || c.pinned || c.start.bounded() || c.end.bounded()
}

func (c constraint) scanRange() scan.ScanRange {
	return scan.ScanRange{
		Start:          c.start.b,
		StartInclusive: c.start.inclusive,
		End:            c.end.b,
		EndInclusive:   c.end.inclusive,
	}
}

func pin(points [][]byte) constraint {
	sort.Slice(points, func(i, j int) bool {
		return bytecmp.Compare(points[i], points[j]) < 0
	})
	distinct := points[:0]
	for i, p := range points {
		if i == 0 || bytecmp.Compare(p, points[i-1]) != 0 {
			distinct = append(distinct, p)
		}
	}
	if len(distinct) == 0 {
		return constraint{empty: true}
	}
	return constraint{pinned: true, points: distinct}
}

func span(start, end bound) constraint {
	c := constraint{start: start, end: end}
	if !start.bounded() {
		c.start = bound{inclusive: true}
	}
	if !end.bounded() {
		c.end = bound{inclusive: true}
	}
	if c.scanRange().IsEmpty() {
		return constraint{empty: true}
	}
	return c
}

// intersect returns the constraint satisfied by values satisfying both
func intersect(a, b constraint) constraint {
	switch {
	case a.empty || b.empty:
		return constraint{empty: true}
	case a.pinned && b.pinned:
		var points [][]byte
		for _, p := range a.points {
			for _, q := range b.points {
				if bytecmp.Compare(p, q) == 0 {
					points = append(points, p)
				}
			}
		}
		return pin(points)
	case a.pinned:
		return filterPoints(a.points, b)
	case b.pinned:
		return filterPoints(b.points, a)
	}
	return span(tighterStart(a.start, b.start), tighterEnd(a.end, b.end))
}

func filterPoints(points [][]byte, c constraint) constraint {
	r := c.scanRange()
	var res [][]byte
	for _, p := range points {
		if r.Contains(p) {
			res = append(res, p)
		}
	}
	return pin(res)
}

func tighterStart(x, y bound) bound {
	if !x.bounded() {
		return y
	}
	if !y.bounded() {
		return x
	}
	lx, okx := scan.ScanRange{Start: x.b, StartInclusive: x.inclusive}.LowerBound()
	if !okx {
		return x
	}
	ly, oky := scan.ScanRange{Start: y.b, StartInclusive: y.inclusive}.LowerBound()
	if !oky || bytecmp.Compare(ly, lx) > 0 {
		return y
	}
	return x
}

func tighterEnd(x, y bound) bound {
	if !x.bounded() {
		return y
	}
	if !y.bounded() {
		return x
	}
	ux := scan.ScanRange{End: x.b, EndInclusive: x.inclusive}.UpperBound()
	uy := scan.ScanRange{End: y.b, EndInclusive: y.inclusive}.UpperBound()
	if ux == nil || uy != nil && bytecmp.Compare(uy, ux) < 0 {
		return y
	}
	return x
}

// reversed maps a constraint into the complemented byte space
func (c constraint) reversed() constraint {
	switch {
	case c.empty:
		return c
	case c.pinned:
		points := make([][]byte, 0, len(c.points))
		for _, p := range c.points {
			points = append(points, bytecmp.Complement(p))
		}
		return pin(points)
	}
	return span(
		bound{b: bytecmp.Complement(c.end.b), inclusive: c.end.inclusive},
		bound{b: bytecmp.Complement(c.start.b), inclusive: c.start.inclusive},
	)
}

// fieldConstraint derives the constraint on a property from the conjuncts
// of f. Filters under Or and Not never narrow.
func fieldConstraint(field meta.Field, f filter.Filter) (constraint, error) {
	c := unconstrained
	for _, conj := range filter.Conjuncts(f) {
		fc, err := leafConstraint(field, conj)
		if err != nil {
			return constraint{}, err
		}
		c = intersect(c, fc)
	}
	return c, nil
}

func leafConstraint(field meta.Field, f filter.Filter) (constraint, error) {
	if ff, ok := filter.FieldOf(f); !ok || ff.Prop != field.Prop {
		return unconstrained, nil
	}
	enc := field.Type.Encode
	switch f := f.(type) {
	case filter.Equals:
		b, err := enc(f.Value)
		if err != nil {
			return constraint{}, err
		}
		return pin([][]byte{b}), nil
	case filter.GreaterThan:
		b, err := enc(f.Value)
		return span(bound{b: b}, bound{}), err
	case filter.GreaterThanEquals:
		b, err := enc(f.Value)
		return span(bound{b: b, inclusive: true}, bound{}), err
	case filter.LessThan:
		b, err := enc(f.Value)
		return span(bound{}, bound{b: b}), err
	case filter.LessThanEquals:
		b, err := enc(f.Value)
		return span(bound{}, bound{b: b, inclusive: true}), err
	case filter.Range:
		from, err := enc(f.From)
		if err != nil {
			return constraint{}, err
		}
		to, err := enc(f.To)
		return span(bound{b: from, inclusive: true}, bound{b: to, inclusive: true}), err
	case filter.ValueIn:
		points := make([][]byte, 0, len(f.Values))
		for _, v := range f.Values {
			b, err := enc(v)
			if err != nil {
				return constraint{}, err
			}
			points = append(points, b)
		}
		return pin(points), nil
	case filter.Prefix:
		b, err := field.Type.EncodePrefix(f.Value)
		return span(bound{b: b, inclusive: true}, bound{b: b, inclusive: true}), err
	default:
		return unconstrained, nil
	}
}

func partConstraint(part Indexable, f filter.Filter) (constraint, error) {
	switch p := part.(type) {
	case Reference:
		return fieldConstraint(p.Field, f)
	case UUIDv4Key:
		return fieldConstraint(p.Field, f)
	case UUIDv7Key:
		return fieldConstraint(p.Field, f)
	case Reversed:
		c, err := partConstraint(p.Part, f)
		return c.reversed(), err
	case ReferenceToMax:
		c, err := partConstraint(p.Part, f)
		if err != nil || c.empty || c.pinned || c.end.bounded() {
			return c, err
		}
		if max := Type(p.Part).Max(); max != nil {
			c.end = bound{b: max, inclusive: true}
		}
		return c, nil
	default:
		panic(fmt.Sprintf("unexpected indexable part %T", part))
	}
}

// partials turns the constraint of a part that could not narrow the ranges
// into matchers
func partials(c constraint, at scan.Locator, sp scan.Span) []scan.Partial {
	switch {
	case c.pinned && len(c.points) == 1:
		if sp.Size == 0 {
			return []scan.Partial{
				scan.PartialSizeToMatch{At: at, Span: sp, Size: len(c.points[0])},
				scan.PartialToMatch{At: at, ToMatch: c.points[0]},
			}
		}
		return []scan.Partial{scan.PartialToMatch{At: at, ToMatch: c.points[0]}}
	case c.pinned:
		return []scan.Partial{scan.PartialToBeOneOf{At: at, ToBeOneOf: c.points}}
	case c.start.bounded() && c.start.inclusive && c.end.inclusive && bytecmp.Compare(c.start.b, c.end.b) == 0:
		return []scan.Partial{scan.PartialToMatch{At: at, ToMatch: c.start.b}}
	}
	var res []scan.Partial
	if c.start.bounded() {
		res = append(res, scan.PartialToBeBigger{At: at, Bound: c.start.b, Inclusive: c.start.inclusive})
	}
	if c.end.bounded() {
		res = append(res, scan.PartialToBeSmaller{At: at, Bound: c.end.b, Inclusive: c.end.inclusive})
	}
	return res
}

func regexPartials(parts []Indexable, spans []scan.Span, f filter.Filter) ([]scan.Partial, error) {
	var res []scan.Partial
	for _, conj := range filter.Conjuncts(f) {
		rf, ok := conj.(filter.RegEx)
		if !ok {
			continue
		}
		for i, part := range parts {
			l := leafOf(part)
			if l.field.Prop != rf.Field.Prop {
				continue
			}
			rx, err := filter.Compile(rf.Pattern)
			if err != nil {
				return nil, err
			}
			res = append(res, scan.PartialToRegexMatch{
				Field:    l.field,
				At:       locate(spans, i),
				Span:     spans[i],
				Reversed: l.reversed,
				Regex:    rx,
			})
		}
	}
	return res, nil
}

func equalPairs(f filter.Filter) []scan.EqualPair {
	var res []scan.EqualPair
	for _, conj := range filter.Conjuncts(f) {
		if eq, ok := conj.(filter.Equals); ok {
			res = append(res, scan.EqualPair{Field: eq.Field, Value: eq.Value})
		}
	}
	return res
}

func uniques(f filter.Filter) []scan.UniqueToMatch {
	var res []scan.UniqueToMatch
	for _, conj := range filter.Conjuncts(f) {
		switch conj := conj.(type) {
		case filter.Equals:
			if conj.Field.Unique {
				res = append(res, scan.UniqueToMatch{Reference: conj.Field.Ref(), Definition: conj.Field, Value: conj.Value})
			}
		case filter.ValueIn:
			if conj.Field.Unique {
				for _, v := range conj.Values {
					res = append(res, scan.UniqueToMatch{Reference: conj.Field.Ref(), Definition: conj.Field, Value: v})
				}
			}
		}
	}
	return res
}

func cross(prefixes, points [][]byte) [][]byte {
	res := make([][]byte, 0, len(prefixes)*len(points))
	for _, prefix := range prefixes {
		for _, p := range points {
			res = append(res, bytecmp.Concat(prefix, p))
		}
	}
	return res
}

func appendAll(prefixes [][]byte, suffix []byte) [][]byte {
	res := make([][]byte, 0, len(prefixes))
	for _, prefix := range prefixes {
		res = append(res, bytecmp.Concat(prefix, suffix))
	}
	return res
}

// compile converts f into ranges over the stored bytes of ix.
//
// Leading parts pinned to values multiply into point prefixes; the first part
// limited by a span extends the prefixes with its bounds and ends narrowing.
// Constraints on the remaining parts become partial matchers.
func compile(ix Indexable, f filter.Filter) (scan.ScanRanges, error) {
	if err := filter.Validate(f); err != nil {
		return scan.ScanRanges{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}

	res := scan.ScanRanges{EqualPairs: equalPairs(f)}
	parts := Parts(ix)
	spans := Spans(ix)

	starts, ends := [][]byte{nil}, [][]byte{nil}
	startInclusive, endInclusive := true, true
	narrowing := true
	for i, part := range parts {
		c, err := partConstraint(part, f)
		if err != nil {
			return scan.ScanRanges{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		if c.empty {
			return res, nil
		}
		if !c.constrained() {
			narrowing = false
			continue
		}
		if narrowing {
			switch {
			case c.pinned && len(starts)*len(c.points) <= maxRanges:
				starts = cross(starts, c.points)
				ends = starts
				continue
			case c.pinned:
				narrowing = false
			default:
				if c.start.bounded() {
					starts = appendAll(starts, c.start.b)
					startInclusive = c.start.inclusive
				}
				if c.end.bounded() {
					ends = appendAll(ends, c.end.b)
					endInclusive = c.end.inclusive
				}
				narrowing = false
				continue
			}
		}
		res.PartialMatches = append(res.PartialMatches, partials(c, locate(spans, i), spans[i])...)
	}

	rx, err := regexPartials(parts, spans, f)
	if err != nil {
		return scan.ScanRanges{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	res.PartialMatches = append(res.PartialMatches, rx...)

	ranges := scan.Merge(scan.CreateRanges(starts, ends, startInclusive, endInclusive))
	for i := range ranges {
		if len(ranges[i].Start) == 0 {
			ranges[i].Start = nil
		}
		if len(ranges[i].End) == 0 {
			ranges[i].End = nil
		}
	}
	res.Ranges = ranges
	return res, nil
}

// KeyScanRange compiles a filter into ranges over primary keys built by key.
// A non-empty startKey resumes an ascending scan there.
func KeyScanRange(key Indexable, f filter.Filter, startKey []byte, includeStart bool) (scan.KeyScanRanges, error) {
	sr, err := compile(key, f)
	if err != nil {
		return scan.KeyScanRanges{}, err
	}
	size, _ := FixedWidth(key)
	kr := scan.KeyScanRanges{
		ScanRanges: sr,
		Uniques:    uniques(f),
		KeySize:    size,
	}
	return kr.WithStartKey(startKey, includeStart, false), nil
}

// IndexScanRange compiles a filter into ranges over the entries of an index
// built by ix. Each entry carries a primary key checked against key.
func IndexScanRange(ix Indexable, f filter.Filter, key scan.KeyScanRanges) (scan.IndexScanRanges, error) {
	sr, err := compile(ix, f)
	if err != nil {
		return scan.IndexScanRanges{}, err
	}
	return scan.IndexScanRanges{ScanRanges: sr, Key: key}, nil
}
