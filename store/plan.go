package store

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/scan"
)

// Strategy is the way a plan finds its candidate records
type Strategy uint8

// Strategies, cheapest first
const (
	UniqueLookup Strategy = iota + 1
	KeyGets
	KeyRanges
	IndexRanges
)

var strategyNames = [...]string{
	UniqueLookup: "unique lookup",
	KeyGets:      "key gets",
	KeyRanges:    "key ranges",
	IndexRanges:  "index ranges",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) && strategyNames[s] != "" {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// Plan is a compiled scan request
type Plan struct {
	Strategy Strategy
	Key      scan.KeyScanRanges
	Index    scan.IndexScanRanges // set for IndexRanges
	Family   string               // storage family of the index
	Uniques  []scan.UniqueToMatch // values of one unique property, for UniqueLookup
}

// NewPlan compiles a request
func NewPlan(kind *model.Kind, req Request) (Plan, error) {
	kr, err := kind.Compile(req.Filter, nil, false)
	if err != nil {
		return Plan{}, err
	}
	kr = kr.WithStartKey(req.StartKey, req.IncludeStart, req.Descending)
	plan := Plan{Key: kr}

	switch {
	case len(kr.Uniques) > 0:
		plan.Strategy = UniqueLookup
		first := kr.Uniques[0].Reference
		for _, u := range kr.Uniques {
			if bytes.Equal(u.Reference, first) {
				plan.Uniques = append(plan.Uniques, u)
			}
		}
	case req.Index == "" && kr.IsSingleKey():
		plan.Strategy = KeyGets
	case req.Index == "":
		plan.Strategy = KeyRanges
	default:
		plan.Strategy = IndexRanges
		if plan.Family, err = kind.Family(req.Index); err != nil {
			return Plan{}, err
		}
		if plan.Index, err = kind.CompileIndex(req.Index, req.Filter, kr); err != nil {
			return Plan{}, err
		}
	}
	return plan, nil
}

// IsEmpty returns true if the plan cannot find anything
func (p Plan) IsEmpty() bool {
	switch p.Strategy {
	case UniqueLookup:
		return len(p.Uniques) == 0 || p.Key.IsEmpty()
	case IndexRanges:
		return p.Index.IsEmpty() || p.Key.IsEmpty()
	default:
		return p.Key.IsEmpty()
	}
}

// Ranges returns the ranges to scan in visiting order
func (p Plan) Ranges(descending bool) []scan.ScanRange {
	ranges := p.Key.Ranges
	if p.Strategy == IndexRanges {
		ranges = p.Index.Ranges
	}
	if !descending {
		return ranges
	}
	res := make([]scan.ScanRange, len(ranges))
	for i, r := range ranges {
		res[len(ranges)-1-i] = r
	}
	return res
}

// Keys returns the single keys of a KeyGets plan in visiting order
func (p Plan) Keys(descending bool) [][]byte {
	keys := p.Key.Keys()
	sortKeys(keys, descending)
	return keys
}

func sortKeys(keys [][]byte, descending bool) {
	sort.Slice(keys, func(i, j int) bool {
		c := bytecmp.Compare(keys[i], keys[j])
		if descending {
			return c > 0
		}
		return c < 0
	})
}

// Decision tells a scan loop what to do with a key found by an iterator
type Decision uint8

// Decisions
const (
	Accept Decision = iota
	Skip            // the key is outside the range, but later keys may be inside
	Stop            // no later key can be inside the range
)

// Decide checks a key found by an iterator moving in a given direction
// against the range being scanned
func Decide(r scan.ScanRange, key []byte, descending bool) Decision {
	if descending {
		switch {
		case r.KeyBeforeStart(key):
			return Stop
		case r.KeyOutOfRange(key):
			return Skip
		}
		return Accept
	}
	switch {
	case r.KeyOutOfRange(key):
		return Stop
	case r.KeyBeforeStart(key):
		return Skip
	}
	return Accept
}
