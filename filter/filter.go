// Package filter defines the closed set of record filters understood by the
// scan compiler and the storage backends.
//
// Leaf filters reference a single property and carry values of the
// property's type. And, Or and Not combine filters; Exists tests presence.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ridge/keystone/meta"
)

// ErrUnsupported is returned for filters that cannot be evaluated
var ErrUnsupported = errors.New("unsupported filter")

// Kind identifies a filter variant
type Kind uint8

// Kind values
const (
	KindEquals Kind = iota + 1
	KindGreaterThan
	KindGreaterThanEquals
	KindLessThan
	KindLessThanEquals
	KindRange
	KindValueIn
	KindPrefix
	KindRegEx
	KindAnd
	KindOr
	KindNot
	KindExists
)

var kindNames = [...]string{
	KindEquals:            "Equals",
	KindGreaterThan:       "GreaterThan",
	KindGreaterThanEquals: "GreaterThanEquals",
	KindLessThan:          "LessThan",
	KindLessThanEquals:    "LessThanEquals",
	KindRange:             "Range",
	KindValueIn:           "ValueIn",
	KindPrefix:            "Prefix",
	KindRegEx:             "RegEx",
	KindAnd:               "And",
	KindOr:                "Or",
	KindNot:               "Not",
	KindExists:            "Exists",
}

// String returns the name of the filter kind
func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Filter is one of the filter variants declared in this package
type Filter interface {
	Kind() Kind
	isFilter()
}

// Equals matches records where the property equals Value
type Equals struct {
	Field meta.Field
	Value any
}

// GreaterThan matches records where the property is greater than Value
type GreaterThan struct {
	Field meta.Field
	Value any
}

// GreaterThanEquals matches records where the property is at least Value
type GreaterThanEquals struct {
	Field meta.Field
	Value any
}

// LessThan matches records where the property is less than Value
type LessThan struct {
	Field meta.Field
	Value any
}

// LessThanEquals matches records where the property is at most Value
type LessThanEquals struct {
	Field meta.Field
	Value any
}

// Range matches records where the property is within the closed range
// [From, To]
type Range struct {
	Field    meta.Field
	From, To any
}

// ValueIn matches records where the property equals one of Values
type ValueIn struct {
	Field  meta.Field
	Values []any
}

// Prefix matches records where the property starts with Value. Only string
// and byte array properties support prefixes.
type Prefix struct {
	Field meta.Field
	Value any
}

// RegEx matches records where the string property matches Pattern
// (RE2 syntax, unanchored)
type RegEx struct {
	Field   meta.Field
	Pattern string
}

// And matches records matching all of Filters
type And struct {
	Filters []Filter
}

// Or matches records matching any of Filters
type Or struct {
	Filters []Filter
}

// Not matches records not matching Filter
type Not struct {
	Filter Filter
}

// Exists matches records where the property is present
type Exists struct {
	Field meta.Field
}

func (Equals) Kind() Kind            { return KindEquals }
func (GreaterThan) Kind() Kind       { return KindGreaterThan }
func (GreaterThanEquals) Kind() Kind { return KindGreaterThanEquals }
func (LessThan) Kind() Kind          { return KindLessThan }
func (LessThanEquals) Kind() Kind    { return KindLessThanEquals }
func (Range) Kind() Kind             { return KindRange }
func (ValueIn) Kind() Kind           { return KindValueIn }
func (Prefix) Kind() Kind            { return KindPrefix }
func (RegEx) Kind() Kind             { return KindRegEx }
func (And) Kind() Kind               { return KindAnd }
func (Or) Kind() Kind                { return KindOr }
func (Not) Kind() Kind               { return KindNot }
func (Exists) Kind() Kind            { return KindExists }

func (Equals) isFilter()            {}
func (GreaterThan) isFilter()       {}
func (GreaterThanEquals) isFilter() {}
func (LessThan) isFilter()          {}
func (LessThanEquals) isFilter()    {}
func (Range) isFilter()             {}
func (ValueIn) isFilter()           {}
func (Prefix) isFilter()            {}
func (RegEx) isFilter()             {}
func (And) isFilter()               {}
func (Or) isFilter()                {}
func (Not) isFilter()               {}
func (Exists) isFilter()            {}

// Eq returns an Equals filter
func Eq(f meta.Field, v any) Filter { return Equals{Field: f, Value: v} }

// Gt returns a GreaterThan filter
func Gt(f meta.Field, v any) Filter { return GreaterThan{Field: f, Value: v} }

// Gte returns a GreaterThanEquals filter
func Gte(f meta.Field, v any) Filter { return GreaterThanEquals{Field: f, Value: v} }

// Lt returns a LessThan filter
func Lt(f meta.Field, v any) Filter { return LessThan{Field: f, Value: v} }

// Lte returns a LessThanEquals filter
func Lte(f meta.Field, v any) Filter { return LessThanEquals{Field: f, Value: v} }

// Between returns a Range filter
func Between(f meta.Field, from, to any) Filter { return Range{Field: f, From: from, To: to} }

// In returns a ValueIn filter
func In(f meta.Field, values ...any) Filter { return ValueIn{Field: f, Values: values} }

// HasPrefix returns a Prefix filter
func HasPrefix(f meta.Field, v any) Filter { return Prefix{Field: f, Value: v} }

// Regex returns a RegEx filter
func Regex(f meta.Field, pattern string) Filter { return RegEx{Field: f, Pattern: pattern} }

// AllOf returns an And filter
func AllOf(filters ...Filter) Filter { return And{Filters: filters} }

// AnyOf returns an Or filter
func AnyOf(filters ...Filter) Filter { return Or{Filters: filters} }

// Negate returns a Not filter
func Negate(f Filter) Filter { return Not{Filter: f} }

// Present returns an Exists filter
func Present(f meta.Field) Filter { return Exists{Field: f} }

// FieldOf returns the property referenced by a leaf filter
func FieldOf(f Filter) (meta.Field, bool) {
	switch f := f.(type) {
	case Equals:
		return f.Field, true
	case GreaterThan:
		return f.Field, true
	case GreaterThanEquals:
		return f.Field, true
	case LessThan:
		return f.Field, true
	case LessThanEquals:
		return f.Field, true
	case Range:
		return f.Field, true
	case ValueIn:
		return f.Field, true
	case Prefix:
		return f.Field, true
	case RegEx:
		return f.Field, true
	case Exists:
		return f.Field, true
	default:
		return meta.Field{}, false
	}
}

// Conjuncts flattens nested And filters into the list of filters that must
// all hold. A nil filter has no conjuncts.
func Conjuncts(f Filter) []Filter {
	switch f := f.(type) {
	case nil:
		return nil
	case And:
		var res []Filter
		for _, sub := range f.Filters {
			res = append(res, Conjuncts(sub)...)
		}
		return res
	default:
		return []Filter{f}
	}
}

// Walk calls fn for f and, while fn returns true, for its sub-filters
func Walk(f Filter, fn func(Filter) bool) {
	if f == nil || !fn(f) {
		return
	}
	switch f := f.(type) {
	case And:
		for _, sub := range f.Filters {
			Walk(sub, fn)
		}
	case Or:
		for _, sub := range f.Filters {
			Walk(sub, fn)
		}
	case Not:
		Walk(f.Filter, fn)
	}
}

// Fields lists the properties referenced by a filter in order of first
// appearance
func Fields(f Filter) []meta.Field {
	var res []meta.Field
	seen := map[string]bool{}
	Walk(f, func(f Filter) bool {
		if field, ok := FieldOf(f); ok && !seen[field.DBName] {
			seen[field.DBName] = true
			res = append(res, field)
		}
		return true
	})
	return res
}

// Describe renders a filter for logs and error messages
func Describe(f Filter) string {
	var sb strings.Builder
	describe(&sb, f)
	return sb.String()
}

func describe(sb *strings.Builder, f Filter) {
	list := func(name string, filters []Filter) {
		sb.WriteString(name)
		sb.WriteByte('(')
		for i, sub := range filters {
			if i > 0 {
				sb.WriteString(", ")
			}
			describe(sb, sub)
		}
		sb.WriteByte(')')
	}

	switch f := f.(type) {
	case nil:
		sb.WriteString("*")
	case Equals:
		fmt.Fprintf(sb, "%s = %s", f.Field.DBName, value(f.Value))
	case GreaterThan:
		fmt.Fprintf(sb, "%s > %s", f.Field.DBName, value(f.Value))
	case GreaterThanEquals:
		fmt.Fprintf(sb, "%s >= %s", f.Field.DBName, value(f.Value))
	case LessThan:
		fmt.Fprintf(sb, "%s < %s", f.Field.DBName, value(f.Value))
	case LessThanEquals:
		fmt.Fprintf(sb, "%s <= %s", f.Field.DBName, value(f.Value))
	case Range:
		fmt.Fprintf(sb, "%s in [%s, %s]", f.Field.DBName, value(f.From), value(f.To))
	case ValueIn:
		sb.WriteString(f.Field.DBName + " in {")
		for i, v := range f.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(value(v))
		}
		sb.WriteByte('}')
	case Prefix:
		fmt.Fprintf(sb, "%s starts with %s", f.Field.DBName, value(f.Value))
	case RegEx:
		fmt.Fprintf(sb, "%s ~ /%s/", f.Field.DBName, f.Pattern)
	case And:
		list("And", f.Filters)
	case Or:
		list("Or", f.Filters)
	case Not:
		list("Not", []Filter{f.Filter})
	case Exists:
		fmt.Fprintf(sb, "%s exists", f.Field.DBName)
	default:
		fmt.Fprintf(sb, "%T", f)
	}
}

func value(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprint(v)
}
