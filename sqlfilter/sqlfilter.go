// Package sqlfilter translates SQL WHERE clauses into filter trees.
//
// Columns are resolved against a meta.Struct by Go or DB field name, and
// literals are converted to the column's property type:
//
//	number = 5 AND name LIKE 'Jan%'          => And(Equals, Prefix)
//	time BETWEEN '2020-01-01T00:00:00Z' AND '2021-01-01T00:00:00Z' => Range
//	name REGEXP '^J' OR note IS NULL         => Or(RegEx, Not(Exists))
package sqlfilter

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/types"
)

// ErrSyntax is returned for WHERE clauses that cannot be translated
var ErrSyntax = errors.New("invalid filter expression")

// Parse translates a WHERE clause (without the WHERE keyword). An empty
// clause yields a nil filter, which matches everything.
func Parse(s meta.Struct, where string) (filter.Filter, error) {
	if strings.TrimSpace(where) == "" {
		return nil, nil
	}
	stmt, err := sqlparser.Parse("select * from t where " + where)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || sel.Where == nil {
		return nil, fmt.Errorf("%w: %q", ErrSyntax, where)
	}
	p := parser{s: s}
	f, err := p.convert(sel.Where.Expr)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

type parser struct {
	s meta.Struct
}

func (p parser) convert(expr sqlparser.Expr) (filter.Filter, error) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		left, err := p.convert(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.convert(e.Right)
		if err != nil {
			return nil, err
		}
		return filter.And{Filters: append(filter.Conjuncts(left), filter.Conjuncts(right)...)}, nil

	case *sqlparser.OrExpr:
		left, err := p.convert(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.convert(e.Right)
		if err != nil {
			return nil, err
		}
		return filter.Or{Filters: append(disjuncts(left), disjuncts(right)...)}, nil

	case *sqlparser.NotExpr:
		sub, err := p.convert(e.Expr)
		if err != nil {
			return nil, err
		}
		return filter.Not{Filter: sub}, nil

	case *sqlparser.ParenExpr:
		return p.convert(e.Expr)

	case *sqlparser.ComparisonExpr:
		return p.comparison(e)

	case *sqlparser.RangeCond:
		field, err := p.column(e.Left)
		if err != nil {
			return nil, err
		}
		from, err := literal(field, e.From)
		if err != nil {
			return nil, err
		}
		to, err := literal(field, e.To)
		if err != nil {
			return nil, err
		}
		f := filter.Between(field, from, to)
		switch strings.ToLower(e.Operator) {
		case "between":
			return f, nil
		case "not between":
			return filter.Not{Filter: f}, nil
		}
		return nil, fmt.Errorf("%w: operator %s", ErrSyntax, e.Operator)

	case *sqlparser.IsExpr:
		field, err := p.column(e.Expr)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(e.Operator) {
		case "is null":
			return filter.Not{Filter: filter.Present(field)}, nil
		case "is not null":
			return filter.Present(field), nil
		}
		return nil, fmt.Errorf("%w: operator %s", ErrSyntax, e.Operator)

	default:
		return nil, fmt.Errorf("%w: unsupported expression %s", ErrSyntax, sqlparser.String(expr))
	}
}

func disjuncts(f filter.Filter) []filter.Filter {
	if or, ok := f.(filter.Or); ok {
		return or.Filters
	}
	return []filter.Filter{f}
}

func (p parser) column(expr sqlparser.Expr) (meta.Field, error) {
	col, ok := expr.(*sqlparser.ColName)
	if !ok {
		return meta.Field{}, fmt.Errorf("%w: expected a column, got %s", ErrSyntax, sqlparser.String(expr))
	}
	name := col.Name.String()
	if f, ok := p.s.Field(name); ok {
		return f, nil
	}
	for _, f := range p.s.Fields {
		if strings.EqualFold(f.GoName, name) || strings.EqualFold(f.DBName, name) {
			return f, nil
		}
	}
	return meta.Field{}, fmt.Errorf("%w: unknown column %s in %s", ErrSyntax, name, p.s)
}

func (p parser) comparison(e *sqlparser.ComparisonExpr) (filter.Filter, error) {
	field, err := p.column(e.Left)
	if err != nil {
		return nil, err
	}

	op := strings.ToLower(e.Operator)
	switch op {
	case "in", "not in":
		tuple, ok := e.Right.(sqlparser.ValTuple)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a value list", ErrSyntax, op)
		}
		values := make([]any, 0, len(tuple))
		for _, item := range tuple {
			v, err := literal(field, item)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		f := filter.In(field, values...)
		if op == "not in" {
			return filter.Not{Filter: f}, nil
		}
		return f, nil

	case "like", "not like", "regexp", "not regexp":
		pattern, ok := stringLiteral(e.Right)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a string pattern", ErrSyntax, op)
		}
		var f filter.Filter
		switch {
		case strings.HasSuffix(op, "regexp"):
			f = filter.Regex(field, pattern)
		case isPrefixPattern(pattern):
			var v any = strings.TrimSuffix(pattern, "%")
			if field.Type.Kind == types.FixedBytes {
				v = []byte(v.(string))
			}
			f = filter.HasPrefix(field, v)
		default:
			f = filter.Regex(field, likeToRegex(pattern))
		}
		if strings.HasPrefix(op, "not ") {
			return filter.Not{Filter: f}, nil
		}
		return f, nil
	}

	v, err := literal(field, e.Right)
	if err != nil {
		return nil, err
	}
	switch op {
	case "=":
		return filter.Eq(field, v), nil
	case "!=", "<>":
		return filter.Not{Filter: filter.Eq(field, v)}, nil
	case ">":
		return filter.Gt(field, v), nil
	case ">=":
		return filter.Gte(field, v), nil
	case "<":
		return filter.Lt(field, v), nil
	case "<=":
		return filter.Lte(field, v), nil
	default:
		return nil, fmt.Errorf("%w: operator %s", ErrSyntax, e.Operator)
	}
}

func isPrefixPattern(pattern string) bool {
	body, ok := strings.CutSuffix(pattern, "%")
	return ok && !strings.ContainsAny(body, "%_\\")
}

func likeToRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

func stringLiteral(expr sqlparser.Expr) (string, bool) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.StrVal {
		return "", false
	}
	return string(val.Val), true
}

// literal converts a SQL literal to a Go value of the field's property type
func literal(field meta.Field, expr sqlparser.Expr) (any, error) {
	kind := field.Type.Kind
	switch v := expr.(type) {
	case sqlparser.BoolVal:
		return bool(v), nil

	case *sqlparser.SQLVal:
		s := string(v.Val)
		switch v.Type {
		case sqlparser.StrVal:
			switch kind {
			case types.DateTime:
				t, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
				}
				return t, nil
			case types.Bool:
				b, err := strconv.ParseBool(s)
				if err != nil {
					return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
				}
				return b, nil
			case types.FixedBytes:
				return []byte(s), nil
			default:
				return s, nil
			}

		case sqlparser.IntVal:
			return number(field, s, 10)

		case sqlparser.HexNum:
			return number(field, strings.TrimPrefix(strings.ToLower(s), "0x"), 16)

		case sqlparser.FloatVal:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
			}
			return f, nil

		case sqlparser.HexVal:
			b, err := hex.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: column %s: unsupported literal %s", ErrSyntax, field, sqlparser.String(expr))
}

func number(field meta.Field, s string, base int) (any, error) {
	switch field.Type.Kind {
	case types.UInt8, types.UInt16, types.UInt32, types.UInt64:
		n, err := strconv.ParseUint(s, base, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
		}
		return n, nil
	case types.Float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
		}
		return n, nil
	case types.DateTime:
		n, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
		}
		return time.Unix(n, 0).UTC(), nil
	default:
		n, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %s", ErrSyntax, field, err)
		}
		return n, nil
	}
}
