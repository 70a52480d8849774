package store

import (
	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/scan"
)

// Key-value backends share one keyspace:
//
//	r/<table>/<primary key>                      -> record
//	i/<table>/<family>/<index value><primary key> -> empty
//	u/<table>/<property ref>/<encoded value>     -> primary key
const (
	recordSpace = "r/"
	indexSpace  = "i/"
	uniqueSpace = "u/"
)

// RecordPrefix returns the prefix of all records of a table
func RecordPrefix(table string) []byte {
	return []byte(recordSpace + table + "/")
}

// RecordKey returns the storage key of a record
func RecordKey(table string, key []byte) []byte {
	return bytecmp.Concat(RecordPrefix(table), key)
}

// IndexPrefix returns the prefix of all entries of an index
func IndexPrefix(table, family string) []byte {
	return []byte(indexSpace + table + "/" + family + "/")
}

// UniquePrefix returns the prefix of all values of a unique property
func UniquePrefix(table string, field meta.Field) []byte {
	return bytecmp.Concat([]byte(uniqueSpace+table+"/"), field.Ref(), []byte("/"))
}

// UniqueKey returns the storage key of a unique value
func UniqueKey(table string, field meta.Field, value []byte) []byte {
	return bytecmp.Concat(UniquePrefix(table, field), value)
}

// Bounds converts a range within a prefix into native iterator bounds: an
// inclusive lower bound and an exclusive upper bound. Returns false if the
// range is empty.
func Bounds(prefix []byte, r scan.ScanRange) ([]byte, []byte, bool) {
	if r.IsEmpty() {
		return nil, nil, false
	}
	lb, ok := r.LowerBound()
	if !ok {
		return nil, nil, false
	}
	lower := bytecmp.Concat(prefix, lb)
	upper := bytecmp.PrefixEnd(prefix)
	if ub := r.UpperBound(); ub != nil {
		upper = bytecmp.Concat(prefix, ub)
	}
	return lower, upper, true
}
