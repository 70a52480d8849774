// Package keystone compiles record filters into key scan ranges and runs
// them against ordered key-value stores.
//
// The name comes from masonry: a keystone is the wedge at the top of an arch
// that locks the other stones in place, as the primary key locks the layout
// of every record and index entry.
//
// # Record kinds
//
// A kind is a Go struct type whose fields are surveyed through keystone
// struct tags (package meta), a primary key and any number of secondary
// indexes (package model). Keys and indexes are indexables: ordered lists
// of property references, optionally reversed or padded to the maximum
// value, ending in a generated UUID when the key needs one (package
// indexable). Every property type has an order-preserving byte encoding
// (package types), so comparing encoded keys byte by byte compares records
// by their key properties.
//
//	type Event struct {
//		meta.Meta `keystone:"name=event"`
//		ID        uuid.UUID `keystone:"identity"`
//		Number    uint32
//		Time      time.Time
//		Name      string `keystone:"unique"`
//	}
//
//	var kindEvent = model.KindOf(Event{}, "Number -Time @uuid7", "Name")
//
// # Filters and ranges
//
// A filter is a tree of property comparisons combined with And, Or and Not
// (package filter), built in code or parsed from a SQL WHERE clause (package
// sqlfilter). Compiling a filter against an indexable yields the smallest
// set of byte ranges that can hold matching keys, together with partial
// matchers that test the key parts a range could not pin down (package
// scan). A scan resumed from a start key drops the ranges already visited.
//
// Compilation is conservative: a key in none of the ranges never matches,
// but a key inside a range may still fail the filter. Backends therefore
// check every candidate against the partial matchers and finally against
// the whole filter on the decoded record.
//
// # Stores
//
// Package store defines the backend contract and the scan plan shared by
// the backends: a unique lookup when the filter pins a unique property,
// point gets when every range is a single key, range scans otherwise.
// Records live in memory (memstore, on go-memdb), in Pebble (pebblestore)
// or in Badger (badgerstore). Scans see a consistent snapshot and may fan
// the ranges out to goroutines while still returning records in order.
//
// The keyscan command explains how a filter compiles and scans a Pebble or
// Badger directory from the command line or an interactive shell.
package keystone
