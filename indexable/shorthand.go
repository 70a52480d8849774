package indexable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ridge/keystone/meta"
)

var tokenRx = regexp.MustCompile(`^(-)?(?:([A-Za-z_][A-Za-z0-9_]*)|@(uuid4|uuid7))(\^)?$`)

// Parse is a shorthand for specifying indexables. An indexable is described
// by a string containing space-separated parts of the forms:
//
// "Field" stores the field ascending.
//
// "-Field" stores the field descending.
//
// "Field^" stores the field ascending, and scans with no upper limit on it
// stop at the maximum value of its type.
//
// "@uuid4" and "@uuid7" store the identity field of the structure as a
// random or time-ordered UUID.
//
// Modifiers can be combined: "-Field^".
//
// Examples:
//
// Parse(s, "Number") => Ref(s, "Number")
// Parse(s, "Number -Time") => Multi(Ref(s, "Number"), Reverse(Ref(s, "Time")))
// Parse(s, "Name^ @uuid7") => Multi(ToMax(Ref(s, "Name")), UUIDv7(s))
func Parse(s meta.Struct, def string) (Indexable, error) {
	words := strings.Fields(def)
	if len(words) == 0 {
		return nil, fmt.Errorf("empty indexable definition for %s", s)
	}

	parts := make([]Indexable, 0, len(words))
	for _, word := range words {
		m := tokenRx.FindStringSubmatch(word)
		if m == nil {
			return nil, fmt.Errorf("%q is not a valid indexable part", word)
		}
		var part Indexable
		switch m[3] {
		case "uuid4", "uuid7":
			f, ok := s.Identity()
			if !ok {
				return nil, fmt.Errorf("%q: %s has no identity field", word, s)
			}
			if m[3] == "uuid4" {
				part = UUIDv4Key{Field: f}
			} else {
				part = UUIDv7Key{Field: f}
			}
		default:
			f, ok := s.Field(m[2])
			if !ok {
				return nil, fmt.Errorf("%q: field %s not found in %s", word, m[2], s)
			}
			if !f.Encodable() {
				return nil, fmt.Errorf("%q: field %s has no key encoding", word, f)
			}
			part = Reference{Field: f}
		}
		if m[4] == "^" {
			part = ReferenceToMax{Part: part}
		}
		if m[1] == "-" {
			part = Reversed{Part: part}
		}
		parts = append(parts, part)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return Multiple{Parts: parts}, nil
}

// MustParse is like Parse but panics on error
func MustParse(s meta.Struct, def string) Indexable {
	ix, err := Parse(s, def)
	if err != nil {
		panic(err)
	}
	return ix
}
