package scan

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/ridge/keystone/bytecmp"
	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/types"
	"github.com/stretchr/testify/require"
)

func TestLocator(t *testing.T) {
	off, ok := At(2).Find([]byte{1, 2, 3})
	require.True(t, ok)
	require.Equal(t, 2, off)
	_, ok = At(4).Find([]byte{1, 2, 3})
	require.False(t, ok)

	l := Locator{Before: []Span{{Size: 2}, {Terminator: 0x00}}}
	off, ok = l.Find([]byte{9, 9, 'a', 'b', 0, 7})
	require.True(t, ok)
	require.Equal(t, 5, off)
	_, ok = l.Find([]byte{9, 9, 'a', 'b'})
	require.False(t, ok)
}

func TestMatchPartial(t *testing.T) {
	key := []byte{0x00, 0x05, 'J', 'a', 'n', 0x00, 0x10}
	name := Locator{Before: []Span{{Size: 2}}}
	last := Locator{Before: []Span{{Size: 2}, {Terminator: 0x00}}}

	for _, tc := range []struct {
		p   Partial
		res bool
	}{
		{PartialToMatch{At: At(0), ToMatch: []byte{0x00, 0x05}}, true},
		{PartialToMatch{At: At(1), ToMatch: []byte{0x06}}, false},
		{PartialToMatch{At: name, ToMatch: []byte("Ja")}, true},
		{PartialToBeOneOf{At: At(1), ToBeOneOf: [][]byte{{0x04}, {0x05}}}, true},
		{PartialToBeOneOf{At: At(1), ToBeOneOf: [][]byte{{0x04}, {0x06}}}, false},
		{PartialToBeBigger{At: last, Bound: []byte{0x10}}, false},
		{PartialToBeBigger{At: last, Bound: []byte{0x10}, Inclusive: true}, true},
		{PartialToBeBigger{At: last, Bound: []byte{0x0f}}, true},
		{PartialToBeSmaller{At: last, Bound: []byte{0x10}}, false},
		{PartialToBeSmaller{At: last, Bound: []byte{0x10}, Inclusive: true}, true},
		{PartialToBeSmaller{At: At(0), Bound: []byte{0x00, 0x04, 0xff}}, false},
		{PartialSizeToMatch{At: name, Span: Span{Terminator: 0x00}, Size: 4}, true},
		{PartialSizeToMatch{At: name, Span: Span{Terminator: 0x00}, Size: 3}, false},
	} {
		require.Equal(t, tc.res, MatchPartial(tc.p, key), "%s %#v", tc.p.Kind(), tc.p)
	}
}

func TestMatchRegexPartial(t *testing.T) {
	type rec struct {
		meta.Meta `keystone:"name=rec"`
		Name      string
	}
	field := meta.Survey(reflect.TypeOf(rec{})).MustField("Name")
	enc, err := types.TString.Encode("January")
	require.NoError(t, err)
	key := append([]byte{0x01}, enc...)

	p := PartialToRegexMatch{
		Field: field,
		At:    At(1),
		Span:  SpanOf(types.TString, false),
		Regex: regexp.MustCompile("^Jan.*y$"),
	}
	require.True(t, MatchPartial(p, key))
	p.Regex = regexp.MustCompile("^Feb")
	require.False(t, MatchPartial(p, key))

	reversed := append([]byte{0x01}, bytecmp.Complement(enc)...)
	p = PartialToRegexMatch{
		Field:    field,
		At:       At(1),
		Span:     SpanOf(types.TString, true),
		Reversed: true,
		Regex:    regexp.MustCompile("uary"),
	}
	require.True(t, MatchPartial(p, reversed))
	require.False(t, MatchPartial(p, []byte{0x01, 'x'}))
}

func TestPartialKindNames(t *testing.T) {
	require.Equal(t, "IndexPartialToBeBigger", PartialToBeBigger{}.Kind().String())
	require.Equal(t, "IndexPartialToRegexMatch", KindToRegexMatch.String())
	require.Equal(t, Span{Size: 4}, SpanOf(types.TUInt32, true))
}
