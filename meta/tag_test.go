package meta

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionString(t *testing.T) {
	require.Equal(t, "unique", option{name: "unique"}.String())
	require.Equal(t, "name=", option{name: "name", valued: true}.String())
	require.Equal(t, "name=foo", option{name: "name", value: "foo", valued: true}.String())
}

func TestParseTag(t *testing.T) {
	for _, c := range []struct {
		tag      reflect.StructTag
		expected []option
	}{
		{``, nil},
		{`foo`, nil},
		{`foo keystone:""`, nil},
		{`keystone:""`, nil},
		{`keystone:"unique"`, []option{{name: "unique"}}},
		{`keystone:"unique,,required"`, []option{{name: "unique"}, {name: "required"}}},
		{`keystone:" unique , name = foo "`, []option{{name: "unique"}, {name: "name", value: "foo", valued: true}}},
		{`keystone:"name="`, []option{{name: "name", valued: true}}},
		{`keystone:"name=a=b"`, []option{{name: "name", value: "a=b", valued: true}}},
		{`keystone:"index=1,name=x"`, []option{{name: "index", value: "1", valued: true}, {name: "name", value: "x", valued: true}}},
		{`keystone:"sorted"`, []option{{name: "sorted"}}},
	} {
		options, err := parseTag(c.tag)
		require.NoError(t, err, c.tag)
		require.Equal(t, c.expected, options, c.tag)
	}

	_, err := parseTag(`keystone:"name"`)
	require.EqualError(t, err, "option name requires a value")
	_, err = parseTag(`keystone:"unique=yes"`)
	require.EqualError(t, err, "option unique takes no value")
}
