package meta

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValuesOf(t *testing.T) {
	type Foo struct {
		Meta     `keystone:"name=foo"`
		Number   uint32
		Optional *string
		Any      any
	}
	s := Survey(reflect.TypeOf(Foo{}))
	number := s.MustField("Number")
	optional := s.MustField("Optional")
	anyField := s.MustField("Any")

	values := s.ValuesOf(Foo{})
	v, ok := values.Value(number)
	require.True(t, ok)
	require.Equal(t, uint32(0), v)
	_, ok = values.Value(optional)
	require.False(t, ok)
	_, ok = values.Value(anyField)
	require.False(t, ok)

	str := "x"
	values = s.ValuesOf(&Foo{Number: 5, Optional: &str, Any: 3})
	v, ok = values.Value(optional)
	require.True(t, ok)
	require.Equal(t, "x", v)
	v, ok = values.Value(anyField)
	require.True(t, ok)
	require.Equal(t, 3, v)

	require.PanicsWithValue(t, "expected struct type meta.Foo",
		func() { s.ValuesOf(struct{}{}) })
}

func TestValueMap(t *testing.T) {
	m := ValueMap{1: "a", 2: nil}
	v, ok := m.Value(Field{Prop: 1})
	require.True(t, ok)
	require.Equal(t, "a", v)
	_, ok = m.Value(Field{Prop: 2})
	require.False(t, ok)
	_, ok = m.Value(Field{Prop: 3})
	require.False(t, ok)
}
