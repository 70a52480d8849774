package meta

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/ridge/keystone/types"
	"github.com/stretchr/testify/require"
)

func TestSurveySimple(t *testing.T) {
	type Name string
	type Foo struct {
		Meta          `keystone:"name=foo"`
		ID            uuid.UUID `keystone:"identity"`
		Field         int
		RequiredField uint32 `keystone:"required"`
		UniqueField   Name   `keystone:"unique,index=10"`
		RenamedField  *int64 `keystone:"name=SomethingElse"`
		Opaque        map[string]int
		SkippedField  int `keystone:"-"`
	}
	require.Equal(t, Struct{
		DBName: "foo",
		Type:   reflect.TypeOf(Foo{}),
		Fields: []Field{
			{
				GoName:   "ID",
				DBName:   "ID",
				Index:    []int{1},
				GoType:   reflect.TypeOf(uuid.UUID{}),
				Prop:     1,
				Type:     types.TUUID,
				Required: true,
			},
			{
				GoName: "Field",
				DBName: "Field",
				Index:  []int{2},
				GoType: reflect.TypeOf(0),
				Prop:   2,
				Type:   types.TSInt64,
			},
			{
				GoName:   "RequiredField",
				DBName:   "RequiredField",
				Index:    []int{3},
				GoType:   reflect.TypeOf(uint32(0)),
				Prop:     3,
				Type:     types.TUInt32,
				Required: true,
			},
			{
				GoName: "UniqueField",
				DBName: "UniqueField",
				Index:  []int{4},
				GoType: reflect.TypeOf(Name("")),
				Prop:   10,
				Type:   types.TString,
				Unique: true,
			},
			{
				GoName: "RenamedField",
				DBName: "SomethingElse",
				Index:  []int{5},
				GoType: reflect.TypeOf((*int64)(nil)),
				Prop:   11,
				Type:   types.TSInt64,
			},
			{
				GoName: "Opaque",
				DBName: "Opaque",
				Index:  []int{6},
				GoType: reflect.TypeOf(map[string]int{}),
				Prop:   12,
			},
		},
		identity: 0,
	}, Survey(reflect.TypeOf(Foo{})))
}

func TestSurveyNested(t *testing.T) {
	type Foo struct {
		Meta `keystone:"name=foo_bar"`
		ID   uuid.UUID `keystone:"identity"`
	}
	type Bar struct {
		Meta  `keystone:"name=foo_bar"`
		Value string
	}
	type FooBar struct {
		Foo
		Bar
		Extra bool
	}
	s := Survey(reflect.TypeOf(FooBar{}))
	require.Equal(t, "foo_bar", s.DBName)
	require.Len(t, s.Fields, 3)
	require.Equal(t, []int{0, 1}, s.Fields[0].Index)
	require.Equal(t, []int{1, 1}, s.Fields[1].Index)
	require.Equal(t, []int{2}, s.Fields[2].Index)
	id, ok := s.Identity()
	require.True(t, ok)
	require.Equal(t, "ID", id.GoName)
	require.Equal(t, uint32(3), s.Fields[2].Prop)
}

func TestSurveyNotStruct(t *testing.T) {
	require.PanicsWithValue(t, "int expected to be a struct type",
		func() { Survey(reflect.TypeOf(0)) })
}

func TestSurveyInvalidOptions(t *testing.T) {
	type Foo struct {
		Meta  `keystone:"name=foo,invalid"`
		Field int
	}
	require.PanicsWithValue(t, "invalid struct-level option for meta.Foo: invalid",
		func() { Survey(reflect.TypeOf(Foo{})) })

	type Bar struct {
		Meta  `keystone:"name=bar"`
		Field int `keystone:"invalid"`
	}
	require.PanicsWithValue(t, "invalid option for meta.Bar.Field: invalid",
		func() { Survey(reflect.TypeOf(Bar{})) })

	type Baz struct {
		Meta  `keystone:"name=baz"`
		Field int `keystone:"-,required"`
	}
	require.PanicsWithValue(t, "option - for field meta.Baz.Field cannot be combined with other options",
		func() { Survey(reflect.TypeOf(Baz{})) })

	type Qux struct {
		Meta  `keystone:"name=qux"`
		Field int `keystone:"index=0"`
	}
	require.PanicsWithValue(t, `meta.Qux.Field: invalid property index "0"`,
		func() { Survey(reflect.TypeOf(Qux{})) })
}

func TestSurveyDuplicateDBName(t *testing.T) {
	type Foo struct {
		Meta   `keystone:"name=foo"`
		Field1 int `keystone:"name=foo"`
		Field2 int `keystone:"name=foo"`
	}
	require.PanicsWithValue(t, "duplicate DB name foo for fields meta.Foo.Field1 (foo) and meta.Foo.Field2 (foo)",
		func() { Survey(reflect.TypeOf(Foo{})) })
}

func TestSurveyDuplicateProp(t *testing.T) {
	type Foo struct {
		Meta   `keystone:"name=foo"`
		Field1 int `keystone:"index=2"`
		Field2 int `keystone:"index=2"`
	}
	require.PanicsWithValue(t, "duplicate property index 2 for fields meta.Foo.Field1 and meta.Foo.Field2",
		func() { Survey(reflect.TypeOf(Foo{})) })
}

func TestSurveyConflictingDBName(t *testing.T) {
	type Foo struct {
		Meta `keystone:"name=foo"`
	}
	type Bar struct {
		Meta `keystone:"name=bar"`
	}
	type FooBar struct {
		Foo
		Bar
	}
	require.PanicsWithValue(t, "conflicting DB name settings for struct meta.FooBar: foo vs. bar",
		func() { Survey(reflect.TypeOf(FooBar{})) })
}

func TestSurveyNoDBName(t *testing.T) {
	type Foo struct {
		Field1 string
	}
	require.PanicsWithValue(t, "missing struct-level DB name setting in struct meta.Foo",
		func() { Survey(reflect.TypeOf(Foo{})) })
}

func TestSurveyNoIdentity(t *testing.T) {
	type Foo struct {
		Meta   `keystone:"name=foo"`
		Field1 string
	}
	_, ok := Survey(reflect.TypeOf(Foo{})).Identity()
	require.False(t, ok)
}

func TestSurveyInvalidIdentityType(t *testing.T) {
	type Foo struct {
		Meta   `keystone:"name=foo"`
		Field1 string `keystone:"identity"`
	}
	require.PanicsWithValue(t, "identity field meta.Foo.Field1 must be a uuid.UUID",
		func() { Survey(reflect.TypeOf(Foo{})) })
}

func TestSurveyDuplicateIdentity(t *testing.T) {
	type Foo struct {
		Meta   `keystone:"name=foo"`
		Field1 uuid.UUID `keystone:"identity"`
		Field2 uuid.UUID `keystone:"identity"`
	}
	require.PanicsWithValue(t, "duplicate identity fields meta.Foo.Field1 and meta.Foo.Field2",
		func() { Survey(reflect.TypeOf(Foo{})) })
}

func TestSurveyUniqueWithoutEncoding(t *testing.T) {
	type Foo struct {
		Meta   `keystone:"name=foo"`
		Field1 []string `keystone:"unique"`
	}
	require.PanicsWithValue(t, "unique field meta.Foo.Field1 has no key encoding",
		func() { Survey(reflect.TypeOf(Foo{})) })
}

func TestSurveyUnexportedField(t *testing.T) {
	type Foo struct {
		Meta   `keystone:"name=foo"`
		field1 string
	}
	require.PanicsWithValue(t, "unexported field meta.Foo.field1 must be skipped using a `keystone:\"-\"` tag",
		func() { Survey(reflect.TypeOf(Foo{field1: ""})) })
}

func TestSurveyTagValues(t *testing.T) {
	type Foo struct {
		Meta  `keystone:"name=foo"`
		Field int `keystone:"name"`
	}
	require.PanicsWithValue(t, "meta.Foo.Field: option name requires a value",
		func() { Survey(reflect.TypeOf(Foo{})) })

	type Bar struct {
		Meta  `keystone:"name=bar"`
		Field int `keystone:" required , name = other "`
	}
	field := Survey(reflect.TypeOf(Bar{})).MustField("other")
	require.True(t, field.Required)
	require.Equal(t, "Field", field.GoName)
}
