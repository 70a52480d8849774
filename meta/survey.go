package meta

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ridge/keystone/types"
)

var uuidType = reflect.TypeOf(uuid.UUID{})

func panicf(format string, a ...any) {
	panic(fmt.Sprintf(format, a...))
}

func (s *Struct) setDBName(dbName string) {
	if dbName == "" || s.DBName == dbName {
		return
	}
	if s.DBName != "" {
		panicf("conflicting DB name settings for struct %v: %s vs. %s", s.Type, s.DBName, dbName)
	}
	s.DBName = dbName
}

// Survey produces a Struct describing a type.
//
// Fields without an explicit index=N option get property indices following
// the highest index assigned so far, starting at 1.
func Survey(t reflect.Type) Struct {
	s := surveyInternal(t)
	if s.DBName == "" {
		panicf("missing struct-level DB name setting in struct %v", s.Type)
	}

	props := map[uint32]int{}
	next := uint32(1)
	for i := range s.Fields {
		field := &s.Fields[i]
		if field.Prop == 0 {
			field.Prop = next
		}
		if idx, ok := props[field.Prop]; ok {
			panicf("duplicate property index %d for fields %v.%s and %v.%s",
				field.Prop, t, s.Fields[idx], t, field)
		}
		props[field.Prop] = i
		if field.Prop >= next {
			next = field.Prop + 1
		}
	}
	return s
}

func surveyInternal(t reflect.Type) Struct {
	if t.Kind() != reflect.Struct {
		panicf("%v expected to be a struct type", t)
	}

	n := t.NumField()
	s := Struct{
		Type:     t,
		Fields:   make([]Field, 0, n),
		identity: noIdentity,
	}
	dbNames := map[string]int{} // holds indexes into s.Fields

loop:
	for i := 0; i < n; i++ {
		f := t.Field(i)
		options, err := parseTag(f.Tag)
		if err != nil {
			panicf("%v.%s: %v", t, f.Name, err)
		}
		switch {
		case f.Type == metaType:
			for _, opt := range options {
				switch opt.name {
				case "name":
					s.setDBName(opt.value)
				default:
					panicf("invalid struct-level option for %v: %s", t, opt)
				}
			}

		case f.Anonymous:
			for _, opt := range options {
				switch opt.name {
				case "-":
					if len(options) != 1 {
						panicf("option - for field %v.%s cannot be combined with other options", t, f.Name)
					}
					continue loop
				default:
					panicf("invalid option for %v.%s: %s", t, f.Name, opt)
				}
			}
			sub := surveyInternal(f.Type)
			s.setDBName(sub.DBName)
			if sub.identity != noIdentity {
				if s.identity != noIdentity {
					panicf("duplicate identity fields %v.%s and %v.%s",
						t, s.Fields[s.identity], t, sub.Fields[sub.identity])
				}
				s.identity = len(s.Fields) + sub.identity
			}
			for _, field := range sub.Fields {
				field.Index = append([]int{i}, field.Index...)
				if idx, ok := dbNames[field.DBName]; ok {
					panicf("duplicate DB name %s for fields %v.%s and %v.%s",
						field.DBName, t, s.Fields[idx], t, field)
				}
				dbNames[field.DBName] = len(s.Fields)
				s.Fields = append(s.Fields, field)
			}

		default:
			field := Field{
				GoName: f.Name,
				Index:  f.Index,
				GoType: f.Type,
			}
			for _, opt := range options {
				switch opt.name {
				case "-":
					if len(options) != 1 {
						panicf("option - for field %v.%s cannot be combined with other options", t, field)
					}
					continue loop
				case "name":
					if strings.ContainsAny(opt.value, ".\x00") || opt.value == "" {
						panicf("%v.%s: invalid field name %q", t, field, opt.value)
					}
					field.DBName = opt.value
				case "index":
					prop, err := strconv.ParseUint(opt.value, 10, 32)
					if err != nil || prop == 0 {
						panicf("%v.%s: invalid property index %q", t, field, opt.value)
					}
					field.Prop = uint32(prop)
				case "required":
					field.Required = true
				case "unique":
					field.Unique = true
				case "identity":
					if s.identity != noIdentity {
						panicf("duplicate identity fields %v.%s and %v.%s",
							t, s.Fields[s.identity], t, field)
					}
					if f.Type != uuidType {
						panicf("identity field %v.%s must be a uuid.UUID", t, field)
					}
					field.Required = true
					s.identity = len(s.Fields)
				default:
					panicf("invalid option for %v.%s: %s", t, field, opt)
				}
			}
			if !f.IsExported() {
				panicf("unexported field %v.%s must be skipped using a `keystone:\"-\"` tag", t, field)
			}
			field.Type, _ = types.Of(goTypeOf(f.Type))
			if field.Unique && !field.Type.Valid() {
				panicf("unique field %v.%s has no key encoding", t, field)
			}
			if field.DBName == "" {
				field.DBName = field.GoName
			}
			if idx, ok := dbNames[field.DBName]; ok {
				panicf("duplicate DB name %s for fields %v.%s and %v.%s",
					field.DBName, t, s.Fields[idx], t, field)
			}
			dbNames[field.DBName] = len(s.Fields)
			s.Fields = append(s.Fields, field)
		}
	}

	return s
}

// goTypeOf strips the pointer used to mark optional fields
func goTypeOf(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}
