package main

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/ridge/keystone/meta"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/types"
)

var goNameRx = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

var metaType = reflect.TypeOf(meta.Meta{})

// fieldOf parses a --field value: Name:type[:option...], where options are
// unique, identity and required
func fieldOf(spec string) (reflect.StructField, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 {
		return reflect.StructField{}, fmt.Errorf("field %q: expected Name:type[:option...]", spec)
	}
	name := parts[0]
	if !goNameRx.MatchString(name) {
		return reflect.StructField{}, fmt.Errorf("field %q: name must start with an upper case letter", spec)
	}
	typ, err := types.Parse(parts[1])
	if err != nil {
		return reflect.StructField{}, fmt.Errorf("field %q: %w", spec, err)
	}
	goType, ok := typ.GoType()
	if !ok {
		return reflect.StructField{}, fmt.Errorf("field %q: type %s has no Go representation", spec, typ)
	}
	for _, opt := range parts[2:] {
		switch opt {
		case "unique", "identity", "required":
		default:
			return reflect.StructField{}, fmt.Errorf("field %q: unknown option %q", spec, opt)
		}
	}

	sf := reflect.StructField{Name: name, Type: goType}
	if len(parts) > 2 {
		sf.Tag = reflect.StructTag(fmt.Sprintf(`keystone:"%s"`, strings.Join(parts[2:], ",")))
	}
	return sf, nil
}

// kindOf builds a record kind from command line definitions
func kindOf(table string, fields []string, key string, indexes []string) (kind *model.Kind, err error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields defined, use --field")
	}
	sfs := []reflect.StructField{{
		Name:      "Meta",
		Type:      metaType,
		Tag:       reflect.StructTag(fmt.Sprintf(`keystone:"name=%s"`, table)),
		Anonymous: true,
	}}
	for _, spec := range fields {
		sf, err := fieldOf(spec)
		if err != nil {
			return nil, err
		}
		sfs = append(sfs, sf)
	}

	// definitions are checked by panicking constructors
	defer func() {
		if r := recover(); r != nil {
			kind, err = nil, fmt.Errorf("invalid definition: %v", r)
		}
	}()
	example := reflect.New(reflect.StructOf(sfs)).Elem().Interface()
	return model.KindOf(example, key, indexes...), nil
}
