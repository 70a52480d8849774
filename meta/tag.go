package meta

import (
	"fmt"
	"reflect"
	"strings"
)

const tagName = "keystone"

// option is one element of a keystone tag: a flag or a name=value pair
type option struct {
	name   string
	value  string
	valued bool
}

func (opt option) String() string {
	if opt.valued {
		return opt.name + "=" + opt.value
	}
	return opt.name
}

// takesValue tells for every known option whether it is written as
// name=value
var takesValue = map[string]bool{
	"name":     true,
	"index":    true,
	"required": false,
	"unique":   false,
	"identity": false,
	"-":        false,
}

// parseTag splits the keystone tag of a struct field into options. Blanks
// around options are ignored. Unknown options are returned as is.
func parseTag(tag reflect.StructTag) ([]option, error) {
	str, ok := tag.Lookup(tagName)
	if !ok {
		return nil, nil
	}

	var options []option
	for part := range strings.SplitSeq(str, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, valued := strings.Cut(part, "=")
		opt := option{name: strings.TrimSpace(name), value: strings.TrimSpace(value), valued: valued}
		if want, known := takesValue[opt.name]; known && want != opt.valued {
			if want {
				return nil, fmt.Errorf("option %s requires a value", opt)
			}
			return nil, fmt.Errorf("option %s takes no value", opt.name)
		}
		options = append(options, opt)
	}
	return options, nil
}
