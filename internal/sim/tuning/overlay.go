package tuning

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// overlay decodes node onto dst one key at a time. A value that does not
// decode leaves dst as it was and is reported in notes, as are unknown keys.
func overlay(node *yaml.Node, dst reflect.Value, path string, notes *[]string) {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return
		}
		node = node.Content[0]
	}
	if node.Kind == 0 || node.Tag == "!!null" {
		return
	}
	if dst.Kind() == reflect.Struct && node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			name := key
			if path != "" {
				name = path + "." + key
			}
			f, ok := fieldByTag(dst, key)
			if !ok {
				*notes = append(*notes, fmt.Sprintf("%s: unknown key ignored", name))
				continue
			}
			overlay(node.Content[i+1], f, name, notes)
		}
		return
	}

	tmp := reflect.New(dst.Type())
	tmp.Elem().Set(clone(dst))
	if err := node.Decode(tmp.Interface()); err != nil {
		if path == "" {
			path = "tuning"
		}
		*notes = append(*notes, fmt.Sprintf("%s: line %d: invalid value %q, keeping %v", path, node.Line, node.Value, dst.Interface()))
		return
	}
	dst.Set(tmp.Elem())
}

func fieldByTag(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if name == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// clone copies maps so a failed decode cannot leave half its keys behind.
func clone(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Map || v.IsNil() {
		return v
	}
	out := reflect.MakeMapWithSize(v.Type(), v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	return out
}
