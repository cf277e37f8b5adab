// Package query builds GLPI query strings, including the bracketed-key
// form GLPI expects for nested search parameters.
package query

import (
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Flatten returns a copy of params in which list values under listKeys
// and map values under objectKeys are expanded into bracketed keys:
//
//	criteria: [{field: 15}]  ->  criteria[0][field]: 15
//	forcedisplay: [0, 1]     ->  forcedisplay[0]: 0, forcedisplay[1]: 1
//	searchText: {name: "x"}  ->  searchText[name]: "x"
//
// Lists nested inside list elements are expanded recursively by
// concatenating bracket segments. Keys holding other shapes are copied
// unchanged.
func Flatten(params map[string]any, listKeys, objectKeys []string) map[string]any {
	out := make(map[string]any, len(params))
	maps.Copy(out, params)

	for _, key := range listKeys {
		rv := indirect(reflect.ValueOf(params[key]))
		if !isList(rv) {
			continue
		}
		delete(out, key)
		flattenList(out, key, rv)
	}

	for _, key := range objectKeys {
		rv := indirect(reflect.ValueOf(params[key]))
		if !isObject(rv) {
			continue
		}
		delete(out, key)
		for _, k := range sortedKeys(rv) {
			v := indirect(rv.MapIndex(k))
			if !v.IsValid() {
				continue
			}
			out[key+"["+k.String()+"]"] = v.Interface()
		}
	}

	return out
}

func flattenList(out map[string]any, prefix string, list reflect.Value) {
	for i := range list.Len() {
		elem := indirect(list.Index(i))
		key := prefix + "[" + strconv.Itoa(i) + "]"

		switch {
		case !elem.IsValid():
			continue
		case isObject(elem):
			for _, k := range sortedKeys(elem) {
				v := indirect(elem.MapIndex(k))
				if !v.IsValid() {
					continue
				}
				sub := key + "[" + k.String() + "]"
				if isList(v) {
					flattenList(out, sub, v)
				} else {
					out[sub] = v.Interface()
				}
			}
		case isList(elem):
			flattenList(out, key, elem)
		default:
			out[key] = elem.Interface()
		}
	}
}

// Encode renders params as url.Values. Scalars use their natural string
// form; lists left unflattened are sent as repeated key[] entries; nil
// values are dropped.
func Encode(params map[string]any) url.Values {
	values := make(url.Values, len(params))
	for key, v := range params {
		rv := indirect(reflect.ValueOf(v))
		if !rv.IsValid() {
			continue
		}
		if isList(rv) {
			for i := range rv.Len() {
				if item := indirect(rv.Index(i)); item.IsValid() {
					values.Add(key+"[]", format(item.Interface()))
				}
			}
			continue
		}
		values.Set(key, format(rv.Interface()))
	}
	return values
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isList(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Slice:
		return v.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

func isObject(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

// sortedKeys returns the keys of a string-keyed map value in order, so
// that flattening is deterministic.
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}
