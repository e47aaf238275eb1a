package recval

import (
	"reflect"
	"strings"
)

// Kind classifies one input item by shape. Predicates run in a fixed priority
// order: serialized first, then mapping, then struct. Classification never
// consults the schema and never fails for malformed serialized strings; parse
// errors surface later as Result issues.
type Kind int

const (
	KindUnsupported Kind = iota
	KindMapping
	KindSerialized
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSerialized:
		return "serialized"
	case KindStruct:
		return "struct"
	default:
		return "unsupported"
	}
}

// ClassifyRecord determines how a single input item will be validated.
func ClassifyRecord(item any) Kind {
	switch item.(type) {
	case string, []byte:
		return KindSerialized
	case map[string]any:
		return KindMapping
	}
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return KindUnsupported
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindMapping
		}
		return KindUnsupported
	case reflect.Struct:
		return KindStruct
	default:
		return KindUnsupported
	}
}

// resolveStructKey resolves a struct field's external key.
// Priority: json tag name > field name; "-" disables the field.
func resolveStructKey(sf reflect.StructField) string {
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			if jt[:i] != "" {
				return jt[:i]
			}
			return sf.Name
		}
		return jt
	}
	return sf.Name
}

// mappingOf converts a classified item into the map the engine consumes. The
// input is never mutated; struct and typed-map conversions always allocate.
func mappingOf(item any, opt DecodeOpt) (map[string]any, error) {
	switch m := item.(type) {
	case map[string]any:
		cp := make(map[string]any, len(m))
		for k, v := range m {
			cp[k] = v
		}
		return cp, nil
	}
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, singleIssue(CodeInvalidType, "/", "nil record")
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out[it.Key().String()] = it.Value().Interface()
		}
		return out, nil
	case reflect.Struct:
		if !opt.FromAttributes {
			return nil, singleIssue(CodeInvalidType, "/",
				"struct record requires FromAttributes")
		}
		return structToMap(rv), nil
	}
	return nil, singleIssue(CodeInvalidType, "/", "record must be a mapping, struct, or serialized string")
}

func structToMap(rv reflect.Value) map[string]any {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			// Flatten embedded structs the way encoding/json does.
			for k, v := range structToMap(rv.Field(i)) {
				if _, exists := out[k]; !exists {
					out[k] = v
				}
			}
			continue
		}
		key := resolveStructKey(sf)
		if key == "-" {
			continue
		}
		out[key] = rv.Field(i).Interface()
	}
	return out
}

func filterFields(m map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return m
	}
	keep := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		keep[f] = struct{}{}
	}
	out := make(map[string]any, len(fields))
	for k, v := range m {
		if _, ok := keep[k]; ok {
			out[k] = v
		}
	}
	return out
}
