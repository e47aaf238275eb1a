// Package coerce conforms record values to a schema document before the
// compiled engine runs. Loose mode converts best-effort (numeric strings,
// integral floats, textual timestamps); strict mode only accepts values whose
// native type already matches the declaration.
package coerce

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/recval/recval"
	"github.com/recval/recval/schemadoc"
)

// timeLayouts are tried in order when parsing a textual timestamp. RFC3339
// comes first; the rest cover common log and export formats.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// Apply conforms record to doc and returns the conformed copy. The input map
// is never mutated. Issues carry JSON Pointer paths; on failure the offending
// value is copied through unchanged so callers can still inspect it.
func Apply(record map[string]any, doc *schemadoc.Doc, strict bool) (map[string]any, recval.Issues) {
	return object("", record, doc, strict)
}

// Value conforms a single value against a property document. Path seeds the
// JSON Pointer of any issue produced.
func Value(path string, v any, d *schemadoc.Doc, strict bool) (any, recval.Issues) {
	return value(path, v, d, strict)
}

func object(path string, rec map[string]any, doc *schemadoc.Doc, strict bool) (map[string]any, recval.Issues) {
	out := make(map[string]any, len(rec))
	var iss recval.Issues
	for _, pr := range doc.Properties {
		v, ok := rec[pr.Name]
		if !ok {
			continue // required-ness is the engine's call
		}
		cv, more := value(path+"/"+pr.Name, v, pr.Doc, strict)
		out[pr.Name] = cv
		iss = append(iss, more...)
	}
	// Unknown keys pass through untouched; additionalProperties handling
	// belongs to the engine.
	for k, v := range rec {
		if doc.Properties.Get(k) == nil {
			out[k] = v
		}
	}
	return out, iss
}

func value(path string, v any, d *schemadoc.Doc, strict bool) (any, recval.Issues) {
	if d == nil {
		return v, nil
	}
	branches := unionBranches(d)
	if len(branches) > 1 {
		return unionValue(path, v, branches, strict)
	}
	types := d.FieldTypes()
	switch {
	case len(types) == 1:
		return convert(path, v, types[0], d, strict)
	case len(d.Properties) > 0:
		// Untyped object schema.
		return convert(path, v, "object", d, strict)
	case d.Items != nil:
		return convert(path, v, "array", d, strict)
	default:
		return v, nil
	}
}

// unionBranches expands a union declaration into per-member documents in
// declaration order. A "type" list yields one synthetic branch per name;
// oneOf/anyOf yield their branch documents as written.
func unionBranches(d *schemadoc.Doc) []*schemadoc.Doc {
	if len(d.Type) > 1 {
		out := make([]*schemadoc.Doc, 0, len(d.Type))
		for _, t := range d.Type {
			b := *d
			b.Type = schemadoc.TypeSet{t}
			out = append(out, &b)
		}
		return out
	}
	if len(d.Type) == 1 {
		return nil
	}
	if len(d.OneOf) > 0 {
		return d.OneOf
	}
	if len(d.AnyOf) > 0 {
		return d.AnyOf
	}
	return nil
}

// unionValue tries each member in declaration order; the first member that
// accepts the value wins.
func unionValue(path string, v any, branches []*schemadoc.Doc, strict bool) (any, recval.Issues) {
	var expected []string
	for _, b := range branches {
		cv, iss := value(path, v, b, strict)
		if len(iss) == 0 {
			return cv, nil
		}
		expected = append(expected, b.FieldTypes()...)
	}
	return v, recval.Issues{{
		Path:    path,
		Code:    recval.CodeUnionMismatch,
		Message: "value matches no member type",
		Params:  map[string]any{"expected": strings.Join(expected, "|"), "got": goTypeName(v)},
	}}
}

func convert(path string, v any, typ string, d *schemadoc.Doc, strict bool) (any, recval.Issues) {
	if strict {
		return strictCheck(path, v, typ, d)
	}
	return looseConvert(path, v, typ, d)
}

func typeIssue(path, expected string, v any) recval.Issues {
	return recval.Issues{{
		Path:    path,
		Code:    recval.CodeInvalidType,
		Message: fmt.Sprintf("expected %s, got %s", expected, goTypeName(v)),
		Params:  map[string]any{"expected": expected, "got": goTypeName(v)},
	}}
}

func formatIssue(path, format string, cause error) recval.Issues {
	return recval.Issues{{
		Path:    path,
		Code:    recval.CodeInvalidFormat,
		Message: "invalid " + format + " value",
		Cause:   cause,
		Params:  map[string]any{"format": format},
	}}
}

// strictCheck accepts only values whose native type already matches. It never
// converts, with one deliberate exception: date-formatted strings are still
// parsed so that a conformed record round-trips through strict mode.
func strictCheck(path string, v any, typ string, d *schemadoc.Doc) (any, recval.Issues) {
	switch typ {
	case "integer":
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
			return v, nil
		case uint64:
			if n > math.MaxInt64 {
				return v, typeIssue(path, typ, v)
			}
			return v, nil
		case gojson.Number:
			if _, err := n.Int64(); err == nil {
				return v, nil
			}
		}
		return v, typeIssue(path, typ, v)
	case "number":
		switch n := v.(type) {
		case float32, float64,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64:
			return v, nil
		case gojson.Number:
			if _, err := n.Float64(); err == nil {
				return v, nil
			}
		}
		return v, typeIssue(path, typ, v)
	case "string":
		if isDateFormat(d) {
			switch s := v.(type) {
			case time.Time:
				return s, nil
			case string:
				t, err := parseTimestamp(s)
				if err != nil {
					return v, formatIssue(path, d.Format, err)
				}
				return t, nil
			}
			return v, typeIssue(path, typ, v)
		}
		if _, ok := v.(string); ok {
			return v, nil
		}
		return v, typeIssue(path, typ, v)
	case "boolean":
		if _, ok := v.(bool); ok {
			return v, nil
		}
		return v, typeIssue(path, typ, v)
	case "null":
		if v == nil {
			return nil, nil
		}
		return v, typeIssue(path, typ, v)
	case "object":
		m, ok := asStringMap(v)
		if !ok {
			return v, typeIssue(path, typ, v)
		}
		return object(path, m, d, true)
	case "array":
		return arrayValue(path, v, d, true)
	default:
		return v, nil
	}
}

func looseConvert(path string, v any, typ string, d *schemadoc.Doc) (any, recval.Issues) {
	switch typ {
	case "integer":
		if n, ok := toInt64(v); ok {
			return n, nil
		}
		return v, typeIssue(path, typ, v)
	case "number":
		if f, ok := toFloat64(v); ok {
			return f, nil
		}
		return v, typeIssue(path, typ, v)
	case "string":
		if isDateFormat(d) {
			switch s := v.(type) {
			case time.Time:
				return s, nil
			case string:
				t, err := parseTimestamp(s)
				if err != nil {
					return v, formatIssue(path, d.Format, err)
				}
				return t, nil
			}
			return v, typeIssue(path, typ, v)
		}
		if s, ok := toString(v); ok {
			return s, nil
		}
		return v, typeIssue(path, typ, v)
	case "boolean":
		if b, ok := toBool(v); ok {
			return b, nil
		}
		return v, typeIssue(path, typ, v)
	case "null":
		if v == nil {
			return nil, nil
		}
		return v, typeIssue(path, typ, v)
	case "object":
		m, ok := asStringMap(v)
		if !ok {
			return v, typeIssue(path, typ, v)
		}
		return object(path, m, d, false)
	case "array":
		return arrayValue(path, v, d, false)
	default:
		return v, nil
	}
}

func arrayValue(path string, v any, d *schemadoc.Doc, strict bool) (any, recval.Issues) {
	items, ok := asSlice(v)
	if !ok {
		return v, typeIssue(path, "array", v)
	}
	out := make([]any, len(items))
	var iss recval.Issues
	for i, it := range items {
		cv, more := value(path+"/"+strconv.Itoa(i), it, d.Items, strict)
		out[i] = cv
		iss = append(iss, more...)
	}
	return out, iss
}

func isDateFormat(d *schemadoc.Doc) bool {
	return d != nil && (d.Format == "date-time" || d.Format == "date")
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case gojson.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt64(f)
		}
		return 0, false
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return floatToInt64(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

// floatToInt64 accepts only lossless conversions: 1.0 conforms, 1.5 does not.
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case gojson.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case gojson.Number:
		return s.String(), true
	case bool:
		return strconv.FormatBool(s), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", s), true
	case float32:
		return strconv.FormatFloat(float64(s), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), true
	case time.Time:
		return s.UTC().Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "t", "yes", "y", "on", "1":
			return true, true
		case "false", "f", "no", "n", "off", "0":
			return false, true
		}
		return false, false
	case gojson.Number:
		if i, err := b.Int64(); err == nil {
			return numericBool(i)
		}
		return false, false
	default:
		if i, ok := toInt64(v); ok {
			return numericBool(i)
		}
		return false, false
	}
}

func numericBool(i int64) (bool, bool) {
	switch i {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

func asStringMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		out[it.Key().String()] = it.Value().Interface()
	}
	return out, true
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false // []byte reads as a serialized record, not an array
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// goTypeName maps a record value onto JSON Schema type vocabulary for issue
// parameters.
func goTypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float32, float64:
		return "number"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case time.Time:
		return "string"
	case gojson.Number:
		if _, err := t.Int64(); err == nil {
			return "integer"
		}
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return reflect.TypeOf(v).String()
	}
}
