package recval

import (
	"iter"
	"time"
)

// ChangeKind labels one schema field change.
type ChangeKind string

const (
	FieldAdded       ChangeKind = "added"
	FieldRemoved     ChangeKind = "removed"
	FieldTypeChanged ChangeKind = "type_changed"
)

// FieldChange is one entry of a SchemaDiff or DriftReport. From/To name the
// declared types on each side; a missing side is empty.
type FieldChange struct {
	Field string
	Kind  ChangeKind
	From  string
	To    string
}

// SchemaDiff is the ordered list of field-level differences between two
// schemas. It is immutable once produced.
type SchemaDiff []FieldChange

// Breaking reports whether the diff removes fields or changes types, i.e.
// whether records valid under the old schema may be rejected by the new one.
func (d SchemaDiff) Breaking() bool {
	for _, c := range d {
		if c.Kind == FieldRemoved || c.Kind == FieldTypeChanged {
			return true
		}
	}
	return false
}

// CompareSchemas statically compares the two schemas' field sets and declared
// types. Entries follow b's field order; fields present only in a trail in
// a's order.
func CompareSchemas(a, b FieldSource) SchemaDiff {
	af := a.Fields()
	bf := b.Fields()
	byName := make(map[string]Field, len(af))
	for _, f := range af {
		byName[f.Name] = f
	}

	var diff SchemaDiff
	inB := make(map[string]struct{}, len(bf))
	for _, f := range bf {
		inB[f.Name] = struct{}{}
		old, ok := byName[f.Name]
		if !ok {
			diff = append(diff, FieldChange{Field: f.Name, Kind: FieldAdded, To: f.Type()})
			continue
		}
		if old.Type() != f.Type() {
			diff = append(diff, FieldChange{Field: f.Name, Kind: FieldTypeChanged, From: old.Type(), To: f.Type()})
		}
	}
	for _, f := range af {
		if _, ok := inB[f.Name]; !ok {
			diff = append(diff, FieldChange{Field: f.Name, Kind: FieldRemoved, From: f.Type()})
		}
	}
	return diff
}

// DriftOpt configures drift detection.
type DriftOpt struct {
	// SampleSize caps how many records are inspected; zero means all.
	SampleSize int
}

// DriftReport describes divergence between a schema's declared shape and the
// shape observed in a sample of records.
type DriftReport struct {
	// Sampled is the number of records actually inspected.
	Sampled int
	// Changes reads from the schema's point of view: "added" fields appear in
	// the records but not the schema, "removed" fields are declared but never
	// observed, "type_changed" fields disagree on type.
	Changes SchemaDiff
}

// Drifted reports whether any divergence was observed.
func (r DriftReport) Drifted() bool { return len(r.Changes) > 0 }

// DetectDrift infers the observed shape (field set and dominant value types)
// from a sample of mapping records and diffs it against the schema. It is
// purely observational: neither the schema nor the records are modified.
func DetectDrift(schema FieldSource, records iter.Seq[map[string]any], opts ...DriftOpt) DriftReport {
	var opt DriftOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}

	shape := newObservedShape()
	sampled := 0
	for rec := range records {
		shape.observe(rec)
		sampled++
		if opt.SampleSize > 0 && sampled >= opt.SampleSize {
			break
		}
	}
	declared := make(map[string]Field)
	for _, f := range schema.Fields() {
		declared[f.Name] = f
	}
	raw := CompareSchemas(schema, shape)
	changes := make(SchemaDiff, 0, len(raw))
	for _, c := range raw {
		// An observed type that matches any declared union member is not
		// drift.
		if c.Kind == FieldTypeChanged {
			if f, ok := declared[c.Field]; ok && typeInUnion(c.To, f.Types) {
				continue
			}
		}
		changes = append(changes, c)
	}
	return DriftReport{Sampled: sampled, Changes: changes}
}

func typeInUnion(observed string, declared []string) bool {
	for _, t := range declared {
		if t == observed {
			return true
		}
		// Integers observed in a number-typed field are in range.
		if t == "number" && observed == "integer" {
			return true
		}
	}
	return false
}

// observedShape accumulates field/type observations and acts as the "b" side
// of a schema comparison. Field order is first-seen order.
type observedShape struct {
	order  []string
	counts map[string]map[string]int // field -> type name -> occurrences
}

func newObservedShape() *observedShape {
	return &observedShape{counts: map[string]map[string]int{}}
}

func (o *observedShape) observe(rec map[string]any) {
	for k, v := range rec {
		c, ok := o.counts[k]
		if !ok {
			c = map[string]int{}
			o.counts[k] = c
			o.order = append(o.order, k)
		}
		c[observedTypeName(v)]++
	}
}

// Fields reports each observed field with its dominant value type.
func (o *observedShape) Fields() []Field {
	out := make([]Field, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, Field{Name: name, Types: []string{dominantType(o.counts[name])}})
	}
	return out
}

func dominantType(counts map[string]int) string {
	best, bestN := "", -1
	for t, n := range counts {
		if n > bestN || (n == bestN && t < best) {
			best, bestN = t, n
		}
	}
	return best
}

// observedTypeName maps a record value onto JSON Schema type vocabulary.
func observedTypeName(v any) string {
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
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case interface{ Int64() (int64, error) }: // json.Number and friends
		if _, err := t.Int64(); err == nil {
			return "integer"
		}
		return "number"
	default:
		return "object"
	}
}
