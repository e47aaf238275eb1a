package recval

import (
	"context"
	"iter"
)

// Schema is the contract the external validation engine fulfils. The core
// never checks field types itself; it classifies records, feeds them to
// Decode, and routes the outcome through the error policy.
//
// Decode constructs the validated instance from a mapping. Failures must be
// reported as Issues (field-indexed where possible); any other error kind is
// wrapped into a parse_error issue by the dispatcher. Implementations are
// assumed reentrant for concurrent read-only use.
type Schema[T any] interface {
	FieldSource
	Decode(ctx context.Context, record map[string]any, opt DecodeOpt) (T, error)
}

// FieldSource exposes a schema's field set for introspection. It is the only
// schema surface the comparator consults.
type FieldSource interface {
	// Fields returns the declared fields in declaration order.
	Fields() []Field
}

// Field describes one declared schema field.
type Field struct {
	Name string
	// Types holds the declared type names in declaration order; more than one
	// entry means a union. Names follow JSON Schema ("string", "integer",
	// "number", "boolean", "object", "array", "null").
	Types    []string
	Format   string // Optional format such as "date-time".
	Required bool
}

// Type renders the declared type for reports: single name, or members joined
// with "|" for unions.
func (f Field) Type() string {
	switch len(f.Types) {
	case 0:
		return ""
	case 1:
		return f.Types[0]
	}
	s := f.Types[0]
	for _, t := range f.Types[1:] {
		s += "|" + t
	}
	return s
}

// FromSlice adapts a slice to the iterable form the dispatchers consume.
func FromSlice[E any](items []E) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}
