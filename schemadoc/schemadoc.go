// Package schemadoc holds a minimal JSON Schema document representation used
// for introspection and coercion targets. Property and union declaration
// order is preserved; constraint checking itself belongs to the compiled
// engine, so only commonly-authored keywords are modeled here.
package schemadoc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/recval/recval"
)

// Doc is one (sub)schema node.
type Doc struct {
	// Type holds the declared type names in declaration order; more than one
	// entry means a union declared as "type": [...].
	Type    TypeSet `json:"type,omitempty"`
	Format  string  `json:"format,omitempty"`
	Default any     `json:"default,omitempty"`

	// Object
	Properties           Props    `json:"properties,omitempty"`
	Required             []string `json:"required,omitempty"`
	AdditionalProperties any      `json:"additionalProperties,omitempty"`

	// Array
	Items    *Doc `json:"items,omitempty"`
	MinItems *int `json:"minItems,omitempty"`
	MaxItems *int `json:"maxItems,omitempty"`

	// Scalar constraints (forwarded to the engine when compiling from a Doc)
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Enum      []any    `json:"enum,omitempty"`

	// Union declared as oneOf/anyOf, in declaration order.
	OneOf []*Doc `json:"oneOf,omitempty"`
	AnyOf []*Doc `json:"anyOf,omitempty"`
}

// TypeSet is "type" as either a single name or a list; order is preserved.
type TypeSet []string

func (t TypeSet) MarshalJSON() ([]byte, error) {
	switch len(t) {
	case 0:
		return []byte("null"), nil
	case 1:
		return gojson.Marshal(t[0])
	default:
		return gojson.Marshal([]string(t))
	}
}

func (t *TypeSet) UnmarshalJSON(data []byte) error {
	var one string
	if err := gojson.Unmarshal(data, &one); err == nil {
		*t = TypeSet{one}
		return nil
	}
	var many []string
	if err := gojson.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("schemadoc: type must be a string or string list")
	}
	*t = TypeSet(many)
	return nil
}

// Prop is one named property in declaration order.
type Prop struct {
	Name string
	Doc  *Doc
}

// Props preserves property declaration order, which map-typed models lose.
type Props []Prop

// Get returns the property document for name, or nil.
func (p Props) Get(name string) *Doc {
	for _, pr := range p {
		if pr.Name == name {
			return pr.Doc
		}
	}
	return nil
}

func (p Props) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, pr := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := gojson.Marshal(pr.Name)
		if err != nil {
			return nil, err
		}
		v, err := gojson.Marshal(pr.Doc)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func (p *Props) UnmarshalJSON(data []byte) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(gojson.Delim); !ok || d != '{' {
		return fmt.Errorf("schemadoc: properties must be an object")
	}
	var out Props
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var sub Doc
		if err := dec.Decode(&sub); err != nil {
			return fmt.Errorf("schemadoc: property %q: %w", name, err)
		}
		out = append(out, Prop{Name: name, Doc: &sub})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// Parse decodes a JSON Schema document, keeping property order.
func Parse(data []byte) (*Doc, error) {
	var d Doc
	if err := gojson.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("schemadoc: %w", err)
	}
	return &d, nil
}

// FromValue builds a document from an already-decoded schema value, e.g. one
// produced by a reflector or loaded through another codec. Map iteration
// order is not defined, so property order follows the re-rendered JSON.
func FromValue(v any) (*Doc, error) {
	data, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("schemadoc: %w", err)
	}
	return Parse(data)
}

// MarshalCanonical renders the document back to JSON with stable ordering.
func (d *Doc) MarshalCanonical() ([]byte, error) { return gojson.Marshal(d) }

// Fingerprint returns a stable digest of the document, usable as a cache key.
func (d *Doc) Fingerprint() string {
	data, err := d.MarshalCanonical()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsRequired reports whether the named top-level property is required.
func (d *Doc) IsRequired(name string) bool {
	for _, r := range d.Required {
		if r == name {
			return true
		}
	}
	return false
}

// FieldTypes returns the declared type names of a property document in
// declaration order: the "type" list, or the scalar types of oneOf/anyOf
// branches for unions declared that way.
func (d *Doc) FieldTypes() []string {
	if d == nil {
		return nil
	}
	if len(d.Type) > 0 {
		return []string(d.Type)
	}
	branches := d.OneOf
	if len(branches) == 0 {
		branches = d.AnyOf
	}
	var out []string
	for _, b := range branches {
		out = append(out, b.FieldTypes()...)
	}
	return out
}

// Fields projects the document's top-level properties for schema
// introspection and comparison.
func (d *Doc) Fields() []recval.Field {
	out := make([]recval.Field, 0, len(d.Properties))
	for _, pr := range d.Properties {
		f := recval.Field{
			Name:     pr.Name,
			Types:    pr.Doc.FieldTypes(),
			Required: d.IsRequired(pr.Name),
		}
		if pr.Doc != nil {
			f.Format = pr.Doc.Format
		}
		out = append(out, f)
	}
	return out
}
