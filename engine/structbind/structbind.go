// Package structbind derives a validation schema from a Go struct type and
// decodes conformed records back into that type. Reflection produces a JSON
// Schema document; validation itself runs through the compiled-schema
// adapter, so struct-typed and document-typed streams behave identically.
package structbind

import (
	"context"
	"fmt"

	invopop "github.com/invopop/jsonschema"

	"github.com/recval/recval"
	enginejson "github.com/recval/recval/engine/jsonschema"
	"github.com/recval/recval/schemadoc"
)

// Schema validates mapping records against the shape of T and decodes valid
// records into T. It implements recval.Schema[T].
type Schema[T any] struct {
	doc    *schemadoc.Doc
	engine *enginejson.Schema
}

// Of reflects T into a schema document and compiles it. Field names follow
// json tags; fields without omitempty are required, matching the reflector's
// defaults.
func Of[T any]() (*Schema[T], error) {
	ref := invopop.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	var probe T
	raw, err := ref.Reflect(&probe).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("structbind: reflect %T: %w", probe, err)
	}
	doc, err := schemadoc.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("structbind: %w", err)
	}
	eng, err := enginejson.New(doc)
	if err != nil {
		return nil, fmt.Errorf("structbind: %w", err)
	}
	return &Schema[T]{doc: doc, engine: eng}, nil
}

// MustOf is Of for statically known types; it panics on error.
func MustOf[T any]() *Schema[T] {
	s, err := Of[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Doc returns the reflected document backing this schema.
func (s *Schema[T]) Doc() *schemadoc.Doc { return s.doc }

// Fields reports the reflected top-level properties.
func (s *Schema[T]) Fields() []recval.Field { return s.doc.Fields() }

// Decode conforms and validates rec, then binds the conformed record into T
// through the JSON driver.
func (s *Schema[T]) Decode(ctx context.Context, rec map[string]any, opt recval.DecodeOpt) (T, error) {
	var zero T
	out, err := s.engine.Decode(ctx, rec, opt)
	if err != nil {
		return zero, err
	}
	driver := recval.CurrentJSONDriver()
	data, err := driver.Marshal(projectable(out))
	if err != nil {
		return zero, recval.Issues{{
			Path: "/", Code: recval.CodeParseError,
			Message: "render conformed record: " + err.Error(), Cause: err,
		}}
	}
	var v T
	if err := driver.Unmarshal(data, &v); err != nil {
		return zero, recval.Issues{{
			Path: "/", Code: recval.CodeInvalidType,
			Message: "bind conformed record: " + err.Error(), Cause: err,
		}}
	}
	return v, nil
}

// projectable renders conformed values in their wire form so the driver can
// bind them to struct fields (time.Time fields expect RFC3339 strings).
func projectable(m map[string]any) map[string]any {
	return enginejson.Projection(m)
}
