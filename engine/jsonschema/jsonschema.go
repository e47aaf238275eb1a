// Package jsonschema adapts a compiled JSON Schema validator to the
// record-validation Schema contract. Values are conformed first (loose or
// strict), projected to JSON-native form, then checked by the compiled
// schema; the validator's error tree is flattened into Issues.
package jsonschema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	santhosh "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/recval/recval"
	"github.com/recval/recval/coerce"
	"github.com/recval/recval/i18n"
	"github.com/recval/recval/schemadoc"
)

// printer renders the engine's localized error details.
var printer = message.NewPrinter(language.English)

// compiledCache keeps recently compiled schemas, keyed by document
// fingerprint. Compiling is far more expensive than validating, and streams
// commonly share one schema across many short-lived adapters.
var compiledCache, _ = lru.New[string, *santhosh.Schema](128)

// Schema validates mapping records against a compiled JSON Schema document.
// It implements recval.Schema[map[string]any].
type Schema struct {
	doc      *schemadoc.Doc
	compiled *santhosh.Schema
}

// New builds a Schema from a parsed document. Compilation results are cached
// by fingerprint, so building repeatedly from the same document is cheap.
func New(doc *schemadoc.Doc) (*Schema, error) {
	if doc == nil {
		return nil, fmt.Errorf("jsonschema: nil document")
	}
	key := doc.Fingerprint()
	if c, ok := compiledCache.Get(key); ok {
		return &Schema{doc: doc, compiled: c}, nil
	}
	raw, err := doc.MarshalCanonical()
	if err != nil {
		return nil, fmt.Errorf("jsonschema: render document: %w", err)
	}
	val, err := santhosh.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: %w", err)
	}
	compiler := santhosh.NewCompiler()
	if err := compiler.AddResource("schema.json", val); err != nil {
		return nil, fmt.Errorf("jsonschema: add resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("jsonschema: compile: %w", err)
	}
	compiledCache.Add(key, compiled)
	return &Schema{doc: doc, compiled: compiled}, nil
}

// Compile parses a JSON schema document and builds a Schema from it.
func Compile(raw []byte) (*Schema, error) {
	doc, err := schemadoc.Parse(raw)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// CompileYAML parses a YAML-authored schema document and builds a Schema.
func CompileYAML(raw []byte) (*Schema, error) {
	doc, err := schemadoc.ParseYAML(raw)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// MustCompile is Compile for program-literal schemas; it panics on error.
func MustCompile(raw []byte) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Doc returns the parsed document backing this schema.
func (s *Schema) Doc() *schemadoc.Doc { return s.doc }

// Fields reports the document's top-level properties.
func (s *Schema) Fields() []recval.Field { return s.doc.Fields() }

// Decode conforms rec to the document, validates the conformed record with
// the compiled schema, and returns the conformed copy. The error, when
// non-nil, is recval.Issues unless the context was canceled.
func (s *Schema) Decode(ctx context.Context, rec map[string]any, opt recval.DecodeOpt) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, iss := coerce.Apply(rec, s.doc, opt.Strict)
	if len(iss) > 0 {
		return nil, iss
	}
	if err := s.compiled.Validate(jsonValue(out)); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return nil, flatten(ve)
		}
		return nil, recval.Issues{{
			Path: "/", Code: recval.CodeConstraint, Message: err.Error(), Cause: err,
		}}
	}
	return out, nil
}

// Projection renders a conformed record in wire form: time.Time values
// become RFC3339 strings, containers are copied. Binding adapters reuse it so
// validation and decoding see the same shape.
func Projection(m map[string]any) map[string]any {
	out, _ := jsonValue(m).(map[string]any)
	return out
}

// jsonValue projects a conformed value into the shape the validator accepts.
// Conforming may have produced time.Time values; those render as RFC3339
// strings. Numbers pass through, the validator handles Go numerics natively.
func jsonValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	default:
		return v
	}
}

// flatten converts the validator's error tree into Issues. Only leaf causes
// carry a concrete failure; branch nodes just group them.
func flatten(ve *santhosh.ValidationError) recval.Issues {
	var iss recval.Issues
	collect(ve, &iss)
	if len(iss) == 0 {
		// Degenerate tree, keep the summary rather than report success.
		iss = recval.Issues{{Path: "/", Code: recval.CodeConstraint, Message: ve.Error()}}
	}
	return iss
}

func collect(ve *santhosh.ValidationError, iss *recval.Issues) {
	// Unknown-key reporting: one issue per object regardless of how the
	// validator nests the per-property causes.
	if _, ok := ve.ErrorKind.(*kind.AdditionalProperties); ok {
		*iss = append(*iss, recval.Issue{
			Path:    pointerOf(ve.InstanceLocation),
			Code:    recval.CodeUnknownKey,
			Message: i18n.T(recval.CodeUnknownKey, nil),
			Hint:    ve.ErrorKind.LocalizedString(printer),
		})
		return
	}
	if ve.ErrorKind != nil && len(ve.Causes) == 0 {
		path := pointerOf(ve.InstanceLocation)
		detail := ve.ErrorKind.LocalizedString(printer)
		switch k := ve.ErrorKind.(type) {
		case *kind.Required:
			for _, name := range k.Missing {
				*iss = append(*iss, recval.Issue{
					Path:    joinPointer(path, name),
					Code:    recval.CodeRequired,
					Message: i18n.T(recval.CodeRequired, nil),
					Params:  map[string]any{"key": name},
				})
			}
		case *kind.Schema, *kind.Reference:
			// Structural grouping, nothing to report.
		default:
			code := codeOf(ve.ErrorKind)
			*iss = append(*iss, recval.Issue{
				Path:    path,
				Code:    code,
				Message: i18n.T(code, nil),
				Hint:    detail,
			})
		}
	}
	for _, cause := range ve.Causes {
		collect(cause, iss)
	}
}

// codeOf maps the validator's error kinds onto the stable issue codes.
func codeOf(k santhosh.ErrorKind) string {
	switch k.(type) {
	case *kind.Type:
		return recval.CodeInvalidType
	case *kind.Required:
		return recval.CodeRequired
	case *kind.AdditionalProperties:
		return recval.CodeUnknownKey
	case *kind.Minimum, *kind.ExclusiveMinimum:
		return recval.CodeTooSmall
	case *kind.Maximum, *kind.ExclusiveMaximum:
		return recval.CodeTooBig
	case *kind.MinLength, *kind.MinItems, *kind.MinProperties:
		return recval.CodeTooShort
	case *kind.MaxLength, *kind.MaxItems, *kind.MaxProperties:
		return recval.CodeTooLong
	case *kind.Pattern:
		return recval.CodePattern
	case *kind.Enum, *kind.Const:
		return recval.CodeInvalidEnum
	case *kind.Format:
		return recval.CodeInvalidFormat
	case *kind.OneOf, *kind.AnyOf:
		return recval.CodeUnionMismatch
	default:
		return recval.CodeConstraint
	}
}

// pointerOf renders an instance location as a JSON Pointer.
func pointerOf(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	b := &strings.Builder{}
	for _, tok := range loc {
		b.WriteByte('/')
		b.WriteString(escapeToken(tok))
	}
	return b.String()
}

func joinPointer(base, tok string) string {
	if base == "/" {
		return "/" + escapeToken(tok)
	}
	return base + "/" + escapeToken(tok)
}

func escapeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~", "~0")
	return strings.ReplaceAll(tok, "/", "~1")
}
