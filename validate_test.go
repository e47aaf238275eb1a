package recval_test

import (
	"context"
	"testing"

	"github.com/recval/recval"
	enginejson "github.com/recval/recval/engine/jsonschema"
)

func TestValidateOne_ValidAndInvalid(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	ctx := context.Background()

	r, err := recval.ValidateOne(ctx, map[string]any{"id": 1, "name": "alice"}, s)
	if err != nil {
		t.Fatalf("ValidateOne: %v", err)
	}
	if !r.Valid() || r.Value["id"] != int64(1) {
		t.Fatalf("result = %+v", r)
	}

	// Validation failure stays inside the Result by default.
	r, err = recval.ValidateOne(ctx, map[string]any{"id": "x", "name": "bob"}, s)
	if err != nil {
		t.Fatalf("second return reserved for terminal errors, got %v", err)
	}
	if r.Valid() {
		t.Fatal("want invalid result")
	}
	iss := r.IssuesOf()
	if len(iss) == 0 || iss[0].Path != "/id" {
		t.Fatalf("issues = %v", iss)
	}
}

func TestValidateOne_RaiseReturnsTheError(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))

	r, err := recval.ValidateOne(context.Background(),
		map[string]any{"id": "x", "name": "bob"}, s,
		recval.Opt[map[string]any]{Policy: recval.PolicyRaise})
	if err == nil {
		t.Fatal("raise must surface the issues")
	}
	if _, ok := recval.AsIssues(err); !ok {
		t.Fatalf("err = %T, want Issues", err)
	}
	if r.Valid() {
		t.Fatal("result should still describe the failure")
	}
}

func TestValidateOne_NilSchema(t *testing.T) {
	_, err := recval.ValidateOne[map[string]any](context.Background(), map[string]any{}, nil)
	if !recval.IsConfigError(err) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestValidateJSON_MalformedInput(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))

	r, err := recval.ValidateJSON(context.Background(), []byte(`{"id": 1,`), s)
	if err != nil {
		t.Fatalf("parse failure is a result, not a terminal error: %v", err)
	}
	iss := r.IssuesOf()
	if len(iss) != 1 || iss[0].Code != recval.CodeParseError {
		t.Fatalf("issues = %v", iss)
	}
	// Parse errors are attributed to the whole item, not a field.
	if iss[0].Path != "" {
		t.Fatalf("path = %q, want empty", iss[0].Path)
	}
}

func TestValidateJSON_NonObjectDocument(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))

	r, _ := recval.ValidateJSON(context.Background(), []byte(`[1, 2, 3]`), s)
	iss := r.IssuesOf()
	if len(iss) != 1 || iss[0].Code != recval.CodeInvalidType {
		t.Fatalf("issues = %v", iss)
	}
}

func TestValidateOne_TrailingGarbage(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))

	r, _ := recval.ValidateJSON(context.Background(),
		[]byte(`{"id": 1, "name": "a"} trailing`), s)
	if r.Valid() {
		t.Fatal("trailing data must not validate")
	}
	if r.IssuesOf()[0].Code != recval.CodeParseError {
		t.Fatalf("issues = %v", r.IssuesOf())
	}
}

type account struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"-"`
}

func TestValidateOne_StructNeedsFromAttributes(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	ctx := context.Background()
	in := account{ID: 9, Name: "ida", Secret: "x"}

	r, err := recval.ValidateOne(ctx, in, s)
	if err != nil {
		t.Fatalf("ValidateOne: %v", err)
	}
	if r.Valid() {
		t.Fatal("struct input without FromAttributes must be invalid_type")
	}
	if r.IssuesOf()[0].Code != recval.CodeInvalidType {
		t.Fatalf("issues = %v", r.IssuesOf())
	}

	r, err = recval.ValidateOne(ctx, in, s,
		recval.Opt[map[string]any]{FromAttributes: true})
	if err != nil {
		t.Fatalf("ValidateOne: %v", err)
	}
	if !r.Valid() {
		t.Fatalf("struct input with FromAttributes: %v", r.Err)
	}
	if r.Value["id"] != int64(9) {
		t.Fatalf("value = %v", r.Value)
	}
}

func TestValidateOne_StrictMode(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	ctx := context.Background()

	// json.Number "1.0" arrives from serialized input; strict refuses it as an
	// integer while loose mode conforms it.
	r, _ := recval.ValidateJSON(ctx, []byte(`{"id": 1.0, "name": "a"}`), s)
	if !r.Valid() {
		t.Fatalf("loose 1.0 should conform: %v", r.Err)
	}
	if r.Value["id"] != int64(1) {
		t.Fatalf("id = %v (%T)", r.Value["id"], r.Value["id"])
	}

	r, _ = recval.ValidateJSON(ctx, []byte(`{"id": 1.0, "name": "a"}`), s,
		recval.Opt[map[string]any]{Strict: true})
	if r.Valid() {
		t.Fatal("strict 1.0 must not conform to integer")
	}
}

func TestValidateOne_StrictRoundTrip(t *testing.T) {
	s := enginejson.MustCompile([]byte(`{
		"type": "object",
		"properties": {
			"id":      {"type": "integer"},
			"score":   {"type": "number"},
			"active":  {"type": "boolean"},
			"label":   {"type": "string"},
			"created": {"type": "string", "format": "date-time"}
		},
		"required": ["id", "score", "active", "label", "created"]
	}`))
	ctx := context.Background()

	// Every field needs loose coercion on the way in.
	r, err := recval.ValidateOne(ctx, map[string]any{
		"id":      1.0,
		"score":   "3.5",
		"active":  "yes",
		"label":   7,
		"created": "2024-01-15 10:30:00",
	}, s)
	if err != nil {
		t.Fatalf("ValidateOne: %v", err)
	}
	if !r.Valid() {
		t.Fatalf("loose pass failed: %v", r.Err)
	}

	// A conformed record re-validates strictly: coercion output carries the
	// declared native types.
	r2, err := recval.ValidateOne(ctx, r.Value, s,
		recval.Opt[map[string]any]{Strict: true})
	if err != nil {
		t.Fatalf("strict re-validation: %v", err)
	}
	if !r2.Valid() {
		t.Fatalf("conformed record rejected strictly: %v", r2.Err)
	}
	// And conforming is idempotent.
	if r2.Value["id"] != int64(1) || r2.Value["score"] != 3.5 ||
		r2.Value["active"] != true || r2.Value["label"] != "7" {
		t.Fatalf("second pass changed values: %v", r2.Value)
	}
}

func TestValidateOne_UnsupportedInput(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))

	r, err := recval.ValidateOne(context.Background(), 42, s)
	if err != nil {
		t.Fatalf("ValidateOne: %v", err)
	}
	if r.Valid() || r.IssuesOf()[0].Code != recval.CodeInvalidType {
		t.Fatalf("result = %+v", r)
	}
}
