package structbind_test

import (
	"context"
	"testing"
	"time"

	"github.com/recval/recval"
	"github.com/recval/recval/engine/structbind"
)

type user struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	Created time.Time `json:"created,omitempty"`
}

func TestOf_ReflectsFields(t *testing.T) {
	s := structbind.MustOf[user]()

	byName := map[string]recval.Field{}
	for _, f := range s.Fields() {
		byName[f.Name] = f
	}
	if _, ok := byName["id"]; !ok {
		t.Fatalf("missing id field: %v", s.Fields())
	}
	if !byName["id"].Required || byName["email"].Required {
		t.Fatalf("required flags wrong: %v", s.Fields())
	}
	if byName["created"].Format != "date-time" {
		t.Fatalf("created format = %q", byName["created"].Format)
	}
}

func TestDecode_BindsConformedRecord(t *testing.T) {
	s := structbind.MustOf[user]()

	v, err := s.Decode(context.Background(), map[string]any{
		"id":      "7",
		"name":    "alice",
		"created": "2024-01-15T10:30:00Z",
	}, recval.DecodeOpt{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.ID != 7 || v.Name != "alice" {
		t.Fatalf("bound value = %+v", v)
	}
	if v.Created.UTC().Hour() != 10 {
		t.Fatalf("created = %v", v.Created)
	}
}

func TestDecode_StrictTypeMismatch(t *testing.T) {
	s := structbind.MustOf[user]()

	_, err := s.Decode(context.Background(), map[string]any{
		"id": "7", "name": "alice",
	}, recval.DecodeOpt{Strict: true})
	iss, ok := recval.AsIssues(err)
	if !ok {
		t.Fatalf("want Issues, got %v", err)
	}
	found := false
	for _, it := range iss {
		if it.Path == "/id" && it.Code == recval.CodeInvalidType {
			found = true
		}
	}
	if !found {
		t.Fatalf("no invalid_type at /id in %v", iss)
	}
}

func TestDecode_MissingRequired(t *testing.T) {
	s := structbind.MustOf[user]()

	_, err := s.Decode(context.Background(), map[string]any{"id": 1}, recval.DecodeOpt{})
	if err == nil {
		t.Fatal("want error for missing name")
	}
	iss, _ := recval.AsIssues(err)
	found := false
	for _, it := range iss {
		if it.Code == recval.CodeRequired {
			found = true
		}
	}
	if !found {
		t.Fatalf("no required issue in %v", iss)
	}
}
