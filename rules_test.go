package recval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/recval/recval"
	enginejson "github.com/recval/recval/engine/jsonschema"
)

func TestApplyRules_AllRulesAlwaysRun(t *testing.T) {
	var order []string
	mk := func(name string, prio int, fail bool) recval.Rule[map[string]any] {
		return recval.Rule[map[string]any]{
			Name:     name,
			Priority: prio,
			Check: func(context.Context, map[string]any) error {
				order = append(order, name)
				if fail {
					return errors.New(name + " failed")
				}
				return nil
			},
		}
	}
	rules := []recval.Rule[map[string]any]{
		mk("second", 1, true),
		mk("first", 0, true),
		mk("third", 1, false),
	}

	results := recval.ApplyRules(context.Background(), rules, map[string]any{})
	if len(results) != 3 {
		t.Fatalf("got %d results, want every rule reported", len(results))
	}
	// Priority first, registration order breaking ties.
	want := []string{"first", "second", "third"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("execution order = %v, want %v", order, want)
		}
	}
	if results[0].Passed || results[1].Passed || !results[2].Passed {
		t.Fatalf("results = %+v", results)
	}
	if results[1].Detail == "" {
		t.Fatal("failed rule must carry its detail")
	}
}

func TestRules_FailuresBecomeRuleViolations(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	adult := recval.Rule[map[string]any]{
		Name: "nonzero-id",
		Check: func(_ context.Context, v map[string]any) error {
			if v["id"] == int64(0) {
				return errors.New("id must be nonzero")
			}
			return nil
		},
	}

	r, err := recval.ValidateOne(context.Background(),
		map[string]any{"id": 0, "name": "zed"}, s,
		recval.Opt[map[string]any]{Rules: []recval.Rule[map[string]any]{adult}})
	if err != nil {
		t.Fatalf("ValidateOne: %v", err)
	}
	if r.Valid() {
		t.Fatal("rule failure must invalidate the result")
	}
	iss := r.IssuesOf()
	if len(iss) != 1 || iss[0].Code != recval.CodeRuleViolation || iss[0].Rule != "nonzero-id" {
		t.Fatalf("issues = %v", iss)
	}
}

func TestRules_IssueErrorsKeepFieldAttribution(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	fieldRule := recval.Rule[map[string]any]{
		Name: "name-check",
		Check: func(_ context.Context, v map[string]any) error {
			if v["name"] == "bad" {
				return recval.Issues{{Path: "/name", Message: "reserved name"}}
			}
			return nil
		},
	}

	r, _ := recval.ValidateOne(context.Background(),
		map[string]any{"id": 1, "name": "bad"}, s,
		recval.Opt[map[string]any]{Rules: []recval.Rule[map[string]any]{fieldRule}})
	iss := r.IssuesOf()
	if len(iss) != 1 || iss[0].Path != "/name" {
		t.Fatalf("issues = %v", iss)
	}
	if iss[0].Code != recval.CodeRuleViolation || iss[0].Rule != "name-check" {
		t.Fatalf("issue = %+v", iss[0])
	}
}

func TestTransform_PreAndPost(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	tr := recval.Transform[map[string]any]{
		Pre: recval.FieldTransform("id", func(v any) (any, error) {
			if sv, ok := v.(string); ok && sv == "legacy" {
				return 0, nil
			}
			return v, nil
		}),
		Post: func(v map[string]any) (map[string]any, error) {
			v["normalized"] = true
			return v, nil
		},
	}

	validate := recval.Wrap(s, tr)
	r, err := validate(context.Background(), map[string]any{"id": "legacy", "name": "old"})
	if err != nil {
		t.Fatalf("wrapped validator: %v", err)
	}
	if !r.Valid() {
		t.Fatalf("pre-transform repair failed: %v", r.Err)
	}
	if r.Value["normalized"] != true {
		t.Fatalf("post-transform skipped: %v", r.Value)
	}
}

func TestTransform_PostSkippedOnFailure(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	ran := false
	tr := recval.Transform[map[string]any]{
		Post: func(v map[string]any) (map[string]any, error) {
			ran = true
			return v, nil
		},
	}

	validate := recval.Wrap(s, tr)
	r, err := validate(context.Background(), map[string]any{"id": "x", "name": "bob"})
	if err != nil {
		t.Fatalf("wrapped validator: %v", err)
	}
	if r.Valid() {
		t.Fatal("want invalid result")
	}
	if ran {
		t.Fatal("post-transform must not run on failures")
	}
}

func TestTransform_ErrorsAreTerminal(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	boom := errors.New("transform boom")
	st := recval.Validate(context.Background(), recval.FromSlice(streamItems()), s,
		recval.Opt[map[string]any]{
			Transform: &recval.Transform[map[string]any]{
				Pre: func(any) (any, error) { return nil, boom },
			},
		})

	results, err := st.Collect()
	if !errors.Is(err, boom) {
		t.Fatalf("Err = %v, want transform error", err)
	}
	if len(results) != 0 {
		t.Fatalf("no results expected, got %d", len(results))
	}
}
