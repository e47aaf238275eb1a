package recval_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/recval/recval"
	enginejson "github.com/recval/recval/engine/jsonschema"
)

func bigInput(n int) []any {
	items := make([]any, n)
	for i := range items {
		if i%7 == 3 {
			items[i] = map[string]any{"id": "bad", "name": fmt.Sprintf("u%d", i)}
			continue
		}
		items[i] = map[string]any{"id": i, "name": fmt.Sprintf("u%d", i)}
	}
	return items
}

func TestValidateConcurrently_MatchesSequentialOrder(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	items := bigInput(200)
	ctx := context.Background()

	seq, err := recval.Validate(ctx, recval.FromSlice(items), s).Collect()
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	con, err := recval.ValidateConcurrently(ctx, recval.FromSlice(items), s,
		recval.Opt[map[string]any]{MaxInFlight: 8}).Collect()
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}

	if len(seq) != len(con) {
		t.Fatalf("lengths differ: %d vs %d", len(seq), len(con))
	}
	for i := range seq {
		if seq[i].Valid() != con[i].Valid() {
			t.Fatalf("result %d differs: seq=%v con=%v", i, seq[i].Valid(), con[i].Valid())
		}
		if seq[i].Valid() && con[i].Value["name"] != seq[i].Value["name"] {
			t.Fatalf("result %d out of order: %v vs %v", i, con[i].Value, seq[i].Value)
		}
	}
}

func TestValidateConcurrently_SkipPolicy(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	items := bigInput(50)

	results, err := recval.ValidateConcurrently(context.Background(),
		recval.FromSlice(items), s,
		recval.Opt[map[string]any]{Policy: recval.PolicySkip, MaxInFlight: 4}).Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// Survivors keep input order even with invalid records dropped.
	var wantNames []string
	for i := 0; i < 50; i++ {
		if i%7 != 3 {
			wantNames = append(wantNames, fmt.Sprintf("u%d", i))
		}
	}
	if len(results) != len(wantNames) {
		t.Fatalf("got %d results, want %d", len(results), len(wantNames))
	}
	for i, r := range results {
		if r.Value["name"] != wantNames[i] {
			t.Fatalf("result %d = %v, want name %q", i, r.Value, wantNames[i])
		}
	}
}

func TestValidateConcurrently_RaiseStopsAtFirstErrorInInputOrder(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	items := bigInput(50) // first invalid record sits at index 3

	results, err := recval.ValidateConcurrently(context.Background(),
		recval.FromSlice(items), s,
		recval.Opt[map[string]any]{Policy: recval.PolicyRaise, MaxInFlight: 16}).Collect()
	if err == nil {
		t.Fatal("want terminal error under raise")
	}
	if _, ok := recval.AsIssues(err); !ok {
		t.Fatalf("Err = %T, want Issues", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results before the error, want 3", len(results))
	}
}

func TestValidateConcurrently_HookErrorSurfaces(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	boom := errors.New("hook boom")
	hooks := &recval.Hooks[map[string]any]{
		Before: func(_ context.Context, item any) (any, error) {
			m := item.(map[string]any)
			if m["name"] == "u10" {
				return nil, boom
			}
			return item, nil
		},
	}

	_, err := recval.ValidateConcurrently(context.Background(),
		recval.FromSlice(bigInput(40)), s,
		recval.Opt[map[string]any]{MaxInFlight: 4, Hooks: hooks}).Collect()
	if !errors.Is(err, boom) {
		t.Fatalf("Err = %v, want hook error", err)
	}
}

func TestValidateConcurrently_NegativeMaxInFlight(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	st := recval.ValidateConcurrently(context.Background(),
		recval.FromSlice(bigInput(5)), s,
		recval.Opt[map[string]any]{MaxInFlight: -1})
	if st.Next() {
		t.Fatal("negative MaxInFlight must not yield")
	}
	if !recval.IsConfigError(st.Err()) {
		t.Fatalf("Err = %v, want ConfigError", st.Err())
	}
}

func TestValidateConcurrently_CloseCancelsPendingWork(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	st := recval.ValidateConcurrently(context.Background(),
		recval.FromSlice(bigInput(1000)), s,
		recval.Opt[map[string]any]{MaxInFlight: 2})

	if !st.Next() {
		t.Fatalf("first Next failed: %v", st.Err())
	}
	st.Close()
	if st.Next() {
		t.Fatal("Next after Close must report false")
	}
}

func TestValidateConcurrently_ProgressRunsOrdered(t *testing.T) {
	s := enginejson.MustCompile([]byte(streamSchema))
	var indexes []int

	_, err := recval.ValidateConcurrently(context.Background(),
		recval.FromSlice(bigInput(30)), s,
		recval.Opt[map[string]any]{
			MaxInFlight: 8,
			Progress:    func(i int, _ recval.Result[map[string]any]) { indexes = append(indexes, i) },
		}).Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(indexes) != 30 {
		t.Fatalf("progress saw %d items, want 30", len(indexes))
	}
	for i, idx := range indexes {
		if idx != i {
			t.Fatalf("progress out of order at %d: %v", i, indexes)
		}
	}
}
