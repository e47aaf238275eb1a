package recval

import (
	"iter"
	"sort"
)

// Stats accumulates counts over a stream of validation results. It starts
// empty, is fed one result at a time, and may be read at any point; all
// counters are monotonically non-decreasing. Stats is not safe for concurrent
// use: feed it from a single goroutine or serialize access yourself.
type Stats struct {
	Total   int
	Valid   int
	Invalid int
	// TotalErrors counts individual issues; one invalid record may carry
	// several.
	TotalErrors int
	// ErrorCounts tallies issues by code.
	ErrorCounts map[string]int
	// FieldErrorCounts tallies issues by field path.
	FieldErrorCounts map[string]int
}

// NewStats returns an empty accumulator.
func NewStats() *Stats {
	return &Stats{
		ErrorCounts:      map[string]int{},
		FieldErrorCounts: map[string]int{},
	}
}

// Observe feeds one result's outcome: nil for a valid record, the record's
// error otherwise.
func (st *Stats) Observe(err error) {
	st.Total++
	if err == nil {
		st.Valid++
		return
	}
	st.Invalid++
	if st.ErrorCounts == nil {
		st.ErrorCounts = map[string]int{}
	}
	if st.FieldErrorCounts == nil {
		st.FieldErrorCounts = map[string]int{}
	}
	iss, ok := AsIssues(err)
	if !ok {
		st.TotalErrors++
		st.ErrorCounts["error"]++
		return
	}
	for _, it := range iss {
		st.TotalErrors++
		st.ErrorCounts[it.Code]++
		if it.Path != "" {
			st.FieldErrorCounts[it.Path]++
		}
	}
}

// Snapshot returns an independent copy safe to keep while feeding continues
// (from the same goroutine).
func (st *Stats) Snapshot() Stats {
	cp := *st
	cp.ErrorCounts = make(map[string]int, len(st.ErrorCounts))
	for k, v := range st.ErrorCounts {
		cp.ErrorCounts[k] = v
	}
	cp.FieldErrorCounts = make(map[string]int, len(st.FieldErrorCounts))
	for k, v := range st.FieldErrorCounts {
		cp.FieldErrorCounts[k] = v
	}
	return cp
}

// ValidPercent reports the share of valid records, 0 when nothing was fed.
func (st *Stats) ValidPercent() float64 {
	if st.Total == 0 {
		return 0
	}
	return float64(st.Valid) / float64(st.Total) * 100
}

// InvalidPercent reports the share of invalid records.
func (st *Stats) InvalidPercent() float64 {
	if st.Total == 0 {
		return 0
	}
	return float64(st.Invalid) / float64(st.Total) * 100
}

// CountEntry pairs a tally key with its count.
type CountEntry struct {
	Key   string
	Count int
}

// TopErrors returns the n most frequent issue codes, most frequent first.
func (st *Stats) TopErrors(n int) []CountEntry { return topCounts(st.ErrorCounts, n) }

// TopFieldErrors returns the n most frequent failing field paths.
func (st *Stats) TopFieldErrors(n int) []CountEntry { return topCounts(st.FieldErrorCounts, n) }

func topCounts(m map[string]int, n int) []CountEntry {
	out := make([]CountEntry, 0, len(m))
	for k, v := range m {
		out = append(out, CountEntry{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// GetStats folds a finished result sequence into Stats.
func GetStats[T any](results iter.Seq[Result[T]]) Stats {
	st := NewStats()
	for r := range results {
		st.Observe(r.Err)
	}
	return st.Snapshot()
}

// ResultSeq adapts a collected result slice for GetStats.
func ResultSeq[T any](results []Result[T]) iter.Seq[Result[T]] {
	return func(yield func(Result[T]) bool) {
		for _, r := range results {
			if !yield(r) {
				return
			}
		}
	}
}
