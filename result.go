package recval

// Result is the immutable outcome of validating one record. Exactly one of
// Err and Value is meaningful: Err == nil means Value holds the validated
// instance; otherwise Err carries Issues and Value is the zero T. Original is
// always the input item as received, before any transform.
type Result[T any] struct {
	Err      error
	Value    T
	Original any
}

// Valid reports whether the record validated successfully.
func (r Result[T]) Valid() bool { return r.Err == nil }

// IssuesOf returns the Issues carried by an invalid result, or nil.
func (r Result[T]) IssuesOf() Issues {
	iss, _ := AsIssues(r.Err)
	return iss
}

func failure[T any](original any, err error) Result[T] {
	return Result[T]{Err: err, Original: original}
}

func success[T any](original any, v T) Result[T] {
	return Result[T]{Value: v, Original: original}
}
