package recval

import "context"

// Hooks wrap each item's validation. Every callback is optional.
//
// Mutation contract: Before may return a replacement item used for the rest of
// the pipeline (classification included); the stream's Result.Original still
// carries the raw input. After may return a replacement result. Errors from
// Before or After are never downgraded to validation results: they terminate
// the stream and surface from Stream.Err (or the single-item validator's
// second return).
type Hooks[T any] struct {
	// Before receives the raw item and may replace it.
	Before func(ctx context.Context, item any) (any, error)
	// After receives the validation result and may replace it.
	After func(ctx context.Context, r Result[T]) (Result[T], error)
	// OnSuccess observes valid results only.
	OnSuccess func(r Result[T])
	// OnError observes invalid results only.
	OnError func(r Result[T])
	// Continue decides after each result whether the stream keeps going.
	// Returning false stops the stream without error. Nil means always
	// continue.
	Continue func(r Result[T]) bool
}

func (h *Hooks[T]) runBefore(ctx context.Context, item any) (any, error) {
	if h == nil || h.Before == nil {
		return item, nil
	}
	return h.Before(ctx, item)
}

func (h *Hooks[T]) runAfter(ctx context.Context, r Result[T]) (Result[T], error) {
	if h == nil || h.After == nil {
		return r, nil
	}
	return h.After(ctx, r)
}

func (h *Hooks[T]) observe(r Result[T]) {
	if h == nil {
		return
	}
	if r.Valid() {
		if h.OnSuccess != nil {
			h.OnSuccess(r)
		}
	} else if h.OnError != nil {
		h.OnError(r)
	}
}

func (h *Hooks[T]) shouldContinue(r Result[T]) bool {
	if h == nil || h.Continue == nil {
		return true
	}
	return h.Continue(r)
}
