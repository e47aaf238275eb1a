package recval

import "context"

// Transform wraps a validation call with an optional pre-transform on the raw
// item and a post-transform on the validated instance. Post runs only when
// validation succeeded; it is never applied to errors. Pre/Post failures
// propagate as stream errors, not as validation results.
type Transform[T any] struct {
	Pre  func(item any) (any, error)
	Post func(v T) (T, error)
}

// FieldTransform builds a Pre function that rewrites one top-level field of
// mapping records and leaves everything else untouched.
func FieldTransform(field string, fn func(v any) (any, error)) func(any) (any, error) {
	return func(item any) (any, error) {
		m, ok := item.(map[string]any)
		if !ok {
			return item, nil
		}
		v, present := m[field]
		if !present {
			return item, nil
		}
		nv, err := fn(v)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		out[field] = nv
		return out, nil
	}
}

// Wrap returns a single-item validator that applies the transform around s.
// The second return carries only configuration and transform/hook failures;
// validation errors live inside the Result.
func Wrap[T any](s Schema[T], tr Transform[T], opts ...Opt[T]) func(ctx context.Context, item any) (Result[T], error) {
	opt := lastOpt(opts)
	opt.Transform = &tr
	return func(ctx context.Context, item any) (Result[T], error) {
		return ValidateOne(ctx, item, s, opt)
	}
}

func (t *Transform[T]) pre(item any) (any, error) {
	if t == nil || t.Pre == nil {
		return item, nil
	}
	return t.Pre(item)
}

func (t *Transform[T]) post(v T) (T, error) {
	if t == nil || t.Post == nil {
		return v, nil
	}
	return t.Post(v)
}
