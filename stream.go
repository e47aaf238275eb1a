package recval

import (
	"context"
	"iter"
)

// action is the outcome of the pure policy decision for one result.
type action int

const (
	actEmit action = iota
	actRaise
	actDrop
)

// decide is the error-policy gate. It is a pure function of the configured
// policy and the result's validity; the dispatcher owns all other state.
func decide(p Policy, valid bool) action {
	if valid {
		return actEmit
	}
	switch p {
	case PolicyRaise:
		return actRaise
	case PolicySkip:
		return actDrop
	default:
		return actEmit
	}
}

// Stream delivers validation results one at a time:
//
//	st := recval.Validate(ctx, items, schema)
//	for st.Next() {
//	    r := st.Result()
//	}
//	if err := st.Err(); err != nil { ... }
//
// The stream is lazy: the sequential dispatcher pulls at most one item ahead
// of the consumer and never materializes the input. It is resumable only as
// far as the underlying iterable is. Err reports a PolicyRaise stop (the
// invalid record's Issues), a hook or transform failure, a ConfigError, or
// context cancellation; exhaustion leaves it nil.
type Stream[T any] struct {
	advance func() (Result[T], bool)
	stop    func()
	cur     Result[T]
	err     error
	done    bool
}

// Next advances to the next result, reporting false when the stream ends.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}
	r, ok := s.advance()
	if !ok {
		s.done = true
		if s.stop != nil {
			s.stop()
		}
		return false
	}
	s.cur = r
	return true
}

// Result returns the result produced by the last successful Next.
func (s *Stream[T]) Result() Result[T] { return s.cur }

// Err returns the terminal error, if any. Valid after Next returns false and
// immediately for eagerly-rejected configurations.
func (s *Stream[T]) Err() error { return s.err }

// Close releases the stream early. For the concurrent dispatcher this cancels
// not-yet-started work; in-flight validations are left to finish.
func (s *Stream[T]) Close() {
	if s.done {
		return
	}
	s.done = true
	if s.stop != nil {
		s.stop()
	}
}

// Collect drains the stream into a slice, returning the terminal error.
func (s *Stream[T]) Collect() ([]Result[T], error) {
	var out []Result[T]
	for s.Next() {
		out = append(out, s.Result())
	}
	return out, s.Err()
}

func failedStream[T any](err error) *Stream[T] {
	return &Stream[T]{err: err, done: true}
}

// Validate validates an iterable of records against the schema, yielding one
// result per item in input order under the configured error policy. Items may
// be mappings, structs, and serialized strings, mixed freely.
func Validate[T any](ctx context.Context, items iter.Seq[any], s Schema[T], opts ...Opt[T]) *Stream[T] {
	opt := lastOpt(opts)
	if err := opt.check(); err != nil {
		return failedStream[T](err)
	}
	if s == nil {
		return failedStream[T](configErrorf("nil schema"))
	}
	if items == nil {
		return failedStream[T](configErrorf("nil input iterable"))
	}

	next, stop := iter.Pull(items)
	st := &Stream[T]{stop: stop}
	index := -1
	st.advance = func() (Result[T], bool) {
		var zero Result[T]
		for {
			if err := ctx.Err(); err != nil {
				st.err = err
				return zero, false
			}
			item, ok := next()
			if !ok {
				return zero, false
			}
			index++
			r, err := validateItem(ctx, item, s, opt)
			if err != nil {
				st.err = err
				return zero, false
			}
			act := decide(opt.Policy, r.Valid())
			if act == actRaise {
				st.err = r.Err
				return zero, false
			}
			if opt.Progress != nil {
				opt.Progress(index, r)
			}
			if !opt.Hooks.shouldContinue(r) {
				return zero, false
			}
			if act == actDrop {
				continue
			}
			return r, true
		}
	}
	return st
}
