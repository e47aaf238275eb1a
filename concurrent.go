package recval

import (
	"context"
	"errors"
	"iter"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// maxDefaultWorkers caps the default pool size.
const maxDefaultWorkers = 32

func errorIsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ValidateConcurrently behaves like Validate but runs validations (and any
// hook work) for multiple items in flight at once. Results are reordered back
// into input order before emission: concurrency affects throughput, never the
// observable sequence. Under PolicyRaise, results of items after the first
// error in input order are discarded even when their validation already
// completed. Closing the stream stops new work; in-flight items finish.
//
// Hooks.Before/After and observers run on worker goroutines and may execute
// concurrently; Continue and Progress run ordered on the consumer side.
func ValidateConcurrently[T any](ctx context.Context, items iter.Seq[any], s Schema[T], opts ...Opt[T]) *Stream[T] {
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

	workers := opt.MaxInFlight
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > maxDefaultWorkers {
			workers = maxDefaultWorkers
		}
	}

	type slot struct {
		index int
		r     Result[T]
		err   error // terminal hook/transform failure
	}

	cctx, cancel := context.WithCancel(ctx)
	results := make(chan slot, workers)

	// termErr is written before close(results) and read only after the
	// channel is observed closed.
	var termErr error

	go func() {
		g, gctx := errgroup.WithContext(cctx)
		g.SetLimit(workers)
		index := 0
		for item := range items {
			if gctx.Err() != nil {
				break
			}
			i, it := index, item
			index++
			// Go blocks while the pool is saturated, bounding lookahead
			// to the pool size.
			g.Go(func() error {
				r, err := validateItem(gctx, it, s, opt)
				select {
				case results <- slot{index: i, r: r, err: err}:
				case <-gctx.Done():
				}
				return err
			})
		}
		termErr = g.Wait()
		close(results)
	}()

	st := &Stream[T]{stop: cancel}
	buffered := make(map[int]slot)
	nextIndex := 0
	closed := false

	st.advance = func() (Result[T], bool) {
		var zero Result[T]
		for {
			sl, ok := buffered[nextIndex]
			if !ok {
				if closed {
					// Source exhausted, or cancelled with a gap: nothing
					// more can arrive in order.
					if st.err == nil {
						if termErr != nil && !errorIsCanceled(termErr) {
							st.err = termErr
						} else if err := ctx.Err(); err != nil {
							st.err = err
						}
					}
					return zero, false
				}
				in, open := <-results
				if !open {
					closed = true
					continue
				}
				buffered[in.index] = in
				continue
			}
			delete(buffered, nextIndex)
			index := nextIndex
			nextIndex++

			if sl.err != nil {
				st.err = sl.err
				cancel()
				return zero, false
			}
			act := decide(opt.Policy, sl.r.Valid())
			if act == actRaise {
				st.err = sl.r.Err
				cancel()
				return zero, false
			}
			if opt.Progress != nil {
				opt.Progress(index, sl.r)
			}
			if !opt.Hooks.shouldContinue(sl.r) {
				cancel()
				return zero, false
			}
			if act == actDrop {
				continue
			}
			return sl.r, true
		}
	}
	return st
}
