package semdiff

import (
	"context"
	"fmt"
)

// Future is the pending result of ComputeAsync.
type Future struct {
	done   chan struct{}
	result *Result
	err    error
}

// ComputeAsync runs Compute in its own goroutine. A panic in the computation
// completes the Future with an error. If ctx is cancelled before the
// computation finishes, the result is discarded and Wait returns ctx.Err().
func (e *Engine) ComputeAsync(ctx context.Context, original, modified *Project) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.result = nil
				f.err = fmt.Errorf("semdiff: compute panicked: %v", r)
			}
		}()
		res, err := e.Compute(ctx, original, modified)
		if ctxErr := ctx.Err(); ctxErr != nil {
			f.err = ctxErr
			return
		}
		f.result, f.err = res, err
	}()
	return f
}

// Done is closed when the computation has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the computation finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
