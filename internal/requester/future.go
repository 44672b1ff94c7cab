package requester

import (
	"context"
	"time"
)

// Future is the pending outcome of a request started with Go.
type Future struct {
	done chan struct{}
	resp *Response
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(resp *Response, err error) {
	f.resp, f.err = resp, err
	close(f.done)
}

// Go starts Execute on its own goroutine. Requests started this way are
// independent and settle in no particular order.
func (r *HTTPRequester) Go(ctx context.Context, req *Request) *Future {
	f := newFuture()
	go func() {
		f.complete(r.Execute(ctx, req))
	}()
	return f
}

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the request settles or ctx ends. Giving up on ctx does
// not cancel the request itself.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved returns a Future already settled with resp.
func Resolved(resp *Response) *Future {
	f := newFuture()
	f.complete(resp, nil)
	return f
}

// Rejected returns a Future already settled with err.
func Rejected(err error) *Future {
	f := newFuture()
	f.complete(nil, err)
	return f
}

// Delay waits for d, returning early with ctx.Err() if ctx ends first.
func Delay(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
