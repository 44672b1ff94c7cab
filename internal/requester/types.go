package requester

import (
	"context"
	"net/http"
)

// Requester is the platform-neutral surface the outer client talks to.
type Requester interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
	Go(ctx context.Context, req *Request) *Future
	Destroy()
}

// Agent holds the pooled connections requests are sent over. It is owned by
// the caller and shared by every request of a requester.
type Agent = http.RoundTripper

// destroyer is implemented by agents that can release their connections.
type destroyer interface {
	CloseIdleConnections()
}

var _ Requester = (*HTTPRequester)(nil)
