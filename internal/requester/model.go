package requester

import (
	"encoding/json"
	"net/http"
	"time"
)

// Request describes a single call to the search service. It is not modified
// by the requester.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	// Body is sent as application/json when non-empty.
	Body string
	// Timeout bounds the whole call; zero means the requester default.
	Timeout time.Duration
}

// Response is a settled call whose body parsed as JSON. Non-2xx statuses
// are still responses; the caller decides what they mean.
type Response struct {
	Body       any
	Raw        []byte
	StatusCode int
	Headers    http.Header
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}
