package requester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPRequester executes one request per call over a shared Agent.
type HTTPRequester struct {
	agent   Agent
	client  *http.Client
	timeout atomic.Int64
	log     *zap.Logger
}

type HTTPRequesterParams struct {
	fx.In

	EndpointConfig *config.EndpointConfig
	Agent          Agent       `optional:"true"`
	Logger         *zap.Logger `optional:"true"`
}

// NewHTTPRequester creates a requester. Without an Agent a pooled one is
// built for the configured protocol; without a timeout 30s applies.
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	protocol := config.ProtocolHTTPS
	timeout := time.Duration(config.DefaultTimeoutMS) * time.Millisecond
	if ep := params.EndpointConfig; ep != nil {
		if ep.Protocol != "" {
			protocol = ep.Protocol
		}
		if ep.TimeoutMS > 0 {
			timeout = ep.Timeout()
		}
	}

	agent := params.Agent
	if agent == nil {
		agent = NewAgent(protocol)
	}
	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &HTTPRequester{
		agent: agent,
		client: &http.Client{
			Transport: agent,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log.Named("requester"),
	}
	r.timeout.Store(int64(timeout))
	return r
}

// SetTimeout sets the default timeout used by requests without their own.
// Requests already in flight keep the timeout they started with.
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.timeout.Store(int64(timeout))
}

// Destroy releases the agent's idle connections when it supports it.
func (r *HTTPRequester) Destroy() {
	if d, ok := r.agent.(destroyer); ok {
		r.log.Debug("destroying agent")
		d.CloseIdleConnections()
	}
}

// call tracks one request. Exactly one of success, failure or timeout
// settles it, and the connection is aborted at most once.
type call struct {
	settled   atomic.Bool
	abortOnce sync.Once
	cancel    context.CancelCauseFunc
}

func (c *call) settle() bool {
	return c.settled.CompareAndSwap(false, true)
}

func (c *call) abort(cause error) {
	c.abortOnce.Do(func() {
		requestAbortsTotal.Inc()
		c.cancel(cause)
	})
}

// Execute performs req and settles with a Response, a *NetworkError, a
// *RequestTimeoutError or an *UnparsableJSONError. The timeout is a hard
// deadline covering connect, headers and the whole body.
func (r *HTTPRequester) Execute(ctx context.Context, req *Request) (resp *Response, err error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	target, host, err := parseTarget(req.URL)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = time.Duration(r.timeout.Load())
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	log := r.log.With(zap.String("request_id", uuid.NewString()))
	log.Debug("sending request",
		zap.String("url", req.URL),
		zap.String("method", method),
		zap.Duration("timeout", timeout),
	)

	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		requestsTotal.WithLabelValues(outcome).Inc()
		requestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c := &call{cancel: cancel}
	timedOut := func() error {
		return &RequestTimeoutError{URL: req.URL, Duration: timeout}
	}
	timer := time.AfterFunc(timeout, func() {
		if c.settle() {
			log.Warn("request timed out", zap.String("url", req.URL), zap.Duration("timeout", timeout))
			c.abort(ErrRequestTimeout)
		}
	})

	httpReq, err := newHTTPRequest(ctx, method, target, host, req)
	if err != nil {
		timer.Stop()
		c.settle()
		return nil, err
	}

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		if !c.settle() {
			return nil, timedOut()
		}
		timer.Stop()
		c.abort(err)
		log.Warn("request failed", zap.String("url", req.URL), zap.Error(err))
		return nil, &NetworkError{URL: req.URL, Message: err.Error(), Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, readErr := readBody(httpResp)
	if !c.settle() {
		return nil, timedOut()
	}
	timer.Stop()

	if readErr != nil && !isTruncation(readErr) {
		c.abort(readErr)
		log.Warn("reading response failed", zap.String("url", req.URL), zap.Error(readErr))
		return nil, &NetworkError{URL: req.URL, Message: readErr.Error(), Err: readErr}
	}

	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	var body any
	parseErr := readErr
	if parseErr == nil {
		parseErr = json.Unmarshal(raw, &body)
	}
	if parseErr != nil {
		log.Debug("unparsable response", zap.Int("status", httpResp.StatusCode), zap.Int("bytes", len(raw)))
		return nil, &UnparsableJSONError{
			URL:        req.URL,
			StatusCode: httpResp.StatusCode,
			More:       text,
			Err:        parseErr,
		}
	}

	log.Debug("request settled",
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Response{
		Body:       body,
		Raw:        raw,
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
	}, nil
}

// parseTarget validates rawURL and makes the default port explicit so no
// agent has to guess it. host is the Host header value, as given in rawURL.
func parseTarget(rawURL string) (target *url.URL, host string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	var defaultPort string
	switch u.Scheme {
	case "https":
		defaultPort = "443"
	case "http":
		defaultPort = "80"
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, "", fmt.Errorf("parse url: missing host in %q", rawURL)
	}
	host = u.Host
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultPort)
	}
	return u, host, nil
}

func newHTTPRequest(ctx context.Context, method string, target *url.URL, host string, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Host = host

	h := httpReq.Header
	h.Set("Connection", "keep-alive")
	h.Set("Accept", "application/json")
	for k, v := range req.Headers {
		h.Set(k, v)
	}
	h.Set("Accept-Encoding", "gzip,deflate")

	switch {
	case req.Body != "":
		h.Set("Content-Type", "application/json")
		httpReq.ContentLength = int64(len(req.Body))
	case method == http.MethodDelete:
		// An explicit zero length keeps DELETE off chunked framing, which some
		// proxies reject on a reused connection.
		httpReq.Body = http.NoBody
		httpReq.ContentLength = 0
		httpReq.TransferEncoding = []string{"identity"}
	}
	return httpReq, nil
}

// readBody buffers the body, decoding gzip and deflate content encodings.
func readBody(resp *http.Response) ([]byte, error) {
	var src io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		src = zr
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		src = zr
	}
	return io.ReadAll(src)
}

// isTruncation reports a body that ended early or failed to decompress.
// Those are parse failures of what arrived, not transport failures.
func isTruncation(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.Is(err, zlib.ErrHeader) ||
		errors.Is(err, zlib.ErrChecksum) ||
		errors.As(err, &corrupt)
}
