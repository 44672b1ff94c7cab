package requester

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/params"

	"go.uber.org/fx"
)

// HTTPRequestBuilderParams holds the parameters for creating an HTTPRequestBuilder
type HTTPRequestBuilderParams struct {
	fx.In
	EndpointConfig *config.EndpointConfig
	AuthManager    AuthManager
}

// HTTPRequestBuilder turns a path and parameters into a Request for the
// configured endpoint.
type HTTPRequestBuilder struct {
	endpoint *config.EndpointConfig
	authMgr  AuthManager
}

// NewHTTPRequestBuilder creates a new HTTPRequestBuilder
func NewHTTPRequestBuilder(p HTTPRequestBuilderParams) *HTTPRequestBuilder {
	return &HTTPRequestBuilder{
		endpoint: p.EndpointConfig,
		authMgr:  p.AuthManager,
	}
}

// BuildRequest builds a request against the first configured host. query is
// canonicalized into the URL; body is sent as JSON (strings and raw JSON
// are sent as given).
func (b *HTTPRequestBuilder) BuildRequest(method, path string, query params.Params, body any) (*Request, error) {
	if b.endpoint == nil {
		return nil, fmt.Errorf("endpoint config is nil")
	}
	host := b.endpoint.Host()
	if host == "" {
		return nil, fmt.Errorf("no host configured")
	}
	if method == "" {
		method = http.MethodGet
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	protocol := b.endpoint.Protocol
	if protocol == "" {
		protocol = config.ProtocolHTTPS
	}
	url := protocol + "//" + host + path
	if qs := params.Encode(query); qs != "" {
		url += "?" + qs
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	headers := make(map[string]string, len(b.endpoint.Headers)+3)
	for k, v := range b.endpoint.Headers {
		headers[k] = v
	}
	if b.authMgr != nil {
		if err := b.authMgr.ApplyAuth(headers); err != nil {
			return nil, fmt.Errorf("failed to apply authentication: %w", err)
		}
	}
	ua := b.endpoint.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent()
	}
	headers["User-Agent"] = ua

	return &Request{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    payload,
		Timeout: b.endpoint.Timeout(),
	}, nil
}

func encodeBody(body any) (string, error) {
	switch v := body.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		return string(data), nil
	}
}
