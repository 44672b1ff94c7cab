package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/params"
	"github.com/brizzai/searchkit/internal/requester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(endpoint *config.EndpointConfig) *requester.HTTPRequestBuilder {
	return requester.NewHTTPRequestBuilder(requester.HTTPRequestBuilderParams{
		EndpointConfig: endpoint,
		AuthManager:    requester.NewHTTPAuthManager(endpoint),
	})
}

func TestHTTPRequestBuilder_BuildRequest(t *testing.T) {
	endpoint := &config.EndpointConfig{
		AppID:     "APPID",
		APIKey:    "secret",
		Protocol:  config.ProtocolHTTPS,
		Hosts:     []string{"APPID-dsn.algolia.net", "APPID-1.algolianet.com"},
		TimeoutMS: 2500,
		UserAgent: "searchkit-test",
		Headers:   map[string]string{"X-Forwarded-For": "10.0.0.1"},
	}

	tests := []struct {
		name         string
		method       string
		path         string
		query        params.Params
		body         any
		wantURL      string
		wantMethod   string
		wantBody     string
		checkHeaders func(t *testing.T, headers map[string]string)
	}{
		{
			name:       "GET with canonical query",
			method:     "get",
			path:       "/1/indexes/products",
			query:      params.Params{"query": "red shoes", "hitsPerPage": 5, "tagFilters": []string{"a", "b"}},
			wantURL:    "https://APPID-dsn.algolia.net/1/indexes/products?hitsPerPage=5&query=red%20shoes&tagFilters=a,b",
			wantMethod: "GET",
			checkHeaders: func(t *testing.T, headers map[string]string) {
				assert.Equal(t, "APPID", headers[requester.HeaderApplicationID])
				assert.Equal(t, "secret", headers[requester.HeaderAPIKey])
				assert.Equal(t, "searchkit-test", headers["User-Agent"])
				assert.Equal(t, "10.0.0.1", headers["X-Forwarded-For"])
			},
		},
		{
			name:       "path without slash and empty method",
			path:       "1/indexes",
			wantURL:    "https://APPID-dsn.algolia.net/1/indexes",
			wantMethod: "GET",
		},
		{
			name:       "struct body is marshalled",
			method:     "POST",
			path:       "/1/indexes/products/query",
			body:       map[string]any{"params": "query=phone"},
			wantURL:    "https://APPID-dsn.algolia.net/1/indexes/products/query",
			wantMethod: "POST",
			wantBody:   `{"params":"query=phone"}`,
		},
		{
			name:       "raw JSON body is sent as given",
			method:     "PUT",
			path:       "/1/indexes/products/42",
			body:       json.RawMessage(`{"name": "phone"}`),
			wantURL:    "https://APPID-dsn.algolia.net/1/indexes/products/42",
			wantMethod: "PUT",
			wantBody:   `{"name": "phone"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := newBuilder(endpoint).BuildRequest(tt.method, tt.path, tt.query, tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, req.URL)
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.wantBody, req.Body)
			assert.Equal(t, 2500*time.Millisecond, req.Timeout)
			if tt.checkHeaders != nil {
				tt.checkHeaders(t, req.Headers)
			}
		})
	}
}

func TestHTTPRequestBuilder_Errors(t *testing.T) {
	_, err := newBuilder(&config.EndpointConfig{Protocol: config.ProtocolHTTPS}).BuildRequest("GET", "/1/indexes", nil, nil)
	assert.Error(t, err, "no host")

	_, err = newBuilder(&config.EndpointConfig{APIKey: "only-key", Hosts: []string{"h"}}).BuildRequest("GET", "/", nil, nil)
	assert.Error(t, err, "incomplete credentials")

	_, err = newBuilder(&config.EndpointConfig{Hosts: []string{"h"}}).BuildRequest("POST", "/", nil, make(chan int))
	assert.Error(t, err, "unmarshalable body")
}

func TestHTTPRequestBuilder_DefaultUserAgent(t *testing.T) {
	req, err := newBuilder(&config.EndpointConfig{Hosts: []string{"h"}}).BuildRequest("GET", "/", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultUserAgent(), req.Headers["User-Agent"])
	assert.True(t, strings.HasPrefix(req.URL, "https://h/"))
}

func TestHTTPRequestBuilder_ExecutesAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "APPID", r.Header.Get(requester.HeaderApplicationID))
		assert.Equal(t, "secret", r.Header.Get(requester.HeaderAPIKey))
		assert.Equal(t, "hitsPerPage=2&query=phone", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"hits":[],"query":"` + r.URL.Query().Get("query") + `"}`))
	}))
	defer server.Close()

	endpoint := &config.EndpointConfig{
		AppID:    "APPID",
		APIKey:   "secret",
		Protocol: config.ProtocolHTTP,
		Hosts:    []string{strings.TrimPrefix(server.URL, "http://")},
	}
	req, err := newBuilder(endpoint).BuildRequest("GET", "/1/indexes/products", params.Params{"query": "phone", "hitsPerPage": 2}, nil)
	require.NoError(t, err)

	r := requester.NewHTTPRequester(requester.HTTPRequesterParams{EndpointConfig: endpoint})
	resp, err := r.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"hits": []any{}, "query": "phone"}, resp.Body)
}
