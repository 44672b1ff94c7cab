package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/openapi"
	"github.com/brizzai/searchkit/internal/requester"
	"github.com/brizzai/searchkit/internal/securedkey"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err, "Failed to create listener")
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func newTestServer(t *testing.T, backendURL string, mode config.ServerMode, port int) *Server {
	t.Helper()
	cfg := &config.Config{
		Endpoint: config.EndpointConfig{
			AppID:     "APPID",
			APIKey:    "admin-key",
			Protocol:  config.ProtocolHTTP,
			Hosts:     []string{strings.TrimPrefix(backendURL, "http://")},
			TimeoutMS: 2000,
		},
		Server: config.ServerConfig{
			Host:    "localhost",
			Port:    port,
			Mode:    mode,
			Name:    "searchkit-test",
			Version: "test",
		},
	}
	endpoint := &cfg.Endpoint
	r := requester.NewHTTPRequester(requester.HTTPRequesterParams{EndpointConfig: endpoint})
	builder := requester.NewHTTPRequestBuilder(requester.HTTPRequestBuilderParams{
		EndpointConfig: endpoint,
		AuthManager:    requester.NewHTTPAuthManager(endpoint),
	})
	catalog := openapi.NewCatalog(nil)
	require.NoError(t, catalog.Load([]byte(testDocument)))
	srv, err := NewServer(cfg, r, builder, catalog)
	require.NoError(t, err)
	return srv
}

const testDocument = `{
  "openapi": "3.0.0",
  "info": {"title": "Search", "version": "1"},
  "paths": {
    "/1/indexes/{indexName}": {
      "get": {
        "summary": "Browse an index",
        "parameters": [
          {"name": "indexName", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "page", "in": "query", "schema": {"type": "integer"}}
        ]
      }
    }
  }
}`

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	cfg := &config.Config{}
	endpoint := &config.EndpointConfig{}
	r := requester.NewHTTPRequester(requester.HTTPRequesterParams{EndpointConfig: endpoint})
	builder := requester.NewHTTPRequestBuilder(requester.HTTPRequestBuilderParams{EndpointConfig: endpoint})

	_, err := NewServer(nil, r, builder, nil)
	assert.Error(t, err)
	_, err = NewServer(cfg, nil, builder, nil)
	assert.Error(t, err)
	_, err = NewServer(cfg, r, nil, nil)
	assert.Error(t, err)

	srv, err := NewServer(cfg, r, builder, nil)
	require.NoError(t, err)
	assert.NotNil(t, srv.MCP())
}

// TestServer_SSE runs the SSE transport end to end against a fake search API.
func TestServer_SSE(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "APPID", r.Header.Get(requester.HeaderApplicationID))
		assert.Equal(t, "admin-key", r.Header.Get(requester.HeaderAPIKey))
		switch r.URL.Path {
		case "/1/indexes":
			_, _ = w.Write([]byte(`{"items":[{"name":"products","entries":3}],"nbPages":1}`))
		case "/1/indexes/my index":
			assert.Equal(t, "/1/indexes/my%20index", r.URL.EscapedPath())
			_, _ = w.Write([]byte(`{"hits":[],"page":` + r.URL.Query().Get("page") + `}`))
		case "/1/indexes/products/query":
			body, _ := io.ReadAll(r.Body)
			_, _ = w.Write([]byte(`{"hits":[],"echo":` + string(body) + `}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Index does not exist","status":404}`))
		}
	}))
	defer backend.Close()

	port := freePort(t)
	srv := newTestServer(t, backend.URL, config.ServerModeSSE, port)

	serverCtx, stopServer := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(serverCtx) }()
	defer func() {
		stopServer()
		if err := <-errCh; err != nil {
			t.Logf("Server stopped with: %v", err)
		}
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	clientCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sseClient, err := client.NewSSEMCPClient(baseURL + "/sse")
	require.NoError(t, err, "Failed to create SSE client")
	defer func() { _ = sseClient.Close() }()
	require.NoError(t, sseClient.Start(clientCtx), "Failed to start client")

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test-client", Version: "1.0.0"}
	initResult, err := sseClient.Initialize(clientCtx, initReq)
	require.NoError(t, err, "Failed to initialize client")
	assert.Equal(t, "searchkit-test", initResult.ServerInfo.Name)

	t.Run("List Available Tools", func(t *testing.T) {
		tools, err := sseClient.ListTools(clientCtx, mcp.ListToolsRequest{})
		require.NoError(t, err)

		names := make([]string, 0, len(tools.Tools))
		for _, tl := range tools.Tools {
			names = append(names, tl.Name)
		}
		assert.ElementsMatch(t, []string{"search_request", "generate_secured_api_key", "get_1_indexes_indexname"}, names)
	})

	t.Run("Catalog operation", func(t *testing.T) {
		request := mcp.CallToolRequest{}
		request.Params.Name = "get_1_indexes_indexname"
		request.Params.Arguments = map[string]any{"indexName": "my index", "page": 2}

		result, err := sseClient.CallTool(clientCtx, request)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.JSONEq(t, `{"hits":[],"page":2}`, textOf(t, result))
	})

	t.Run("Search request", func(t *testing.T) {
		request := mcp.CallToolRequest{}
		request.Params.Name = "search_request"
		request.Params.Arguments = map[string]any{"method": "GET", "path": "/1/indexes"}

		result, err := sseClient.CallTool(clientCtx, request)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.JSONEq(t, `{"items":[{"name":"products","entries":3}],"nbPages":1}`, textOf(t, result))
	})

	t.Run("Search request with body", func(t *testing.T) {
		request := mcp.CallToolRequest{}
		request.Params.Name = "search_request"
		request.Params.Arguments = map[string]any{
			"method": "POST",
			"path":   "/1/indexes/products/query",
			"body":   map[string]any{"params": "query=phone"},
		}

		result, err := sseClient.CallTool(clientCtx, request)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.JSONEq(t, `{"hits":[],"echo":{"params":"query=phone"}}`, textOf(t, result))
	})

	t.Run("HTTP error status is a tool error", func(t *testing.T) {
		request := mcp.CallToolRequest{}
		request.Params.Name = "search_request"
		request.Params.Arguments = map[string]any{"method": "GET", "path": "/1/indexes/missing"}

		result, err := sseClient.CallTool(clientCtx, request)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, textOf(t, result), "HTTP Error 404")
	})

	t.Run("Generate secured key", func(t *testing.T) {
		request := mcp.CallToolRequest{}
		request.Params.Name = "generate_secured_api_key"
		request.Params.Arguments = map[string]any{
			"private_key": "parent-key",
			"tag_filters": []any{"user_42"},
		}

		result, err := sseClient.CallTool(clientCtx, request)
		require.NoError(t, err)
		assert.False(t, result.IsError)

		want, err := securedkey.GenerateSecuredAPIKey("parent-key", []string{"user_42"}, "")
		require.NoError(t, err)
		assert.JSONEq(t, `{"securedApiKey":"`+want+`"}`, textOf(t, result))
	})

	t.Run("Metrics endpoint", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/metrics")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "searchkit_requests_total")
	})
}

// TestServer_ContextCancellation tests that the server shuts down properly when context is cancelled
func TestServer_ContextCancellation(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", config.ServerModeHTTP, freePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err, "Server should shut down gracefully")
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down within timeout")
	}
}

func TestServer_UnsupportedMode(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", config.ServerMode("grpc"), 0)
	assert.Error(t, srv.Start(context.Background()))
}
