// Package tool provides the MCP tools exposed by the server.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/brizzai/searchkit/internal/logger"
	"github.com/brizzai/searchkit/internal/openapi"
	"github.com/brizzai/searchkit/internal/params"
	"github.com/brizzai/searchkit/internal/requester"
	"github.com/brizzai/searchkit/internal/securedkey"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	SearchRequestName      = "search_request"
	GenerateSecuredKeyName = "generate_secured_api_key"
)

// Builder turns a tool call into a Request for the configured endpoint.
type Builder interface {
	BuildRequest(method, path string, query params.Params, body any) (*requester.Request, error)
}

// Handler executes tool calls against the search endpoint.
type Handler struct {
	requester requester.Requester
	builder   Builder
}

// NewHandler creates a new tool handler.
func NewHandler(r requester.Requester, b Builder) *Handler {
	return &Handler{requester: r, builder: b}
}

// SearchRequestTool describes a raw call to the search REST API.
func SearchRequestTool() mcp.Tool {
	return mcp.NewTool(SearchRequestName,
		mcp.WithDescription("Send a request to the search API and return the JSON response. "+
			"The application id and API key come from the server configuration."),
		mcp.WithString("method",
			mcp.Required(),
			mcp.Description("HTTP method"),
			mcp.Enum(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path on the API host, e.g. /1/indexes/products/query"),
		),
		mcp.WithObject("query",
			mcp.Description("Query-string parameters; arrays are sent comma separated"),
		),
		mcp.WithObject("body",
			mcp.Description("JSON body for POST and PUT requests"),
		),
	)
}

// GenerateSecuredKeyTool describes local secured API key derivation.
func GenerateSecuredKeyTool() mcp.Tool {
	return mcp.NewTool(GenerateSecuredKeyName,
		mcp.WithDescription("Derive a secured API key from a private API key. "+
			"Give either tag_filters or params. Nothing is sent over the network."),
		mcp.WithString("private_key",
			mcp.Required(),
			mcp.Description("The API key to sign with"),
		),
		mcp.WithArray("tag_filters",
			mcp.Description("Tags the key is restricted to"),
		),
		mcp.WithString("params",
			mcp.Description("A raw query string (query=a&hitsPerPage=5) or a tag filter expression"),
		),
		mcp.WithString("user_token",
			mcp.Description("Optional user token bound into the key"),
		),
	)
}

// SearchRequest handles search_request calls.
func (h *Handler) SearchRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	method, _ := args["method"].(string)
	path, _ := args["path"].(string)
	if strings.TrimSpace(path) == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	var query params.Params
	if q, ok := args["query"].(map[string]any); ok {
		query = params.Params(q)
	}

	req, err := h.builder.BuildRequest(method, path, query, args["body"])
	if err != nil {
		return nil, fmt.Errorf("failed to build request for tool %s: %w", SearchRequestName, err)
	}

	return h.execute(ctx, SearchRequestName, req), nil
}

// Operation returns the handler for a catalog operation. Path parameters are
// escaped into the path, query parameters go to the query string and "body"
// is sent as JSON.
func (h *Handler) Operation(op *openapi.Operation) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := op.Tool.Name
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		path := op.Path
		for _, p := range op.PathParams {
			v, ok := args[p]
			if !ok || v == nil || fmt.Sprint(v) == "" {
				return mcp.NewToolResultError(fmt.Sprintf("missing path parameter %s", p)), nil
			}
			path = strings.ReplaceAll(path, "{"+p+"}", params.EscapeComponent(fmt.Sprint(v)))
		}

		query := params.Params{}
		for _, q := range op.QueryParams {
			if v, ok := args[q]; ok && v != nil {
				query[q] = v
			}
		}

		var body any
		if op.HasBody {
			body = args["body"]
		}

		req, err := h.builder.BuildRequest(op.Method, path, query, body)
		if err != nil {
			return nil, fmt.Errorf("failed to build request for tool %s: %w", name, err)
		}
		return h.execute(ctx, name, req), nil
	}
}

// execute runs req and maps transport failures and HTTP error statuses to
// tool errors so the caller can read them.
func (h *Handler) execute(ctx context.Context, name string, req *requester.Request) *mcp.CallToolResult {
	resp, err := h.requester.Execute(ctx, req)
	if err != nil {
		logger.Warn("Tool request failed",
			zap.String("tool", name),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return mcp.NewToolResultError(describe(err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return mcp.NewToolResultError(fmt.Sprintf("HTTP Error %d: %s", resp.StatusCode, string(resp.Raw)))
	}
	return mcp.NewToolResultText(string(resp.Raw))
}

// GenerateSecuredKey handles generate_secured_api_key calls.
func (h *Handler) GenerateSecuredKey(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	privateKey, _ := args["private_key"].(string)
	if privateKey == "" {
		return mcp.NewToolResultError("private_key is required"), nil
	}
	userToken, _ := args["user_token"].(string)

	var restriction any
	switch {
	case args["tag_filters"] != nil:
		tags, err := stringSlice(args["tag_filters"])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		restriction = tags
	case args["params"] != nil:
		raw, ok := args["params"].(string)
		if !ok {
			return mcp.NewToolResultError("params must be a string"), nil
		}
		restriction = raw
	default:
		return mcp.NewToolResultError("one of tag_filters or params is required"), nil
	}

	key, err := securedkey.GenerateSecuredAPIKey(privateKey, restriction, userToken)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.Marshal(map[string]string{"securedApiKey": key})
	if err != nil {
		return nil, fmt.Errorf("failed to encode secured key: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func stringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("tag_filters must contain only strings, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tag_filters must be an array of strings, got %T", v)
	}
}

func describe(err error) string {
	var unparsable *requester.UnparsableJSONError
	switch {
	case errors.As(err, &unparsable):
		return fmt.Sprintf("%s: %s", err, unparsable.More)
	default:
		return err.Error()
	}
}
