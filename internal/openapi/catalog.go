// Package openapi turns an OpenAPI description of the search REST API into
// MCP tools, one per operation.
package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/brizzai/searchkit/internal/logger"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Operation is one method on one path, with the tool that exposes it.
type Operation struct {
	Method      string
	Path        string
	Description string
	PathParams  []string
	QueryParams []string
	HasBody     bool
	Tool        mcp.Tool
}

// Title is the "METHOD /path" form used in listings.
func (o *Operation) Title() string {
	return o.Method + " " + o.Path
}

// Catalog holds the operations of one document that a Selection keeps.
type Catalog struct {
	doc        *openapi3.T
	selection  *Selection
	operations []*Operation
}

// NewCatalog creates an empty catalog filtered by sel (nil keeps everything).
func NewCatalog(sel *Selection) *Catalog {
	return &Catalog{selection: sel}
}

// Operations returns the selected operations ordered by path, then method.
func (c *Catalog) Operations() []*Operation {
	return c.operations
}

// LoadFile parses an OpenAPI 3 document (JSON or YAML) or a Swagger 2.0
// JSON document.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read spec file: %w", err)
	}
	return c.Load(data)
}

// Load parses data and rebuilds the operation list.
func (c *Catalog) Load(data []byte) error {
	doc, err := parseDocument(data)
	if err != nil {
		return err
	}
	c.doc = doc
	c.operations = c.collect()
	logger.Info("Loaded API operations", zap.Int("count", len(c.operations)))
	return nil
}

func parseDocument(data []byte) (*openapi3.T, error) {
	var header struct {
		Swagger string `yaml:"swagger"`
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	switch {
	case header.Swagger != "":
		if header.Swagger != "2.0" {
			return nil, fmt.Errorf("unsupported Swagger version: %s", header.Swagger)
		}
		var v2 openapi2.T
		if err := json.Unmarshal(data, &v2); err != nil {
			return nil, fmt.Errorf("failed to parse Swagger 2.0 document: %w", err)
		}
		logger.Debug("Converting Swagger 2.0 document to OpenAPI 3")
		doc, err := openapi2conv.ToV3(&v2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert Swagger 2.0 to OpenAPI 3: %w", err)
		}
		return doc, nil
	case strings.HasPrefix(header.OpenAPI, "3."):
		doc, err := openapi3.NewLoader().LoadFromData(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
		}
		return doc, nil
	case header.OpenAPI != "":
		return nil, fmt.Errorf("unsupported OpenAPI version: %s", header.OpenAPI)
	default:
		return nil, fmt.Errorf("document is missing 'swagger' or 'openapi' version field")
	}
}

func (c *Catalog) collect() []*Operation {
	if c.doc == nil || c.doc.Paths == nil {
		return nil
	}
	paths := c.doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for p := range paths {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	var ops []*Operation
	for _, path := range keys {
		item := paths[path]
		for _, m := range []struct {
			method string
			op     *openapi3.Operation
		}{
			{http.MethodGet, item.Get},
			{http.MethodPost, item.Post},
			{http.MethodPut, item.Put},
			{http.MethodPatch, item.Patch},
			{http.MethodDelete, item.Delete},
		} {
			if m.op == nil || !c.selection.Includes(path, m.method) {
				continue
			}
			ops = append(ops, c.newOperation(path, m.method, item, m.op))
		}
	}
	return ops
}

func (c *Catalog) newOperation(path, method string, item *openapi3.PathItem, op *openapi3.Operation) *Operation {
	desc := op.Description
	if desc == "" {
		desc = op.Summary
	}
	o := &Operation{
		Method:      method,
		Path:        path,
		Description: c.selection.Describe(path, method, desc),
		PathParams:  pathParams(path),
	}

	toolOpts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("%s %s\n%s", method, path, o.Description)),
	}
	for _, name := range o.PathParams {
		toolOpts = append(toolOpts, mcp.WithString(name,
			mcp.Required(),
			mcp.Description("Path parameter: "+name),
		))
	}

	// Path-level parameters apply unless the operation redefines them.
	seen := make(map[string]bool)
	for _, params := range []openapi3.Parameters{op.Parameters, item.Parameters} {
		for _, ref := range params {
			if ref == nil || ref.Value == nil || ref.Value.In != openapi3.ParameterInQuery || seen[ref.Value.Name] {
				continue
			}
			seen[ref.Value.Name] = true
			o.QueryParams = append(o.QueryParams, ref.Value.Name)
			toolOpts = append(toolOpts, queryOption(ref.Value))
		}
	}

	if body := op.RequestBody; body != nil && body.Value != nil {
		o.HasBody = true
		toolOpts = append(toolOpts, bodyOption(bodySchema(body.Value), body.Value.Required))
	}

	o.Tool = mcp.NewTool(toolName(method, path), toolOpts...)
	return o
}

// bodySchema prefers the JSON media type and falls back to any other one.
func bodySchema(body *openapi3.RequestBody) *openapi3.SchemaRef {
	if mt := body.Content.Get("application/json"); mt != nil {
		return mt.Schema
	}
	types := make([]string, 0, len(body.Content))
	for ct := range body.Content {
		types = append(types, ct)
	}
	sort.Strings(types)
	for _, ct := range types {
		if mt := body.Content[ct]; mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

// toolName derives e.g. "post_1_indexes_indexname_query" from
// POST /1/indexes/{indexName}/query.
func toolName(method, path string) string {
	name := strings.TrimPrefix(path, "/")
	name = strings.NewReplacer("/", "_", "{", "", "}", "", "-", "_", ".", "_").Replace(name)
	return strings.ToLower(method + "_" + name)
}

func pathParams(path string) []string {
	var params []string
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			params = append(params, strings.TrimSuffix(strings.TrimPrefix(part, "{"), "}"))
		}
	}
	return params
}
