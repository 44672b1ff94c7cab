package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxSchemaDepth bounds recursive schemas such as nested filters.
const maxSchemaDepth = 4

// bodyOption describes a request body schema as the tool's "body" argument.
// The body's own required fields stay inside its schema; required marks the
// argument itself on the tool.
func bodyOption(ref *openapi3.SchemaRef, required bool) mcp.ToolOption {
	inner := bodySchemaOption(ref)
	return func(t *mcp.Tool) {
		inner(t)
		if required {
			t.InputSchema.Required = append(t.InputSchema.Required, "body")
		}
	}
}

func bodySchemaOption(ref *openapi3.SchemaRef) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description("Request body")}
	if ref == nil || ref.Value == nil {
		return mcp.WithObject("body", opts...)
	}

	s := ref.Value
	if s.Description != "" {
		opts = append(opts, mcp.Description(s.Description))
	}
	if s.Type != nil && s.Type.Includes(openapi3.TypeArray) {
		if s.Items != nil && s.Items.Value != nil {
			opts = append(opts, mcp.Items(jsonSchema(s.Items.Value, 1)))
		}
		return mcp.WithArray("body", opts...)
	}

	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			if prop != nil && prop.Value != nil {
				props[name] = jsonSchema(prop.Value, 1)
			}
		}
		opts = append(opts, mcp.Properties(props))
	}
	if len(s.Required) > 0 {
		fields := s.Required
		opts = append(opts, func(m map[string]any) {
			m["required"] = fields
		})
	}
	return mcp.WithObject("body", opts...)
}

// queryOption describes one query parameter. Scalars keep their type so
// clients send numbers and booleans as such.
func queryOption(p *openapi3.Parameter) mcp.ToolOption {
	opts := []mcp.PropertyOption{}
	if p.Description != "" {
		opts = append(opts, mcp.Description(p.Description))
	} else {
		opts = append(opts, mcp.Description("Query parameter: "+p.Name))
	}
	if p.Required {
		opts = append(opts, mcp.Required())
	}

	var s *openapi3.Schema
	if p.Schema != nil {
		s = p.Schema.Value
	}
	switch {
	case s == nil || s.Type == nil:
		return mcp.WithString(p.Name, opts...)
	case s.Type.Includes(openapi3.TypeBoolean):
		return mcp.WithBoolean(p.Name, opts...)
	case s.Type.Includes(openapi3.TypeInteger), s.Type.Includes(openapi3.TypeNumber):
		if s.Min != nil {
			opts = append(opts, mcp.Min(*s.Min))
		}
		if s.Max != nil {
			opts = append(opts, mcp.Max(*s.Max))
		}
		return mcp.WithNumber(p.Name, opts...)
	case s.Type.Includes(openapi3.TypeArray):
		if s.Items != nil && s.Items.Value != nil {
			opts = append(opts, mcp.Items(jsonSchema(s.Items.Value, 1)))
		}
		return mcp.WithArray(p.Name, opts...)
	default:
		if enum := stringEnum(s.Enum); len(enum) > 0 {
			opts = append(opts, mcp.Enum(enum...))
		}
		return mcp.WithString(p.Name, opts...)
	}
}

// jsonSchema flattens an OpenAPI schema into the JSON Schema subset tool
// arguments use.
func jsonSchema(s *openapi3.Schema, depth int) map[string]any {
	out := map[string]any{}
	if s.Type != nil && len(s.Type.Slice()) > 0 {
		out["type"] = s.Type.Slice()[0]
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Min != nil {
		out["minimum"] = *s.Min
	}
	if s.Max != nil {
		out["maximum"] = *s.Max
	}
	if s.Pattern != "" {
		out["pattern"] = s.Pattern
	}
	if depth >= maxSchemaDepth {
		return out
	}

	if s.Items != nil && s.Items.Value != nil {
		out["items"] = jsonSchema(s.Items.Value, depth+1)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			if prop != nil && prop.Value != nil {
				props[name] = jsonSchema(prop.Value, depth+1)
			}
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

func stringEnum(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
