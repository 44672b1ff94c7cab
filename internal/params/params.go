// Package params canonicalizes search parameters into the query-string form
// the search service expects, both on the wire and inside secured API keys.
package params

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params is a set of search parameters keyed by their wire name.
type Params map[string]any

// Encode renders p as key=value pairs joined by '&'. Keys are sorted so the
// output is stable, which a signature over it requires. Nil values are skipped.
func Encode(p Params) string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if k == "" || v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encodeValue(p[k]))
	}
	return b.String()
}

func encodeValue(v any) string {
	switch val := v.(type) {
	case string:
		return EscapeComponent(val)
	case []string:
		parts := make([]string, len(val))
		for i, s := range val {
			parts[i] = EscapeComponent(s)
		}
		return strings.Join(parts, ",")
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = encodeElement(e)
		}
		return strings.Join(parts, ",")
	case [][]string:
		parts := make([]string, len(val))
		for i, group := range val {
			parts[i] = encodeElement(group)
		}
		return strings.Join(parts, ",")
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return EscapeComponent(val.String())
	case fmt.Stringer:
		return EscapeComponent(val.String())
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return EscapeComponent(fmt.Sprint(val))
		}
		return EscapeComponent(string(raw))
	}
}

// encodeElement renders one list element. A nested list is an OR group and
// is wrapped in parentheses, so [["a","b"],"c"] reads (a,b),c. Lists nested
// deeper than one group are JSON encoded.
func encodeElement(e any) string {
	var group []any
	switch g := e.(type) {
	case []string:
		group = make([]any, len(g))
		for i, s := range g {
			group[i] = s
		}
	case []any:
		group = g
	default:
		return encodeValue(e)
	}

	parts := make([]string, len(group))
	for i, inner := range group {
		switch inner.(type) {
		case []string, []any:
			raw, _ := json.Marshal(inner)
			parts[i] = EscapeComponent(string(raw))
		default:
			parts[i] = encodeValue(inner)
		}
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// EscapeComponent escapes s the way JavaScript's encodeURIComponent does:
// everything but A-Z a-z 0-9 - _ . ! ~ * ' ( ) is percent-encoded as UTF-8.
func EscapeComponent(s string) string {
	escaped := url.QueryEscape(s)
	if !strings.ContainsAny(escaped, "+%") {
		return escaped
	}
	return componentReplacer.Replace(escaped)
}

var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)
