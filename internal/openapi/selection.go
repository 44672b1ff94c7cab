package openapi

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/brizzai/searchkit/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RouteSelection keeps the listed methods of one path.
type RouteSelection struct {
	Path    string   `yaml:"path"`
	Methods []string `yaml:"methods"`
}

// DescriptionOverride replaces the tool description of one operation.
type DescriptionOverride struct {
	Path        string `yaml:"path"`
	Method      string `yaml:"method"`
	Description string `yaml:"description"`
}

// Selection narrows a catalog to chosen operations and rewrites their
// descriptions. An empty selection keeps everything.
type Selection struct {
	Routes       []RouteSelection      `yaml:"routes,omitempty"`
	Descriptions []DescriptionOverride `yaml:"descriptions,omitempty"`
}

// LoadSelection reads a selection file. An empty path yields an empty
// selection.
func LoadSelection(path string) (*Selection, error) {
	sel := &Selection{}
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("selection file %s not found", path)
		}
		return nil, fmt.Errorf("read selection file: %w", err)
	}
	if err := yaml.Unmarshal(data, sel); err != nil {
		return nil, fmt.Errorf("parse selection file %s: %w", path, err)
	}
	logger.Debug("Loaded selection",
		zap.String("file", path),
		zap.Int("routes", len(sel.Routes)),
		zap.Int("descriptions", len(sel.Descriptions)),
	)
	return sel, nil
}

// Includes reports whether method on path is selected.
func (s *Selection) Includes(path, method string) bool {
	if s == nil || len(s.Routes) == 0 {
		return true
	}
	for _, route := range s.Routes {
		if route.Path != path {
			continue
		}
		for _, m := range route.Methods {
			if m == method {
				return true
			}
		}
		return false
	}
	return false
}

// Describe returns the override for method on path, or original.
func (s *Selection) Describe(path, method, original string) string {
	if s == nil {
		return original
	}
	for _, d := range s.Descriptions {
		if d.Path == path && d.Method == method {
			return d.Description
		}
	}
	return original
}

// Choice is one operation's state when building a selection interactively.
type Choice struct {
	Path        string
	Method      string
	Description string
	Removed     bool
}

// NewSelection keeps the choices not removed. Routes are sorted by path so
// the written file is stable.
func NewSelection(choices []Choice) *Selection {
	byPath := make(map[string][]string)
	sel := &Selection{}
	for _, c := range choices {
		if c.Removed {
			continue
		}
		byPath[c.Path] = append(byPath[c.Path], c.Method)
		if c.Description != "" {
			sel.Descriptions = append(sel.Descriptions, DescriptionOverride{
				Path:        c.Path,
				Method:      c.Method,
				Description: c.Description,
			})
		}
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		sel.Routes = append(sel.Routes, RouteSelection{Path: p, Methods: byPath[p]})
	}
	return sel
}

// Save writes the selection as YAML.
func (s *Selection) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write selection file: %w", err)
	}
	return nil
}
