package tui

import (
	"github.com/brizzai/searchkit/internal/openapi"
)

// operationItem is one catalog operation in the picker list.
type operationItem struct {
	op          *openapi.Operation
	description string // edited description, empty when unchanged
	removed     bool
}

func (i operationItem) Title() string {
	return i.op.Title()
}

func (i operationItem) Description() string {
	if i.removed {
		return removedStyle.Render("[removed]")
	}
	if i.description != "" {
		return i.description
	}
	return i.op.Description
}

func (i operationItem) FilterValue() string {
	return i.op.Path + " " + i.op.Description
}

func (i operationItem) choice() openapi.Choice {
	return openapi.Choice{
		Path:        i.op.Path,
		Method:      i.op.Method,
		Description: i.description,
		Removed:     i.removed,
	}
}
