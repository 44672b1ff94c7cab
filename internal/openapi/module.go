package openapi

import (
	"github.com/brizzai/searchkit/internal/config"
	"go.uber.org/fx"
)

// Module provides the operation catalog dependencies
var Module = fx.Module("openapi",
	fx.Provide(
		NewConfiguredCatalog,
	),
)

// NewConfiguredCatalog loads server.openapi_file filtered by
// server.selection_file. Without a document the catalog is empty.
func NewConfiguredCatalog(cfg *config.Config) (*Catalog, error) {
	sel, err := LoadSelection(cfg.Server.SelectionFile)
	if err != nil {
		return nil, err
	}
	c := NewCatalog(sel)
	if cfg.Server.OpenAPIFile == "" {
		return c, nil
	}
	if err := c.LoadFile(cfg.Server.OpenAPIFile); err != nil {
		return nil, err
	}
	return c, nil
}
