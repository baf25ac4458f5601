package scraper

import (
	"context"

	"CatalogScraper/internal/models"
)

// Scraper defines the basic behavior for all catalog sources.
// Any new site we add must follow the same extraction contract.
type Scraper interface {
	// ExtractCategory returns every product listed under categoryID, with reconciled prices.
	// An empty category yields an empty slice and a nil error.
	ExtractCategory(ctx context.Context, categoryID string) ([]models.Product, error)

	// SourceSite is the tag stamped on every product this scraper produces.
	SourceSite() string
}
