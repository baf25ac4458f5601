package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one catalog entry extracted from a category listing.
// Price starts as the listing price and is overwritten by the reconciled price when one exists.
type Product struct {
	ID         string          `json:"id" db:"product_id"`
	Name       string          `json:"name" db:"name"`
	URL        string          `json:"url" db:"url"`
	ImageURL   string          `json:"image_url" db:"image_url"`
	Price      decimal.Decimal `json:"price" db:"price"`
	SourceSite string          `json:"source_site" db:"source_site"`
}

// NewProduct builds a Product and refuses to return a partially populated one.
func NewProduct(id, name, url, imageURL string, price decimal.Decimal, sourceSite string) (Product, error) {
	required := []struct {
		piece string
		value string
	}{
		{"product id", id},
		{"product name", name},
		{"product url", url},
		{"product image url", imageURL},
		{"source site", sourceSite},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return Product{}, &ParseError{Piece: r.piece, Input: r.value}
		}
	}

	return Product{
		ID:         id,
		Name:       name,
		URL:        url,
		ImageURL:   imageURL,
		Price:      price,
		SourceSite: sourceSite,
	}, nil
}

// Run describes one exported extraction of a single category.
type Run struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"category_id"`
	SourceSite   string    `json:"source_site"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	ProductCount int       `json:"product_count"`
}

// ProductFilters holds all possible query parameters for filtering exported products.
type ProductFilters struct {
	CategoryID string
	SourceSite string
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
	// For Pagination
	Limit  int
	Offset int
}
