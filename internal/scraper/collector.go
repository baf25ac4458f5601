package scraper

import (
	"sync"

	"CatalogScraper/internal/models"
)

// ProductBag is an unordered, append-only product collection safe for concurrent use.
type ProductBag struct {
	mu       sync.Mutex
	products []models.Product
}

func NewProductBag() *ProductBag {
	return &ProductBag{}
}

func (b *ProductBag) Add(products ...models.Product) {
	b.mu.Lock()
	b.products = append(b.products, products...)
	b.mu.Unlock()
}

func (b *ProductBag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.products)
}

// Products returns a copy of the collected products. The result is never nil.
func (b *ProductBag) Products() []models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Product, len(b.products))
	copy(out, b.products)
	return out
}
