package seed

import (
	"context"
	"fmt"
	"io"
	"log"

	"storefront/internal/catalog"
	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type ShopWriter interface {
	Upsert(ctx context.Context, s domain.Shop) (*domain.Shop, error)
}

// Writers are the repositories seed data is written through.
type Writers struct {
	Products   ProductWriter
	Categories CategoryWriter
	Shops      ShopWriter
}

// Apply upserts the contents of c. Catalog ids are replaced by the ids the
// database assigns; rerunning updates rows in place by key.
func Apply(ctx context.Context, w Writers, c *catalog.Catalog, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if c == nil {
		c = catalog.Sample()
	}

	categoryIDs := make(map[string]string)
	for _, cat := range c.Categories() {
		saved, err := w.Categories.Upsert(ctx, cat)
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", cat.Key, err)
		}
		categoryIDs[cat.ID] = saved.ID
	}

	shopIDs := make(map[string]string)
	for _, s := range c.Shops() {
		saved, err := w.Shops.Upsert(ctx, s)
		if err != nil {
			return fmt.Errorf("upsert shop %s: %w", s.Key, err)
		}
		shopIDs[s.ID] = saved.ID
	}

	for _, p := range c.Products() {
		p.ID = ""
		p.CategoryID = categoryIDs[p.CategoryID]
		p.ShopID = shopIDs[p.ShopID]
		if _, err := w.Products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
	}

	logger.Printf("seed: applied categories=%d shops=%d products=%d",
		len(categoryIDs), len(shopIDs), len(c.Products()))
	return nil
}
