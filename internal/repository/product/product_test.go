package product

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository/repotest"
)

func TestPostgres_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	sale := int64(650)
	p, err := repo.Upsert(ctx, domain.Product{
		Key:            "runner",
		SKU:            "SKU-RUN",
		Name:           "Trail Runner Shoes",
		PriceCents:     1000,
		SalePriceCents: &sale,
		Currency:       "INR",
		Brand:          "Stride",
		Rating:         4.5,
		InStock:        true,
		Images:         []string{"https://example.com/run.jpg"},
	})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected ID set")
	}

	updated, err := repo.Upsert(ctx, domain.Product{
		Key:        "runner",
		SKU:        "SKU-RUN-2",
		Name:       "Trail Runner Shoes v2",
		PriceCents: 1200,
		Currency:   "INR",
	})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.ID != p.ID {
		t.Fatalf("expected same ID after update")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SKU != "SKU-RUN-2" || got.SalePriceCents != nil || got.PriceCents != 1200 {
		t.Fatalf("unexpected product %+v", got)
	}

	if _, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgres_Search(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(ctx, t)
	repo := NewPostgres(pool, nil)

	repotest.InsertProduct(ctx, t, pool, "red-shoes", "Red Shoes", 100)
	repotest.InsertProduct(ctx, t, pool, "blue-shirt", "Blue Shirt", 200)
	repotest.InsertProduct(ctx, t, pool, "pct", "100% Cotton", 300)

	list, err := repo.Search(ctx, SearchFilter{Query: "SHOE"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(list) != 1 || list[0].Key != "red-shoes" {
		t.Fatalf("unexpected search result %+v", list)
	}

	list, err = repo.Search(ctx, SearchFilter{Query: "%"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(list) != 1 || list[0].Key != "pct" {
		t.Fatalf("expected literal percent match, got %+v", list)
	}

	// Price bounds are applied before the limit.
	list, err = repo.Search(ctx, SearchFilter{MinPriceCents: 150, MaxPriceCents: 250, Limit: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(list) != 1 || list[0].Key != "blue-shirt" {
		t.Fatalf("expected price-filtered match, got %+v", list)
	}

	all, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}
}
