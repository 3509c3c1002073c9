package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	Search(ctx context.Context, f SearchFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// SearchFilter narrows a name search. Every field is applied before Limit so
// a row cap never hides a product the filter would have kept.
type SearchFilter struct {
	Query      string
	CategoryID string
	ShopID     string
	// Price bounds compare the effective (sale) price; zero MaxPriceCents is unbounded.
	MinPriceCents int64
	MaxPriceCents int64
	Limit         int
}
