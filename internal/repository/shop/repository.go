package shop

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Shop, error)
	Upsert(ctx context.Context, s domain.Shop) (*domain.Shop, error)
}
