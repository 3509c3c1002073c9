package order

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Create stores the order and its items atomically.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	GetByID(ctx context.Context, customerID, id string) (*domain.Order, error)
}
