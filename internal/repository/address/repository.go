package address

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Address, error)
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
}
