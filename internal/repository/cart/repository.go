package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository is the remote cart of an authenticated customer.
type Repository interface {
	ListLines(ctx context.Context, customerID string) ([]domain.CartLine, error)
	// AddLine inserts the (product, color, size) line or adds quantity to the existing one.
	AddLine(ctx context.Context, customerID string, product domain.Product, color, size *string, quantity int) (*domain.CartLine, error)
	SetQuantity(ctx context.Context, customerID, lineID string, quantity int) error
	DeleteLine(ctx context.Context, customerID, lineID string) error
	Clear(ctx context.Context, customerID string) error
}
