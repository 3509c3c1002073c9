package wishlist

import "context"

// Repository is the remote wishlist membership of a customer.
type Repository interface {
	List(ctx context.Context, customerID string) ([]string, error)
	// Add is idempotent: an existing membership is left untouched.
	Add(ctx context.Context, customerID, productID string) error
	Remove(ctx context.Context, customerID, productID string) error
}
