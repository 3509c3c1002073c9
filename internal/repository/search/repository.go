package search

import (
	"context"

	"storefront/internal/domain"
)

// Repository records customer search history and global popular terms.
type Repository interface {
	// RecordHistory upserts the (customer, lower(query)) row and refreshes its timestamp.
	RecordHistory(ctx context.Context, customerID, query string) error
	ListHistory(ctx context.Context, customerID string, limit int) ([]domain.SearchHistoryEntry, error)
	ClearHistory(ctx context.Context, customerID string) error
	IncrementPopular(ctx context.Context, term string) error
	Popular(ctx context.Context, limit int) ([]domain.PopularTerm, error)
}
