package order

import (
	"context"
	"strings"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

type Service struct {
	repo orderrepo.Repository
}

func New(repo orderrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns the customer's orders, newest first.
func (s *Service) List(ctx context.Context, customerID string) ([]domain.Order, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	orders, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// Get returns one order of the customer. Orders of other customers are not found.
func (s *Service) Get(ctx context.Context, customerID, id string) (*domain.Order, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, customerID, id)
}
