package shop

import (
	"context"

	"storefront/internal/domain"
	shoprepo "storefront/internal/repository/shop"
)

type Service struct {
	repo shoprepo.Repository
}

func New(repo shoprepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns shops, best rated first.
func (s *Service) List(ctx context.Context) ([]domain.Shop, error) {
	return s.repo.List(ctx)
}
