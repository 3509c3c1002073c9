// Package cart keeps a shopper's cart consistent across the guest store and
// the customer's remote cart, and moves guest carts over at sign-in.
package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"
	cartrepo "storefront/internal/repository/cart"

	"golang.org/x/sync/singleflight"
)

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	repo       cartrepo.Repository
	products   productReader
	store      localstore.Store
	logger     *log.Logger
	guestTTL   time.Duration
	migrations singleflight.Group
}

func New(repo cartrepo.Repository, products productReader, store localstore.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		repo:     repo,
		products: products,
		store:    store,
		logger:   logger,
		guestTTL: 30 * 24 * time.Hour,
	}
}

// WithGuestTTL sets how long an untouched guest cart is kept.
func (s *Service) WithGuestTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.guestTTL = ttl
	}
	return s
}

// Open loads the cart backing identity: the remote cart for customers, the
// guest cart otherwise. A load failure yields an empty cart and an error notice.
func (s *Service) Open(ctx context.Context, id domain.Identity, sink notice.Sink) *Engine {
	e := &Engine{svc: s, identity: id, sink: sink}
	switch {
	case id.Authenticated():
		lines, err := s.repo.ListLines(ctx, id.CustomerID)
		if err != nil {
			s.logger.Printf("cart: load customer=%s error=%v", id.CustomerID, err)
			notice.Error(sink, "Could not load your cart")
			return e
		}
		e.lines = lines
	case id.GuestID != "":
		var lines []domain.CartLine
		if _, err := s.store.Get(ctx, localstore.GuestCartKey(id.GuestID), &lines); err != nil {
			s.logger.Printf("cart: load guest=%s error=%v", id.GuestID, err)
			notice.Error(sink, "Could not load your cart")
			return e
		}
		e.lines = lines
	}
	return e
}

// Migrate moves the guest cart of id.GuestID into the customer's remote cart.
// Colliding lines have their quantities summed. The guest cart is deleted
// afterwards whether or not every line made it, so a second call is a no-op.
// Concurrent calls for the same guest share one run.
func (s *Service) Migrate(ctx context.Context, id domain.Identity, sink notice.Sink) (int, error) {
	if !id.Authenticated() || id.GuestID == "" {
		return 0, nil
	}
	v, err, _ := s.migrations.Do(id.GuestID, func() (interface{}, error) {
		return s.migrate(ctx, id)
	})
	moved, _ := v.(int)
	switch {
	case err != nil:
		notice.Error(sink, "Some items from your guest cart could not be moved")
	case moved > 0:
		notice.Success(sink, fmt.Sprintf("Moved %d item(s) from your guest cart", moved))
	}
	return moved, err
}

func (s *Service) migrate(ctx context.Context, id domain.Identity) (int, error) {
	key := localstore.GuestCartKey(id.GuestID)
	var lines []domain.CartLine
	found, err := s.store.Get(ctx, key, &lines)
	if err != nil {
		s.logger.Printf("cart: migrate read guest=%s error=%v", id.GuestID, err)
		return 0, err
	}
	if !found {
		return 0, nil
	}

	var (
		moved    int
		firstErr error
	)
	for _, line := range lines {
		if _, err := s.repo.AddLine(ctx, id.CustomerID, line.Product, line.Color, line.Size, line.Quantity); err != nil {
			s.logger.Printf("cart: migrate line guest=%s customer=%s product=%s error=%v", id.GuestID, id.CustomerID, line.Product.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		moved++
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Printf("cart: migrate delete guest=%s error=%v", id.GuestID, err)
		if firstErr == nil {
			firstErr = err
		}
	}
	s.logger.Printf("cart: migrated guest=%s customer=%s lines=%d moved=%d", id.GuestID, id.CustomerID, len(lines), moved)
	return moved, firstErr
}

func (s *Service) lookupProduct(ctx context.Context, productID string) (*domain.Product, error) {
	if s.products == nil {
		return nil, errors.New("product repository unavailable")
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Validation("product not found")
		}
		return nil, err
	}
	return p, nil
}
