// Package wishlist mirrors wishlist membership between the guest store and
// the customer's remote wishlist.
package wishlist

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"
	wishrepo "storefront/internal/repository/wishlist"

	"golang.org/x/sync/singleflight"
)

// ErrAlreadyInWishlist is returned when adding a product that is already a member.
var ErrAlreadyInWishlist = errors.New("already in wishlist")

type Service struct {
	repo       wishrepo.Repository
	store      localstore.Store
	logger     *log.Logger
	guestTTL   time.Duration
	reconciles singleflight.Group
}

func New(repo wishrepo.Repository, store localstore.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, store: store, logger: logger, guestTTL: 30 * 24 * time.Hour}
}

// WithGuestTTL sets how long an untouched guest wishlist is kept.
func (s *Service) WithGuestTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.guestTTL = ttl
	}
	return s
}

// Open loads the membership of id. When the remote wishlist cannot be read the
// guest snapshot, if any, is used instead.
func (s *Service) Open(ctx context.Context, id domain.Identity, sink notice.Sink) *Synchronizer {
	w := &Synchronizer{svc: s, identity: id, sink: sink}
	if id.Authenticated() {
		ids, err := s.repo.List(ctx, id.CustomerID)
		if err == nil {
			w.ids = ids
			return w
		}
		s.logger.Printf("wishlist: load customer=%s error=%v", id.CustomerID, err)
		notice.Error(sink, "Could not load your wishlist")
	}
	if id.GuestID != "" {
		ids, err := s.loadGuest(ctx, id.GuestID)
		if err != nil {
			s.logger.Printf("wishlist: load guest=%s error=%v", id.GuestID, err)
		}
		w.ids = ids
	}
	return w
}

// Reconcile pushes product ids that exist only in the guest snapshot to the
// customer's remote wishlist, one insert at a time. Failed inserts are logged
// and stay in the snapshot; the snapshot is deleted once nothing is left.
func (s *Service) Reconcile(ctx context.Context, id domain.Identity, sink notice.Sink) (int, error) {
	if !id.Authenticated() || id.GuestID == "" {
		return 0, nil
	}
	v, err, _ := s.reconciles.Do(id.GuestID, func() (interface{}, error) {
		return s.reconcile(ctx, id)
	})
	pushed, _ := v.(int)
	if err != nil {
		notice.Error(sink, "Could not sync your wishlist")
	}
	return pushed, err
}

func (s *Service) reconcile(ctx context.Context, id domain.Identity) (int, error) {
	key := localstore.GuestWishlistKey(id.GuestID)
	var local []string
	found, err := s.store.Get(ctx, key, &local)
	if err != nil || !found {
		return 0, err
	}

	remote, err := s.repo.List(ctx, id.CustomerID)
	if err != nil {
		s.logger.Printf("wishlist: reconcile list customer=%s error=%v", id.CustomerID, err)
		return 0, err
	}
	inRemote := make(map[string]bool, len(remote))
	for _, pid := range remote {
		inRemote[pid] = true
	}

	var (
		pushed    int
		remaining []string
	)
	for _, pid := range local {
		if inRemote[pid] {
			continue
		}
		if err := s.repo.Add(ctx, id.CustomerID, pid); err != nil {
			s.logger.Printf("wishlist: reconcile push customer=%s product=%s error=%v", id.CustomerID, pid, err)
			remaining = append(remaining, pid)
			continue
		}
		inRemote[pid] = true
		pushed++
	}

	if len(remaining) == 0 {
		err = s.store.Delete(ctx, key)
	} else {
		err = s.store.Set(ctx, key, remaining, s.guestTTL)
	}
	if err != nil {
		s.logger.Printf("wishlist: reconcile save guest=%s error=%v", id.GuestID, err)
	}
	s.logger.Printf("wishlist: reconciled guest=%s customer=%s pushed=%d remaining=%d", id.GuestID, id.CustomerID, pushed, len(remaining))
	return pushed, nil
}

func (s *Service) loadGuest(ctx context.Context, guestID string) ([]string, error) {
	var ids []string
	if _, err := s.store.Get(ctx, localstore.GuestWishlistKey(guestID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Synchronizer is the wishlist of one identity for the lifetime of a request.
type Synchronizer struct {
	svc      *Service
	identity domain.Identity
	sink     notice.Sink

	mu  sync.Mutex
	ids []string
}

// Add makes productID a member. Adding an existing member issues no write.
func (w *Synchronizer) Add(ctx context.Context, productID string) error {
	if w.identity.Anonymous() {
		return domain.ErrUnauthenticated
	}
	if productID == "" {
		return domain.Validation("productId required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.index(productID) >= 0 {
		notice.Info(w.sink, "Already in your wishlist")
		return ErrAlreadyInWishlist
	}

	snapshot := append([]string(nil), w.ids...)
	w.ids = append(w.ids, productID)

	var err error
	if w.identity.Authenticated() {
		err = w.svc.repo.Add(ctx, w.identity.CustomerID, productID)
	} else {
		err = w.saveGuest(ctx)
	}
	if err != nil {
		return w.revert(snapshot, "add", productID, err, "Could not add to wishlist")
	}
	notice.Success(w.sink, "Added to wishlist")
	return nil
}

// Remove drops productID from the wishlist.
func (w *Synchronizer) Remove(ctx context.Context, productID string) error {
	if w.identity.Anonymous() {
		return domain.ErrUnauthenticated
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.index(productID)
	if idx < 0 {
		return domain.ErrNotFound
	}
	snapshot := append([]string(nil), w.ids...)
	w.ids = append(w.ids[:idx], w.ids[idx+1:]...)

	var err error
	if w.identity.Authenticated() {
		err = w.svc.repo.Remove(ctx, w.identity.CustomerID, productID)
	} else {
		err = w.saveGuest(ctx)
	}
	if err != nil {
		return w.revert(snapshot, "remove", productID, err, "Could not remove from wishlist")
	}
	notice.Info(w.sink, "Removed from wishlist")
	return nil
}

func (w *Synchronizer) Contains(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index(productID) >= 0
}

// IDs returns the members in insertion order.
func (w *Synchronizer) IDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.ids))
	copy(out, w.ids)
	return out
}

func (w *Synchronizer) revert(snapshot []string, action, productID string, err error, msg string) error {
	w.ids = snapshot
	w.svc.logger.Printf("wishlist: %s customer=%s guest=%s product=%s error=%v", action, w.identity.CustomerID, w.identity.GuestID, productID, err)
	notice.Error(w.sink, msg)
	return err
}

func (w *Synchronizer) saveGuest(ctx context.Context) error {
	return w.svc.store.Set(ctx, localstore.GuestWishlistKey(w.identity.GuestID), w.ids, w.svc.guestTTL)
}

func (w *Synchronizer) index(productID string) int {
	for i, id := range w.ids {
		if id == productID {
			return i
		}
	}
	return -1
}
