package session

import (
	"context"
	"time"

	"storefront/internal/localstore"

	"github.com/google/uuid"
)

// IssueGuest creates an anonymous identity. The token is what the client
// keeps; the guest id namespaces its cart and wishlist.
func (s *Service) IssueGuest(ctx context.Context) (token, guestID string, err error) {
	token, err = randomToken()
	if err != nil {
		return "", "", err
	}
	guestID = uuid.NewString()
	if err := s.store.Set(ctx, localstore.GuestTokenKey(token), guestID, s.guestTTL); err != nil {
		s.logger.Printf("session: issue guest error=%v", err)
		return "", "", err
	}
	return token, guestID, nil
}

// LookupGuest resolves a guest token to its guest id.
func (s *Service) LookupGuest(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	var guestID string
	ok, err := s.store.Get(ctx, localstore.GuestTokenKey(token), &guestID)
	if err != nil {
		return "", err
	}
	if !ok || guestID == "" {
		return "", ErrInvalidToken
	}
	return guestID, nil
}

// GuestTTL is how long a guest token stays valid.
func (s *Service) GuestTTL() time.Duration {
	return s.guestTTL
}
