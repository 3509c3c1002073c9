// Package localstore persists per-guest and per-session state (guest carts,
// guest wishlists, recent searches, theme, checkout progress) outside the
// relational store. Values are JSON encoded.
package localstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("local store unavailable")

type Store interface {
	// Get decodes the value at key into dst. ok is false when the key is absent.
	Get(ctx context.Context, key string, dst any) (ok bool, err error)
	// Set stores v at key. A zero ttl keeps the value until deleted.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func GuestCartKey(guestID string) string      { return "guest:" + guestID + ":cart" }
func GuestWishlistKey(guestID string) string  { return "guest:" + guestID + ":wishlist" }
func RecentSearchesKey(session string) string { return "session:" + session + ":recent_searches" }
func ThemeKey(session string) string          { return "session:" + session + ":theme" }
func CheckoutKey(session string) string       { return "session:" + session + ":checkout" }
func GuestTokenKey(token string) string       { return "anon:" + token }
func OAuthStateKey(state string) string       { return "oauth_state:" + state }
