package localstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type sample struct {
	IDs []string `json:"ids"`
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := GuestWishlistKey("g-test")

	var got sample
	ok, err := s.Get(ctx, key, &got)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, key, sample{IDs: []string{"a", "b"}}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, err = s.Get(ctx, key, &got)
	if err != nil || !ok || len(got.IDs) != 2 {
		t.Fatalf("unexpected get ok=%v err=%v value=%+v", ok, err, got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = s.Get(ctx, key, &got)
	if ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	if err := m.Set(ctx, "anon:tok", "g1", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	now = now.Add(2 * time.Hour)

	var v string
	if ok, _ := m.Get(ctx, "anon:tok", &v); ok {
		t.Fatalf("expected expired entry to be gone")
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	exerciseStore(t, NewRedis(client))
}

func TestKeys(t *testing.T) {
	if GuestCartKey("g1") != "guest:g1:cart" {
		t.Fatalf("unexpected cart key %q", GuestCartKey("g1"))
	}
	if RecentSearchesKey("s1") != "session:s1:recent_searches" {
		t.Fatalf("unexpected recent key %q", RecentSearchesKey("s1"))
	}
}
