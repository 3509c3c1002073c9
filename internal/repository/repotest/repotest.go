// Package repotest provides the Postgres fixture shared by repository integration tests.
package repotest

import (
	"context"
	"os"
	"testing"

	"storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool connects to TEST_DB_DSN, applies migrations and truncates every table.
// Tests are skipped when TEST_DB_DSN is not set.
func Pool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `
TRUNCATE popular_search_terms, search_history, order_items, orders, user_wishlists, cart_items,
         user_addresses, tokens, customers, products, shops, categories
RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

// InsertProduct creates a minimal product row and returns its id.
func InsertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, key, name string, priceCents int64) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO products (key, sku, name, price_cents, currency)
VALUES ($1, upper($1), $2, $3, 'INR')
RETURNING id::text`, key, name, priceCents).Scan(&id)
	if err != nil {
		t.Fatalf("insert product %s: %v", key, err)
	}
	return id
}

// InsertCustomer creates a customer row and returns its id.
func InsertCustomer(ctx context.Context, t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO customers (email, password_hash) VALUES ($1, 'x') RETURNING id::text`, email).Scan(&id)
	if err != nil {
		t.Fatalf("insert customer %s: %v", email, err)
	}
	return id
}
