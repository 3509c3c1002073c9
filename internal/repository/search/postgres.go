package search

import (
	"context"
	"strings"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) RecordHistory(ctx context.Context, customerID, query string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO search_history (customer_id, query, searched_at)
VALUES ($1::uuid, $2, now())
ON CONFLICT (customer_id, query) DO UPDATE
SET searched_at = EXCLUDED.searched_at
`, customerID, normalize(query))
	return err
}

func (r *postgresRepo) ListHistory(ctx context.Context, customerID string, limit int) ([]domain.SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
SELECT query, searched_at
FROM search_history
WHERE customer_id::text = $1
ORDER BY searched_at DESC
LIMIT $2
`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SearchHistoryEntry
	for rows.Next() {
		var e domain.SearchHistoryEntry
		if err := rows.Scan(&e.Query, &e.SearchedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *postgresRepo) ClearHistory(ctx context.Context, customerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM search_history WHERE customer_id::text = $1`, customerID)
	return err
}

func (r *postgresRepo) IncrementPopular(ctx context.Context, term string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO popular_search_terms (term, count, updated_at)
VALUES ($1, 1, now())
ON CONFLICT (term) DO UPDATE
SET count = popular_search_terms.count + 1,
    updated_at = now()
`, normalize(term))
	return err
}

func (r *postgresRepo) Popular(ctx context.Context, limit int) ([]domain.PopularTerm, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
SELECT term, count
FROM popular_search_terms
ORDER BY count DESC, updated_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PopularTerm
	for rows.Next() {
		var p domain.PopularTerm
		if err := rows.Scan(&p.Term, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
