package shop

import (
	"context"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Shop, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, key, name, rating, created_at
FROM shops
ORDER BY rating DESC, name ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Shop
	for rows.Next() {
		var s domain.Shop
		if err := rows.Scan(&s.ID, &s.Key, &s.Name, &s.Rating, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Upsert(ctx context.Context, s domain.Shop) (*domain.Shop, error) {
	const q = `
INSERT INTO shops (key, name, rating)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE
SET name = EXCLUDED.name,
    rating = EXCLUDED.rating
RETURNING id::text, created_at
`
	out := s
	if err := r.pool.QueryRow(ctx, q, s.Key, s.Name, s.Rating).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}
