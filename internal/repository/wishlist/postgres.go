package wishlist

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context, customerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT product_id
FROM user_wishlists
WHERE customer_id::text = $1
ORDER BY created_at ASC
`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) Add(ctx context.Context, customerID, productID string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO user_wishlists (customer_id, product_id)
VALUES ($1::uuid, $2)
ON CONFLICT (customer_id, product_id) DO NOTHING
`, customerID, productID)
	return err
}

func (r *postgresRepo) Remove(ctx context.Context, customerID, productID string) error {
	_, err := r.pool.Exec(ctx, `
DELETE FROM user_wishlists
WHERE customer_id::text = $1 AND product_id = $2
`, customerID, productID)
	return err
}
