package address

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

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Address, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, customer_id::text, name, phone, line, city, state, postal_code, country, created_at
FROM user_addresses
WHERE customer_id::text = $1
ORDER BY created_at DESC
`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Name, &a.Phone, &a.Line, &a.City, &a.State, &a.PostalCode, &a.Country, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	const q = `
INSERT INTO user_addresses (customer_id, name, phone, line, city, state, postal_code, country)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
RETURNING id::text, created_at
`
	out := a
	if err := r.pool.QueryRow(ctx, q, a.CustomerID, a.Name, a.Phone, a.Line, a.City, a.State, a.PostalCode, a.Country).
		Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}
