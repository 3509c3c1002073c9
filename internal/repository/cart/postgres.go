package cart

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

func (r *postgresRepo) ListLines(ctx context.Context, customerID string) ([]domain.CartLine, error) {
	const q = `
SELECT ci.id::text, ci.quantity, ci.color, ci.size, ci.created_at,
       p.id::text, p.key, p.sku, p.name, COALESCE(p.description, ''), p.price_cents, p.sale_price_cents,
       p.currency, COALESCE(p.category_id::text, ''), COALESCE(p.shop_id::text, ''), p.brand, p.rating,
       p.review_count, p.in_stock, p.fast_delivery, p.deal_of_day, p.fulfilled, p.images, p.created_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.customer_id::text = $1
ORDER BY ci.created_at ASC, ci.id ASC
`
	rows, err := r.pool.Query(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var (
			line        domain.CartLine
			color, size string
			p           = &line.Product
		)
		if err := rows.Scan(
			&line.ID, &line.Quantity, &color, &size, &line.CreatedAt,
			&p.ID, &p.Key, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.SalePriceCents,
			&p.Currency, &p.CategoryID, &p.ShopID, &p.Brand, &p.Rating,
			&p.ReviewCount, &p.InStock, &p.FastDelivery, &p.DealOfDay, &p.Fulfilled, &p.Images, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		line.Color = optional(color)
		line.Size = optional(size)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) AddLine(ctx context.Context, customerID string, product domain.Product, color, size *string, quantity int) (*domain.CartLine, error) {
	const q = `
INSERT INTO cart_items (customer_id, product_id, color, size, quantity)
VALUES ($1::uuid, $2::uuid, $3, $4, $5)
ON CONFLICT (customer_id, product_id, color, size) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING id::text, quantity, created_at
`
	line := domain.CartLine{Product: product, Color: color, Size: size}
	if err := r.pool.QueryRow(ctx, q, customerID, product.ID, deref(color), deref(size), quantity).
		Scan(&line.ID, &line.Quantity, &line.CreatedAt); err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, customerID, lineID string, quantity int) error {
	if quantity <= 0 {
		return r.DeleteLine(ctx, customerID, lineID)
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_items
SET quantity = $3
WHERE customer_id::text = $1 AND id::text = $2
`, customerID, lineID, quantity)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteLine(ctx context.Context, customerID, lineID string) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_items
WHERE customer_id::text = $1 AND id::text = $2
`, customerID, lineID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, customerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE customer_id::text = $1`, customerID)
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
