package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `
id::text, key, sku, name, COALESCE(description, ''), price_cents, sale_price_cents, currency,
COALESCE(category_id::text, ''), COALESCE(shop_id::text, ''), brand, rating, review_count,
in_stock, fast_delivery, deal_of_day, fulfilled, images, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + productColumns + `
FROM products
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	result, err := r.query(ctx, q, limit, offset)
	if err != nil {
		r.logger.Printf("product repo: list limit=%d offset=%d error=%v", limit, offset, err)
		return nil, err
	}
	r.logger.Printf("product repo: list limit=%d offset=%d count=%d", limit, offset, len(result))
	return result, nil
}

// Search returns products whose name contains f.Query (case-insensitive) and
// that pass the category, shop and price filters, newest first. An empty query
// matches every product.
func (r *postgresRepo) Search(ctx context.Context, f SearchFilter) ([]domain.Product, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	q := `SELECT ` + productColumns + `
FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
  AND ($2 = '' OR category_id::text = $2)
  AND ($3 = '' OR shop_id::text = $3)
  AND COALESCE(sale_price_cents, price_cents) >= $4
  AND ($5 = 0 OR COALESCE(sale_price_cents, price_cents) <= $5)
ORDER BY created_at DESC
LIMIT $6`
	query := strings.TrimSpace(f.Query)
	result, err := r.query(ctx, q, escapeLike(query), strings.TrimSpace(f.CategoryID), strings.TrimSpace(f.ShopID),
		f.MinPriceCents, f.MaxPriceCents, limit)
	if err != nil {
		r.logger.Printf("product repo: search query=%q error=%v", query, err)
		return nil, err
	}
	r.logger.Printf("product repo: search query=%q category=%s shop=%s count=%d", query, f.CategoryID, f.ShopID, len(result))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + `
FROM products
WHERE id::text = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (key, sku, name, description, price_cents, sale_price_cents, currency,
                      category_id, shop_id, brand, rating, review_count, in_stock, fast_delivery,
                      deal_of_day, fulfilled, images)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, '')::uuid, NULLIF($9, '')::uuid, $10, $11, $12,
        $13, $14, $15, $16, $17)
ON CONFLICT (key) DO UPDATE SET
    sku = EXCLUDED.sku,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    sale_price_cents = EXCLUDED.sale_price_cents,
    currency = EXCLUDED.currency,
    category_id = EXCLUDED.category_id,
    shop_id = EXCLUDED.shop_id,
    brand = EXCLUDED.brand,
    rating = EXCLUDED.rating,
    review_count = EXCLUDED.review_count,
    in_stock = EXCLUDED.in_stock,
    fast_delivery = EXCLUDED.fast_delivery,
    deal_of_day = EXCLUDED.deal_of_day,
    fulfilled = EXCLUDED.fulfilled,
    images = EXCLUDED.images
RETURNING id::text, created_at
`
	images := product.Images
	if images == nil {
		images = []string{}
	}
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.Key,
		product.SKU,
		product.Name,
		product.Description,
		product.PriceCents,
		product.SalePriceCents,
		product.Currency,
		product.CategoryID,
		product.ShopID,
		product.Brand,
		product.Rating,
		product.ReviewCount,
		product.InStock,
		product.FastDelivery,
		product.DealOfDay,
		product.Fulfilled,
		images,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert key=%s error=%v", product.Key, err)
		return nil, fmt.Errorf("upsert product %s: %w", product.Key, err)
	}
	r.logger.Printf("product repo: upserted key=%s id=%s", res.Key, res.ID)
	return &res, nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Key,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.PriceCents,
		&p.SalePriceCents,
		&p.Currency,
		&p.CategoryID,
		&p.ShopID,
		&p.Brand,
		&p.Rating,
		&p.ReviewCount,
		&p.InStock,
		&p.FastDelivery,
		&p.DealOfDay,
		&p.Fulfilled,
		&p.Images,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
