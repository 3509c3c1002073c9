package order

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id::text, order_number, customer_id::text, status, payment_status, payment_reference,
total_cents, currency, shipping_address, created_at`

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

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out := o
	err = tx.QueryRow(ctx, `
INSERT INTO orders (order_number, customer_id, status, payment_status, payment_reference, total_cents, currency, shipping_address)
VALUES ($1, $2::uuid, $3, $4, $5, $6, $7, $8)
RETURNING id::text, created_at
`, o.OrderNumber, o.CustomerID, o.Status, o.PaymentStatus, o.PaymentReference, o.TotalCents, o.Currency, o.ShippingAddress).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: insert order number=%s error=%v", o.OrderNumber, err)
		return nil, err
	}

	out.Items = make([]domain.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		item.OrderID = out.ID
		if err := tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, product_id, name, unit_price_cents, quantity, color, size)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
RETURNING id::text
`, out.ID, item.ProductID, item.Name, item.UnitPriceCents, item.Quantity, item.Color, item.Size).Scan(&item.ID); err != nil {
			r.logger.Printf("order repo: insert item order=%s product=%s error=%v", out.ID, item.ProductID, err)
			return nil, err
		}
		out.Items = append(out.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created id=%s number=%s items=%d", out.ID, out.OrderNumber, len(out.Items))
	return &out, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+`
FROM orders
WHERE customer_id::text = $1
ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.items(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, customerID, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+`
FROM orders
WHERE customer_id::text = $1 AND id::text = $2`, customerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *postgresRepo) items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, order_id::text, product_id, name, unit_price_cents, quantity, color, size
FROM order_items
WHERE order_id::text = $1
ORDER BY id
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.UnitPriceCents, &it.Quantity, &it.Color, &it.Size); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentReference,
		&o.TotalCents,
		&o.Currency,
		&o.ShippingAddress,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
