package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		role       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		price         NUMERIC(12,2) NOT NULL,
		stock         INT NOT NULL CHECK (stock >= 0),
		pickup_window TEXT NOT NULL DEFAULT '',
		owner_id      BIGINT NOT NULL REFERENCES users(id),
		category      TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL REFERENCES users(id),
		product_id  BIGINT NOT NULL REFERENCES products(id),
		state       TEXT NOT NULL DEFAULT 'pending',
		pickup_time TEXT NOT NULL DEFAULT '',
		quantity    INT NOT NULL CHECK (quantity > 0),
		unit_price  NUMERIC(12,2) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_product ON orders(product_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id)`,
}

// EnsureSchema creates the tables on startup. Statements are idempotent so
// repeated boots are safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
