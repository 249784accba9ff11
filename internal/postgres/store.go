package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cafeya/cafeya-orders/internal/market"
)

const uniqueViolation = "23505"

// Store implements market.Store on Postgres. PlaceOrder's serialization
// comes from the FOR UPDATE row lock in ProductForUpdate: the second
// placement on the same product blocks until the first commits, then sees
// the decremented stock.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Begin(ctx context.Context) (market.Tx, error) {
	t, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &tx{tx: t}, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (market.User, error) {
	var u market.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, role, created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.User{}, market.ErrUserNotFound
	}
	return u, err
}

func (s *Store) UserByName(ctx context.Context, name string) (market.User, error) {
	var u market.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, role, created_at FROM users WHERE name=$1`, name).
		Scan(&u.ID, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.User{}, market.ErrUserNotFound
	}
	return u, err
}

func (s *Store) AvailableProducts(ctx context.Context) ([]market.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, price, stock, pickup_window, owner_id, category, created_at, updated_at
		FROM products WHERE stock > 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Product
	for rows.Next() {
		var p market.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.PickupWindow,
			&p.OwnerID, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) OrderState(ctx context.Context, orderID int64) (market.State, error) {
	var st market.State
	err := s.pool.QueryRow(ctx, `SELECT state FROM orders WHERE id=$1`, orderID).Scan(&st)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", market.ErrOrderNotFound
	}
	return st, err
}

func (s *Store) OrdersForCustomer(ctx context.Context, customerID int64) ([]market.CustomerOrderRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, p.name, o.quantity, o.unit_price, o.state, o.pickup_time,
		       vendor.name, customer.name
		FROM orders o
		JOIN products p ON o.product_id = p.id
		JOIN users vendor ON p.owner_id = vendor.id
		JOIN users customer ON o.customer_id = customer.id
		WHERE o.customer_id = $1
		ORDER BY o.id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.CustomerOrderRow
	for rows.Next() {
		var r market.CustomerOrderRow
		if err := rows.Scan(&r.OrderID, &r.Product, &r.Quantity, &r.UnitPrice,
			&r.State, &r.PickupTime, &r.Vendor, &r.Customer); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) OrdersForVendor(ctx context.Context, vendorID int64) ([]market.VendorOrderRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, customer.name, p.name, o.quantity, o.unit_price, o.state, o.pickup_time
		FROM orders o
		JOIN products p ON o.product_id = p.id
		JOIN users customer ON o.customer_id = customer.id
		WHERE p.owner_id = $1
		ORDER BY o.id DESC`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.VendorOrderRow
	for rows.Next() {
		var r market.VendorOrderRow
		if err := rows.Scan(&r.OrderID, &r.Customer, &r.Product, &r.Quantity,
			&r.UnitPrice, &r.State, &r.PickupTime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) VendorProductTotals(ctx context.Context, vendorID int64) ([]market.ProductTotal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.name, SUM(o.quantity)
		FROM orders o
		JOIN products p ON o.product_id = p.id
		WHERE p.owner_id = $1
		GROUP BY p.name
		ORDER BY SUM(o.quantity) DESC, p.name`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.ProductTotal
	for rows.Next() {
		var t market.ProductTotal
		if err := rows.Scan(&t.Product, &t.TotalQuantity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *tx) InsertUser(ctx context.Context, name string, role market.Role) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO users(name, role) VALUES ($1, $2) RETURNING id`, name, role).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return 0, market.ErrDuplicateName
	}
	return id, err
}

func (t *tx) InsertProduct(ctx context.Context, p market.Product) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products(name, price, stock, pickup_window, owner_id, category)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Name, p.Price, p.Stock, p.PickupWindow, p.OwnerID, p.Category).Scan(&id)
	return id, err
}

func (t *tx) ProductForUpdate(ctx context.Context, id int64) (market.Product, error) {
	var p market.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, price, stock, pickup_window, owner_id, category
		FROM products WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.PickupWindow, &p.OwnerID, &p.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Product{}, market.ErrProductNotFound
	}
	return p, err
}

func (t *tx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return market.ErrProductNotFound
	}
	return nil
}

func (t *tx) InsertOrder(ctx context.Context, o market.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(customer_id, product_id, state, pickup_time, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		o.CustomerID, o.ProductID, o.State, o.PickupTime, o.Quantity, o.UnitPrice).Scan(&id)
	return id, err
}

func (t *tx) OrderVendor(ctx context.Context, orderID int64) (int64, error) {
	var owner int64
	err := t.tx.QueryRow(ctx, `
		SELECT p.owner_id FROM orders o
		JOIN products p ON o.product_id = p.id
		WHERE o.id = $1`, orderID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, market.ErrOrderNotFound
	}
	return owner, err
}

func (t *tx) SetOrderState(ctx context.Context, orderID int64, state market.State) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET state=$2 WHERE id=$1`, orderID, state)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return market.ErrOrderNotFound
	}
	return nil
}
