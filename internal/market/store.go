package market

import "context"

// Store is the persistence boundary for the workflow engine. Implementations
// live in internal/postgres and internal/memstore. Reads outside a
// transaction see committed state only.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	UserByID(ctx context.Context, id int64) (User, error)
	UserByName(ctx context.Context, name string) (User, error)

	// AvailableProducts returns products with stock > 0, id ascending.
	AvailableProducts(ctx context.Context) ([]Product, error)

	OrderState(ctx context.Context, orderID int64) (State, error)

	// Joined read-only views, order id descending (most recent first).
	OrdersForCustomer(ctx context.Context, customerID int64) ([]CustomerOrderRow, error)
	OrdersForVendor(ctx context.Context, vendorID int64) ([]VendorOrderRow, error)

	// VendorProductTotals sums ordered quantity per product name for one
	// vendor, largest first. Feeds the reporting adapters.
	VendorProductTotals(ctx context.Context, vendorID int64) ([]ProductTotal, error)
}

// Tx is a single transaction. ProductForUpdate must lock the product row
// (or an equivalent) until commit/rollback so the check-and-decrement in
// PlaceOrder is serialized per product. Rollback after Commit is a no-op.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	InsertUser(ctx context.Context, name string, role Role) (int64, error)
	InsertProduct(ctx context.Context, p Product) (int64, error)

	ProductForUpdate(ctx context.Context, id int64) (Product, error)
	DecrementStock(ctx context.Context, productID int64, qty int) error
	InsertOrder(ctx context.Context, o Order) (int64, error)

	// OrderVendor resolves the owning vendor of an order's product.
	// Returns ErrOrderNotFound when the order is absent.
	OrderVendor(ctx context.Context, orderID int64) (int64, error)
	SetOrderState(ctx context.Context, orderID int64, s State) error
}
