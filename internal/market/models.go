package market

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor
}

type User struct {
	ID        int64
	Name      string
	Role      Role
	CreatedAt time.Time
}

type Product struct {
	ID           int64
	Name         string
	Price        decimal.Decimal
	Stock        int
	PickupWindow string
	OwnerID      int64
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID         int64
	CustomerID int64
	ProductID  int64
	State      State
	PickupTime string
	Quantity   int
	// UnitPrice is the product price captured when the order was placed.
	// Later price changes never touch it.
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// CustomerOrderRow is the joined view a customer sees: their order plus the
// product and vendor names.
type CustomerOrderRow struct {
	OrderID    int64           `json:"id"`
	Product    string          `json:"product"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	State      State           `json:"state"`
	PickupTime string          `json:"pickup_time"`
	Vendor     string          `json:"vendor"`
	Customer   string          `json:"customer"`
}

// VendorOrderRow is the joined view a vendor sees over orders on its products.
type VendorOrderRow struct {
	OrderID    int64           `json:"id"`
	Customer   string          `json:"customer"`
	Product    string          `json:"product"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	State      State           `json:"state"`
	PickupTime string          `json:"pickup_time"`
}

// ProductTotal aggregates ordered quantity per product for one vendor.
type ProductTotal struct {
	Product       string `json:"product"`
	TotalQuantity int64  `json:"total_quantity"`
}
