package market

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName   = errors.New("user name already exists")
	ErrInvalidRole     = errors.New("role must be customer or vendor")
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")

	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidStock    = errors.New("stock must not be negative")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidState    = errors.New("state must be pending, completed or cancelled")

	// ErrInvalidOwner: product creation with an owner that is missing or not
	// a vendor.
	ErrInvalidOwner = errors.New("owner is not a vendor")

	// ErrNotVendor: vendor-scoped reads requested by a non-vendor id.
	ErrNotVendor = errors.New("not a vendor")

	// ErrUnauthorized covers both "order does not exist" and "order belongs
	// to another vendor" so the engine never leaks order existence to
	// non-owners.
	ErrUnauthorized = errors.New("order not found or not owned by requesting vendor")
)

// InsufficientStockError carries the current stock so callers can report it.
type InsufficientStockError struct {
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Product, e.Available)
}
