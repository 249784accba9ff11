package market

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Service is the order workflow engine. All writes go through Store
// transactions; the decrement+insert pair in PlaceOrder is atomic on every
// backend.
type Service struct {
	Store Store
}

func NewService(store Store) *Service { return &Service{Store: store} }

func (s *Service) Register(ctx context.Context, name string, role Role) (User, error) {
	name = strings.TrimSpace(name)
	if !role.Valid() {
		return User{}, ErrInvalidRole
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := tx.InsertUser(ctx, name, role)
	if err != nil {
		return User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return User{ID: id, Name: name, Role: role}, nil
}

func (s *Service) Login(ctx context.Context, name string) (User, error) {
	return s.Store.UserByName(ctx, name)
}

func (s *Service) UserByID(ctx context.Context, id int64) (User, error) {
	return s.Store.UserByID(ctx, id)
}

type AddProductInput struct {
	Name         string
	Price        decimal.Decimal
	Stock        int
	PickupWindow string
	OwnerID      int64
	Category     string
}

func (s *Service) AddProduct(ctx context.Context, in AddProductInput) (int64, error) {
	if in.Price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	if in.Stock < 0 {
		return 0, ErrInvalidStock
	}
	owner, err := s.Store.UserByID(ctx, in.OwnerID)
	if err != nil || owner.Role != RoleVendor {
		return 0, ErrInvalidOwner
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := tx.InsertProduct(ctx, Product{
		Name:         in.Name,
		Price:        in.Price,
		Stock:        in.Stock,
		PickupWindow: in.PickupWindow,
		OwnerID:      in.OwnerID,
		Category:     in.Category,
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) AvailableProducts(ctx context.Context) ([]Product, error) {
	return s.Store.AvailableProducts(ctx)
}

type PlaceOrderInput struct {
	CustomerID int64
	ProductID  int64
	PickupTime string
	Quantity   int
}

type PlacedOrder struct {
	OrderID        int64
	UnitPrice      decimal.Decimal
	RemainingStock int
}

// PlaceOrder runs the check-and-decrement and the order insert in one
// transaction. ProductForUpdate holds the product row exclusively, so two
// concurrent placements on the same product cannot both pass the stock check.
// Any failure after the decrement rolls the whole transaction back.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlacedOrder, error) {
	if in.Quantity <= 0 {
		return PlacedOrder{}, ErrInvalidQuantity
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return PlacedOrder{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := tx.ProductForUpdate(ctx, in.ProductID)
	if err != nil {
		return PlacedOrder{}, err
	}
	if p.Stock < in.Quantity {
		return PlacedOrder{}, &InsufficientStockError{
			Product:   p.Name,
			Requested: in.Quantity,
			Available: p.Stock,
		}
	}
	if err := tx.DecrementStock(ctx, p.ID, in.Quantity); err != nil {
		return PlacedOrder{}, err
	}
	orderID, err := tx.InsertOrder(ctx, Order{
		CustomerID: in.CustomerID,
		ProductID:  in.ProductID,
		State:      StatePending,
		PickupTime: in.PickupTime,
		Quantity:   in.Quantity,
		UnitPrice:  p.Price,
	})
	if err != nil {
		return PlacedOrder{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PlacedOrder{}, err
	}
	return PlacedOrder{
		OrderID:        orderID,
		UnitPrice:      p.Price,
		RemainingStock: p.Stock - in.Quantity,
	}, nil
}

// UpdateOrderState sets the order state after checking that the requesting
// vendor owns the order's product. A missing order and a foreign order both
// come back as ErrUnauthorized. Cancelling deliberately does not restore
// stock.
func (s *Service) UpdateOrderState(ctx context.Context, orderID int64, newState State, vendorID int64) error {
	if !newState.Valid() {
		return ErrInvalidState
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	owner, err := tx.OrderVendor(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if owner != vendorID {
		return ErrUnauthorized
	}
	if err := tx.SetOrderState(ctx, orderID, newState); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) OrderState(ctx context.Context, orderID int64) (State, error) {
	return s.Store.OrderState(ctx, orderID)
}

func (s *Service) OrdersForCustomer(ctx context.Context, customerID int64) ([]CustomerOrderRow, error) {
	return s.Store.OrdersForCustomer(ctx, customerID)
}

func (s *Service) OrdersForVendor(ctx context.Context, vendorID int64) ([]VendorOrderRow, error) {
	if err := s.requireVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.Store.OrdersForVendor(ctx, vendorID)
}

func (s *Service) VendorProductTotals(ctx context.Context, vendorID int64) ([]ProductTotal, error) {
	if err := s.requireVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.Store.VendorProductTotals(ctx, vendorID)
}

func (s *Service) requireVendor(ctx context.Context, id int64) error {
	u, err := s.Store.UserByID(ctx, id)
	if err != nil || u.Role != RoleVendor {
		return ErrNotVendor
	}
	return nil
}
