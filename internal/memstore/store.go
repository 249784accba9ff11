// Package memstore is an in-memory market.Store. It backs the test suite and
// the STORAGE_DRIVER=memory mode for local runs without Postgres.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cafeya/cafeya-orders/internal/market"
)

var errTxClosed = errors.New("memstore: transaction already closed")

type Store struct {
	mu sync.RWMutex

	users      map[int64]market.User
	idsByName  map[string]int64
	products   map[int64]*market.Product
	orders     map[int64]*market.Order
	userSeq    int64
	productSeq int64
	orderSeq   int64
}

func New() *Store {
	return &Store{
		users:     make(map[int64]market.User),
		idsByName: make(map[string]int64),
		products:  make(map[int64]*market.Product),
		orders:    make(map[int64]*market.Order),
	}
}

// Begin takes the store-wide write lock for the life of the transaction.
// That is stronger isolation than the per-product lock the engine needs, and
// at in-process scale the difference does not matter.
func (s *Store) Begin(ctx context.Context) (market.Tx, error) {
	s.mu.Lock()
	return &tx{s: s}, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (market.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return market.User{}, market.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) UserByName(ctx context.Context, name string) (market.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idsByName[name]
	if !ok {
		return market.User{}, market.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) AvailableProducts(ctx context.Context) ([]market.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Stock > 0 {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) OrderState(ctx context.Context, orderID int64) (market.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return "", market.ErrOrderNotFound
	}
	return o.State, nil
}

func (s *Store) OrdersForCustomer(ctx context.Context, customerID int64) ([]market.CustomerOrderRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []market.CustomerOrderRow
	for _, o := range s.orders {
		if o.CustomerID != customerID {
			continue
		}
		p, ok := s.products[o.ProductID]
		if !ok {
			continue
		}
		out = append(out, market.CustomerOrderRow{
			OrderID:    o.ID,
			Product:    p.Name,
			Quantity:   o.Quantity,
			UnitPrice:  o.UnitPrice,
			State:      o.State,
			PickupTime: o.PickupTime,
			Vendor:     s.users[p.OwnerID].Name,
			Customer:   s.users[o.CustomerID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID > out[j].OrderID })
	return out, nil
}

func (s *Store) OrdersForVendor(ctx context.Context, vendorID int64) ([]market.VendorOrderRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []market.VendorOrderRow
	for _, o := range s.orders {
		p, ok := s.products[o.ProductID]
		if !ok || p.OwnerID != vendorID {
			continue
		}
		out = append(out, market.VendorOrderRow{
			OrderID:    o.ID,
			Customer:   s.users[o.CustomerID].Name,
			Product:    p.Name,
			Quantity:   o.Quantity,
			UnitPrice:  o.UnitPrice,
			State:      o.State,
			PickupTime: o.PickupTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID > out[j].OrderID })
	return out, nil
}

func (s *Store) VendorProductTotals(ctx context.Context, vendorID int64) ([]market.ProductTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sums := make(map[string]int64)
	for _, o := range s.orders {
		p, ok := s.products[o.ProductID]
		if !ok || p.OwnerID != vendorID {
			continue
		}
		sums[p.Name] += int64(o.Quantity)
	}
	out := make([]market.ProductTotal, 0, len(sums))
	for name, n := range sums {
		out = append(out, market.ProductTotal{Product: name, TotalQuantity: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].Product < out[j].Product
	})
	return out, nil
}

// tx mutates the store in place and keeps an undo journal so Rollback can
// restore every touched record.
type tx struct {
	s    *Store
	done bool
	undo []func()
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxClosed
	}
	t.done = true
	t.undo = nil
	t.s.mu.Unlock()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.done = true
	t.undo = nil
	t.s.mu.Unlock()
	return nil
}

func (t *tx) InsertUser(ctx context.Context, name string, role market.Role) (int64, error) {
	if _, exists := t.s.idsByName[name]; exists {
		return 0, market.ErrDuplicateName
	}
	t.s.userSeq++
	id := t.s.userSeq
	t.s.users[id] = market.User{ID: id, Name: name, Role: role, CreatedAt: time.Now()}
	t.s.idsByName[name] = id
	t.undo = append(t.undo, func() {
		delete(t.s.users, id)
		delete(t.s.idsByName, name)
	})
	return id, nil
}

func (t *tx) InsertProduct(ctx context.Context, p market.Product) (int64, error) {
	t.s.productSeq++
	p.ID = t.s.productSeq
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	t.s.products[p.ID] = &p
	id := p.ID
	t.undo = append(t.undo, func() { delete(t.s.products, id) })
	return id, nil
}

func (t *tx) ProductForUpdate(ctx context.Context, id int64) (market.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return market.Product{}, market.ErrProductNotFound
	}
	return *p, nil
}

func (t *tx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return market.ErrProductNotFound
	}
	if p.Stock < qty {
		// mirrors the CHECK (stock >= 0) constraint in postgres
		return market.ErrInvalidStock
	}
	prevStock, prevUpdated := p.Stock, p.UpdatedAt
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	t.undo = append(t.undo, func() {
		p.Stock = prevStock
		p.UpdatedAt = prevUpdated
	})
	return nil
}

func (t *tx) InsertOrder(ctx context.Context, o market.Order) (int64, error) {
	t.s.orderSeq++
	o.ID = t.s.orderSeq
	o.CreatedAt = time.Now()
	t.s.orders[o.ID] = &o
	id := o.ID
	t.undo = append(t.undo, func() { delete(t.s.orders, id) })
	return id, nil
}

func (t *tx) OrderVendor(ctx context.Context, orderID int64) (int64, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return 0, market.ErrOrderNotFound
	}
	p, ok := t.s.products[o.ProductID]
	if !ok {
		return 0, market.ErrOrderNotFound
	}
	return p.OwnerID, nil
}

func (t *tx) SetOrderState(ctx context.Context, orderID int64, state market.State) error {
	o, ok := t.s.orders[orderID]
	if !ok {
		return market.ErrOrderNotFound
	}
	prev := o.State
	o.State = state
	t.undo = append(t.undo, func() { o.State = prev })
	return nil
}
