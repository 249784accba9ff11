package market_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafeya/cafeya-orders/internal/market"
	"github.com/cafeya/cafeya-orders/internal/memstore"
)

func newService(t *testing.T) *market.Service {
	t.Helper()
	return market.NewService(memstore.New())
}

func mustRegister(t *testing.T, s *market.Service, name string, role market.Role) market.User {
	t.Helper()
	u, err := s.Register(context.Background(), name, role)
	require.NoError(t, err)
	return u
}

func mustAddProduct(t *testing.T, s *market.Service, name, price string, stock int, owner int64) int64 {
	t.Helper()
	id, err := s.AddProduct(context.Background(), market.AddProductInput{
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Stock:        stock,
		PickupWindow: "08:00-12:00",
		OwnerID:      owner,
		Category:     "Bebida",
	})
	require.NoError(t, err)
	return id
}

func availableStock(t *testing.T, s *market.Service, productID int64) int {
	t.Helper()
	ps, err := s.AvailableProducts(context.Background())
	require.NoError(t, err)
	for _, p := range ps {
		if p.ID == productID {
			return p.Stock
		}
	}
	return 0
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)
	assert.Equal(t, int64(1), vendor.ID)

	customer := mustRegister(t, svc, "Ana", market.RoleCustomer)
	assert.Equal(t, int64(2), customer.ID)

	got, err := svc.Login(ctx, "Ana")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)
	assert.Equal(t, market.RoleCustomer, got.Role)

	_, err = svc.Login(ctx, "nobody")
	assert.ErrorIs(t, err, market.ErrUserNotFound)
}

func TestRegisterDuplicateName(t *testing.T) {
	svc := newService(t)
	mustRegister(t, svc, "Ana", market.RoleCustomer)

	_, err := svc.Register(context.Background(), "Ana", market.RoleCustomer)
	assert.ErrorIs(t, err, market.ErrDuplicateName)
}

func TestRegisterInvalidRole(t *testing.T) {
	svc := newService(t)
	_, err := svc.Register(context.Background(), "Bob", market.Role("admin"))
	assert.ErrorIs(t, err, market.ErrInvalidRole)
}

func TestAddProductValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)
	customer := mustRegister(t, svc, "Ana", market.RoleCustomer)

	tests := []struct {
		name    string
		in      market.AddProductInput
		wantErr error
	}{
		{
			name:    "zero price",
			in:      market.AddProductInput{Name: "Espresso", Price: decimal.Zero, Stock: 10, OwnerID: vendor.ID},
			wantErr: market.ErrInvalidPrice,
		},
		{
			name:    "negative price",
			in:      market.AddProductInput{Name: "Espresso", Price: decimal.RequireFromString("-1"), Stock: 10, OwnerID: vendor.ID},
			wantErr: market.ErrInvalidPrice,
		},
		{
			name:    "negative stock",
			in:      market.AddProductInput{Name: "Espresso", Price: decimal.RequireFromString("2.5"), Stock: -1, OwnerID: vendor.ID},
			wantErr: market.ErrInvalidStock,
		},
		{
			name:    "customer owner",
			in:      market.AddProductInput{Name: "Espresso", Price: decimal.RequireFromString("2.5"), Stock: 10, OwnerID: customer.ID},
			wantErr: market.ErrInvalidOwner,
		},
		{
			name:    "unknown owner",
			in:      market.AddProductInput{Name: "Espresso", Price: decimal.RequireFromString("2.5"), Stock: 10, OwnerID: 999},
			wantErr: market.ErrInvalidOwner,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddProduct(ctx, tc.in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAvailableProductsSkipsSoldOut(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)

	first := mustAddProduct(t, svc, "Espresso", "2.5", 10, vendor.ID)
	mustAddProduct(t, svc, "Medialuna", "1.2", 0, vendor.ID)
	second := mustAddProduct(t, svc, "Latte", "3.0", 4, vendor.ID)

	ps, err := svc.AvailableProducts(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	// id ascending, sold-out product filtered out
	assert.Equal(t, first, ps[0].ID)
	assert.Equal(t, second, ps[1].ID)
}

func TestPlaceOrderScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)
	ana := mustRegister(t, svc, "Ana", market.RoleCustomer)
	espresso := mustAddProduct(t, svc, "Espresso", "2.5", 10, vendor.ID)

	placed, err := svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID,
		ProductID:  espresso,
		PickupTime: "10:00",
		Quantity:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, placed.RemainingStock)
	assert.True(t, placed.UnitPrice.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 7, availableStock(t, svc, espresso))

	st, err := svc.OrderState(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, market.StatePending, st)

	// second order exceeding remaining stock fails and changes nothing
	_, err = svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID,
		ProductID:  espresso,
		PickupTime: "11:00",
		Quantity:   8,
	})
	var stockErr *market.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 7, stockErr.Available)
	assert.Equal(t, 8, stockErr.Requested)
	assert.Contains(t, stockErr.Error(), "7 available")
	assert.Equal(t, 7, availableStock(t, svc, espresso))
}

func TestPlaceOrderValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)
	ana := mustRegister(t, svc, "Ana", market.RoleCustomer)
	espresso := mustAddProduct(t, svc, "Espresso", "2.5", 10, vendor.ID)

	_, err := svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID, ProductID: espresso, PickupTime: "10:00", Quantity: 0,
	})
	assert.ErrorIs(t, err, market.ErrInvalidQuantity)

	_, err = svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID, ProductID: espresso, PickupTime: "10:00", Quantity: -2,
	})
	assert.ErrorIs(t, err, market.ErrInvalidQuantity)

	_, err = svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID, ProductID: 999, PickupTime: "10:00", Quantity: 1,
	})
	assert.ErrorIs(t, err, market.ErrProductNotFound)

	assert.Equal(t, 10, availableStock(t, svc, espresso))
}

func TestUpdateOrderStateAuthorization(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	cafeA := mustRegister(t, svc, "CafeA", market.RoleVendor)
	cafeB := mustRegister(t, svc, "CafeB", market.RoleVendor)
	ana := mustRegister(t, svc, "Ana", market.RoleCustomer)
	espresso := mustAddProduct(t, svc, "Espresso", "2.5", 10, cafeA.ID)

	placed, err := svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID, ProductID: espresso, PickupTime: "10:00", Quantity: 3,
	})
	require.NoError(t, err)

	// owning vendor may set any valid state
	require.NoError(t, svc.UpdateOrderState(ctx, placed.OrderID, market.StateCompleted, cafeA.ID))
	st, err := svc.OrderState(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, market.StateCompleted, st)

	// another vendor gets the same error as for a missing order
	err = svc.UpdateOrderState(ctx, placed.OrderID, market.StateCompleted, cafeB.ID)
	assert.ErrorIs(t, err, market.ErrUnauthorized)

	err = svc.UpdateOrderState(ctx, 999, market.StateCompleted, cafeA.ID)
	assert.ErrorIs(t, err, market.ErrUnauthorized)

	err = svc.UpdateOrderState(ctx, placed.OrderID, market.State("shipped"), cafeA.ID)
	assert.ErrorIs(t, err, market.ErrInvalidState)

	// state updates never touch stock
	assert.Equal(t, 7, availableStock(t, svc, espresso))
}

func TestCancellationDoesNotRestoreStock(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)
	ana := mustRegister(t, svc, "Ana", market.RoleCustomer)
	espresso := mustAddProduct(t, svc, "Espresso", "2.5", 10, vendor.ID)

	placed, err := svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID, ProductID: espresso, PickupTime: "10:00", Quantity: 4,
	})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateOrderState(ctx, placed.OrderID, market.StateCancelled, vendor.ID))

	// deliberate policy: cancelling keeps the stock decremented
	assert.Equal(t, 6, availableStock(t, svc, espresso))
}

func TestOrderQueries(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	cafeA := mustRegister(t, svc, "CafeA", market.RoleVendor)
	cafeB := mustRegister(t, svc, "CafeB", market.RoleVendor)
	ana := mustRegister(t, svc, "Ana", market.RoleCustomer)
	espresso := mustAddProduct(t, svc, "Espresso", "2.5", 10, cafeA.ID)
	latte := mustAddProduct(t, svc, "Latte", "3.0", 10, cafeB.ID)

	first, err := svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID, ProductID: espresso, PickupTime: "10:00", Quantity: 2,
	})
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: ana.ID, ProductID: latte, PickupTime: "11:00", Quantity: 1,
	})
	require.NoError(t, err)

	rows, err := svc.OrdersForCustomer(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// most recent first
	assert.Equal(t, second.OrderID, rows[0].OrderID)
	assert.Equal(t, first.OrderID, rows[1].OrderID)
	assert.Equal(t, "Latte", rows[0].Product)
	assert.Equal(t, "CafeB", rows[0].Vendor)
	assert.Equal(t, "Ana", rows[0].Customer)

	vrows, err := svc.OrdersForVendor(ctx, cafeA.ID)
	require.NoError(t, err)
	require.Len(t, vrows, 1)
	assert.Equal(t, first.OrderID, vrows[0].OrderID)
	assert.Equal(t, "Ana", vrows[0].Customer)
	assert.Equal(t, "Espresso", vrows[0].Product)

	// empty result is not an error
	bob := mustRegister(t, svc, "Bob", market.RoleCustomer)
	rows, err = svc.OrdersForCustomer(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// customers cannot use the vendor view
	_, err = svc.OrdersForVendor(ctx, ana.ID)
	assert.ErrorIs(t, err, market.ErrNotVendor)
	_, err = svc.VendorProductTotals(ctx, ana.ID)
	assert.ErrorIs(t, err, market.ErrNotVendor)
}

func TestVendorProductTotals(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)
	ana := mustRegister(t, svc, "Ana", market.RoleCustomer)
	espresso := mustAddProduct(t, svc, "Espresso", "2.5", 20, vendor.ID)
	latte := mustAddProduct(t, svc, "Latte", "3.0", 20, vendor.ID)

	for _, in := range []market.PlaceOrderInput{
		{CustomerID: ana.ID, ProductID: espresso, PickupTime: "10:00", Quantity: 2},
		{CustomerID: ana.ID, ProductID: latte, PickupTime: "10:30", Quantity: 5},
		{CustomerID: ana.ID, ProductID: espresso, PickupTime: "11:00", Quantity: 1},
	} {
		_, err := svc.PlaceOrder(ctx, in)
		require.NoError(t, err)
	}

	totals, err := svc.VendorProductTotals(ctx, vendor.ID)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, market.ProductTotal{Product: "Latte", TotalQuantity: 5}, totals[0])
	assert.Equal(t, market.ProductTotal{Product: "Espresso", TotalQuantity: 3}, totals[1])
}

func TestConcurrentPlacementsNeverOversell(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	vendor := mustRegister(t, svc, "CafeA", market.RoleVendor)
	ana := mustRegister(t, svc, "Ana", market.RoleCustomer)

	const (
		stock   = 37
		callers = 20
		qty     = 5
	)
	espresso := mustAddProduct(t, svc, "Espresso", "2.5", stock, vendor.ID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, market.PlaceOrderInput{
				CustomerID: ana.ID, ProductID: espresso, PickupTime: "10:00", Quantity: qty,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			var stockErr *market.InsufficientStockError
			if !errors.As(err, &stockErr) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// 37 / 5 -> exactly 7 placements fit
	assert.Equal(t, 7, succeeded)
	assert.Equal(t, stock-7*qty, availableStock(t, svc, espresso))

	rows, err := svc.OrdersForCustomer(ctx, ana.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 7)
}
