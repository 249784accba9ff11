package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/cafeya/cafeya-orders/internal/kafka"
	"github.com/cafeya/cafeya-orders/internal/market"
	"github.com/cafeya/cafeya-orders/internal/redisx"
	"github.com/cafeya/cafeya-orders/internal/reporting"
	"github.com/cafeya/cafeya-orders/internal/weather"
)

// Handler exposes the order workflow over HTTP. Redis and the producers are
// optional: a nil client just skips caching, a nil producer skips events.
type Handler struct {
	Market         *market.Service
	Weather        *weather.Client
	Redis          *redis.Client
	PlacedProducer *kafkax.Producer
	StateProducer  *kafkax.Producer
	Service        string
}

func (h *Handler) Register(r *chi.Mux) {
	r.Post("/users", h.registerUser)
	r.Post("/login", h.login)
	r.Post("/products", h.addProduct)
	r.Get("/products", h.listProducts)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.orderStatus)
	r.Put("/orders/{id}/state", h.updateOrderState)
	r.Get("/customers/{id}/orders", h.customerOrders)
	r.Get("/customers/{id}/orders.csv", h.customerOrdersCSV)
	r.Get("/vendors/{id}/orders", h.vendorOrders)
	r.Get("/vendors/{id}/sales.csv", h.vendorSalesCSV)
	r.Get("/vendors/{id}/chart", h.vendorChart)
	r.Get("/weather", h.weatherRecommendation)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFromErr maps the domain error taxonomy onto HTTP statuses. Unknown
// errors are storage failures and come back as 500.
func statusFromErr(err error) int {
	var stockErr *market.InsufficientStockError
	switch {
	case errors.As(err, &stockErr),
		errors.Is(err, market.ErrInvalidRole),
		errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrInvalidStock),
		errors.Is(err, market.ErrInvalidQuantity),
		errors.Is(err, market.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, market.ErrInvalidOwner),
		errors.Is(err, market.ErrNotVendor):
		return http.StatusForbidden
	case errors.Is(err, market.ErrUserNotFound),
		errors.Is(err, market.ErrProductNotFound),
		errors.Is(err, market.ErrOrderNotFound),
		errors.Is(err, market.ErrUnauthorized):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := statusFromErr(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("storage failure")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ---- identity ----

type registerReq struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "name and role are required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Market.Register(ctx, req.Name, market.Role(req.Role))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "role": u.Role})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Market.Login(ctx, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "role": u.Role})
}

// ---- catalog ----

type addProductReq struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        *int            `json:"stock"`
	PickupWindow string          `json:"pickup_window"`
	OwnerID      int64           `json:"owner_id"`
	Category     string          `json:"category"`
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Stock == nil || req.OwnerID == 0 || req.PickupWindow == "" {
		writeError(w, http.StatusBadRequest, "missing product fields")
		return
	}
	if req.Category == "" {
		req.Category = "Bebida"
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := h.Market.AddProduct(ctx, market.AddProductInput{
		Name:         req.Name,
		Price:        req.Price,
		Stock:        *req.Stock,
		PickupWindow: req.PickupWindow,
		OwnerID:      req.OwnerID,
		Category:     req.Category,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product_id": id, "category": req.Category})
}

type productView struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	PickupWindow string          `json:"pickup_window"`
	OwnerID      int64           `json:"owner_id"`
	Category     string          `json:"category"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Market.AvailableProducts(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, productView{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Stock:        p.Stock,
			PickupWindow: p.PickupWindow,
			OwnerID:      p.OwnerID,
			Category:     p.Category,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- orders ----

type placeOrderReq struct {
	CustomerID int64  `json:"customer_id"`
	ProductID  int64  `json:"product_id"`
	PickupTime string `json:"pickup_time"`
	Quantity   *int   `json:"quantity"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.CustomerID == 0 || req.ProductID == 0 || req.PickupTime == "" {
		writeError(w, http.StatusBadRequest, "missing order fields")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	placed, err := h.Market.PlaceOrder(ctx, market.PlaceOrderInput{
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		PickupTime: req.PickupTime,
		Quantity:   qty,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.cacheOrderState(ctx, placed.OrderID, market.StatePending)
	h.publish(h.PlacedProducer, market.EventOrderPlaced, placed.OrderID,
		r.Header.Get("X-Request-Id"), market.OrderPlacedPayload{
			OrderID:    placed.OrderID,
			CustomerID: req.CustomerID,
			ProductID:  req.ProductID,
			Quantity:   qty,
			UnitPrice:  placed.UnitPrice.String(),
			PickupTime: req.PickupTime,
		})

	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":        placed.OrderID,
		"unit_price":      placed.UnitPrice,
		"remaining_stock": placed.RemainingStock,
	})
}

func (h *Handler) orderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	st, err := h.Market.OrderState(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.cacheOrderState(ctx, id, st)
	writeJSON(w, http.StatusOK, map[string]any{"state": st})
}

type updateStateReq struct {
	State    string `json:"state"`
	VendorID int64  `json:"vendor_id"`
}

func (h *Handler) updateOrderState(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req updateStateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.State == "" || req.VendorID == 0 {
		writeError(w, http.StatusBadRequest, "state and vendor_id are required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	newState := market.State(req.State)
	if err := h.Market.UpdateOrderState(ctx, id, newState, req.VendorID); err != nil {
		h.fail(w, err)
		return
	}

	h.cacheOrderState(ctx, id, newState)
	h.publish(h.StateProducer, market.EventOrderStateChanged, id,
		r.Header.Get("X-Request-Id"), market.OrderStateChangedPayload{
			OrderID:  id,
			VendorID: req.VendorID,
			NewState: newState,
		})

	writeJSON(w, http.StatusOK, map[string]string{"message": "order state updated"})
}

func (h *Handler) customerOrders(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Market.OrdersForCustomer(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if rows == nil {
		rows = []market.CustomerOrderRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) vendorOrders(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Market.OrdersForVendor(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if rows == nil {
		rows = []market.VendorOrderRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// ---- reporting ----

func (h *Handler) customerOrdersCSV(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Market.OrdersForCustomer(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="pedidos_cliente_%d.csv"`, id))
	if err := reporting.WriteCustomerOrdersCSV(w, rows); err != nil {
		log.Error().Err(err).Msg("customer csv export")
	}
}

func (h *Handler) vendorSalesCSV(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Market.OrdersForVendor(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="ventas_cafeteria_%d.csv"`, id))
	if err := reporting.WriteVendorSalesCSV(w, rows); err != nil {
		log.Error().Err(err).Msg("vendor csv export")
	}
}

func (h *Handler) vendorChart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	totals, err := h.Market.VendorProductTotals(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if len(totals) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no orders to chart"})
		return
	}
	vendor, err := h.Market.UserByID(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := reporting.RenderVendorChart(w, vendor.Name, totals); err != nil {
		log.Error().Err(err).Msg("vendor chart render")
	}
}

// ---- weather ----

func (h *Handler) weatherRecommendation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, redisx.KeyWeather).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	rec, err := h.Weather.Recommend(ctx)
	if err != nil {
		log.Error().Err(err).Msg("weather lookup")
		writeError(w, http.StatusBadGateway, "weather service unavailable")
		return
	}
	if h.Redis != nil {
		b, _ := json.Marshal(rec)
		_ = h.Redis.Set(ctx, redisx.KeyWeather, b, redisx.TTLWeather).Err()
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---- helpers ----

func (h *Handler) cacheOrderState(ctx context.Context, orderID int64, st market.State) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	b, _ := json.Marshal(map[string]any{"state": st})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (h *Handler) publish(p *kafkax.Producer, eventType string, orderID int64, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(market.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
