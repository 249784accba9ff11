package market

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced       = "OrderPlaced"
	EventOrderStateChanged = "OrderStateChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	PickupTime string `json:"pickup_time,omitempty"`
}

type OrderStateChangedPayload struct {
	OrderID  int64 `json:"order_id"`
	VendorID int64 `json:"vendor_id"`
	NewState State `json:"new_state"`
}
