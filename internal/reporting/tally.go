package reporting

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/cafeya/cafeya-orders/internal/kafka"
	"github.com/cafeya/cafeya-orders/internal/market"
	"github.com/cafeya/cafeya-orders/internal/redisx"
)

// Tally consumes OrderPlaced events and keeps running quantity totals per
// product. It is read-only over the order stream; nothing here mutates
// market state.
type Tally struct {
	Redis       *redis.Client
	ServiceName string

	mu     sync.Mutex
	totals map[int64]int64 // product id -> ordered quantity
}

// HandleOrderPlaced is plugged into the kafka consumer.
func (t *Tally) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env market.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != market.EventOrderPlaced {
		return nil // ignore
	}

	// dedup on event id so redeliveries do not double-count
	if t.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, t.ServiceName, env.EventID)
		if ok, _ := redisx.Exists(ctx, t.Redis, dkey); ok {
			return nil
		}
		_ = t.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[market.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.totals == nil {
		t.totals = make(map[int64]int64)
	}
	t.totals[p.ProductID] += int64(p.Quantity)
	total := t.totals[p.ProductID]
	t.mu.Unlock()

	log.Info().
		Int64("order_id", p.OrderID).
		Int64("product_id", p.ProductID).
		Int("quantity", p.Quantity).
		Int64("running_total", total).
		Msg("order tallied")
	return nil
}

// Snapshot returns a copy of the current totals.
func (t *Tally) Snapshot() map[int64]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[int64]int64, len(t.totals))
	for k, v := range t.totals {
		out[k] = v
	}
	return out
}
