package reporting

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafeya/cafeya-orders/internal/market"
)

func placedMessage(t *testing.T, eventType string, productID int64, qty int) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(market.OrderPlacedPayload{
		OrderID:   1,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: "2.5",
	})
	require.NoError(t, err)
	env, err := json.Marshal(market.Envelope{
		EventID:      "ev-1",
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      payload,
	})
	require.NoError(t, err)
	return kafkago.Message{Value: env}
}

func TestTallyAccumulatesQuantities(t *testing.T) {
	tally := &Tally{ServiceName: "reporter-test"}
	ctx := context.Background()

	require.NoError(t, tally.HandleOrderPlaced(ctx, placedMessage(t, market.EventOrderPlaced, 7, 3)))
	require.NoError(t, tally.HandleOrderPlaced(ctx, placedMessage(t, market.EventOrderPlaced, 7, 2)))
	require.NoError(t, tally.HandleOrderPlaced(ctx, placedMessage(t, market.EventOrderPlaced, 9, 1)))

	got := tally.Snapshot()
	assert.Equal(t, map[int64]int64{7: 5, 9: 1}, got)
}

func TestTallyIgnoresOtherEvents(t *testing.T) {
	tally := &Tally{ServiceName: "reporter-test"}
	require.NoError(t, tally.HandleOrderPlaced(context.Background(),
		placedMessage(t, market.EventOrderStateChanged, 7, 3)))
	assert.Empty(t, tally.Snapshot())
}

func TestTallyRejectsMalformedMessage(t *testing.T) {
	tally := &Tally{ServiceName: "reporter-test"}
	err := tally.HandleOrderPlaced(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
