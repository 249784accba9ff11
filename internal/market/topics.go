package market

import "strconv"

const (
	TopicOrderPlaced       = "cafeya.order.placed"
	TopicOrderStateChanged = "cafeya.order.state_changed"
)

// Partition key = order id, so every event of one order keeps its order.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}
