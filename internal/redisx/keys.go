package redisx

import "time"

const (
	// Cache order state: order_status:{order_id} -> {"state": "..."}
	KeyOrderStatus = "order_status:%d"

	// Cached weather recommendation for the fixed Buenos Aires lookup.
	KeyWeather = "weather:bsas"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLWeather     = 10 * time.Minute
	TTLDedup       = 48 * time.Hour
)
