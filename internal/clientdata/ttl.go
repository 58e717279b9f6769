package clientdata

import "time"

// TTL constants for cached market data. These are added to time.Now()
// when storing to calculate expires_at.
const (
	// TTLCurrentPrice keeps quotes fresh enough for intraday monitoring
	// while avoiding a provider round-trip per position per tick.
	TTLCurrentPrice = 10 * time.Minute

	// TTLDailyHistory - daily bars only change after market close.
	TTLDailyHistory = time.Hour
)
