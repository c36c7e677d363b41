package domain

import "time"

// ReservePoint is the analytics-side projection of a pool record. Amounts
// are lossy Float64 for aggregation queries; the NUMERIC source of truth is
// the pool_records table.
type ReservePoint struct {
	Market       string
	Timestamp    time.Time
	LedgerIndex  int64
	TxHash       string
	Asset1       string
	Asset2       string
	Asset1Amount *float64
	Asset2Amount *float64
}
