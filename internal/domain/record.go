package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PoolRecord is the flat output schema handed to downstream consumers.
// Corresponds to the pool_records table. Amounts are nil when the pool had
// no state for that asset at the record's ledger index.
type PoolRecord struct {
	RecordID     string // deterministic id, storage dedupe key
	Timestamp    time.Time
	LedgerIndex  int64
	TxHash       string
	Market       string // AMM account address
	Asset1       string // decoded symbol
	Asset2       string
	Asset1Amount *decimal.Decimal
	Asset2Amount *decimal.Decimal
	RawTx        json.RawMessage // original tx_json, retained for audit
	CreatedAt    time.Time       // set by storage
}
