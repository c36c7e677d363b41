package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction type constants for the event filter.
const (
	TxTypePayment     = "Payment"
	TxTypeOfferCreate = "OfferCreate"
)

// RawEvent is a transaction record as delivered by the ledger-query
// service. Immutable once received; Payload retains tx_json verbatim for
// the audit blob.
type RawEvent struct {
	LedgerIndex int64
	Timestamp   time.Time
	Type        string
	Hash        string
	Payload     json.RawMessage
}

// JoinedEvent is a sampled event merged with pool reserves queried at the
// event's own ledger index. A nil amount means the pool had no state for
// that side at that height.
type JoinedEvent struct {
	RawEvent
	Market       string
	Asset1       AssetID
	Asset2       AssetID
	Asset1Amount *decimal.Decimal
	Asset2Amount *decimal.Decimal
}
