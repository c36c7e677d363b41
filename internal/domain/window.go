package domain

// EarliestLedger is the sentinel minimum meaning "from the account's
// earliest available history".
const EarliestLedger int64 = -1

// LedgerWindow bounds one scan run. Immutable once resolved; MaxIndex is
// either a caller-supplied cap or the latest validated index at scan start.
type LedgerWindow struct {
	MinIndex int64
	MaxIndex int64
}

// Valid reports whether the window is well-formed.
func (w LedgerWindow) Valid() bool {
	return w.MaxIndex > 0 && w.MinIndex <= w.MaxIndex
}
