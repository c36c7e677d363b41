package xrpl

import "time"

// LedgerClosed is a validated-ledger notification from the "ledger" stream.
type LedgerClosed struct {
	LedgerIndex int64
	CloseTime   time.Time
	TxnCount    int
}

// LedgerStream delivers validated-ledger close notifications.
type LedgerStream interface {
	// Ledgers returns the notification channel. The channel is closed when
	// the stream shuts down.
	Ledgers() <-chan LedgerClosed

	// Close shuts the stream down and releases the connection.
	Close() error
}
