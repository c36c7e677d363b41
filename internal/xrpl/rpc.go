package xrpl

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrExhausted is returned once the retry budget for a single logical call
// has been spent. The last transient failure is wrapped underneath it.
var ErrExhausted = errors.New("xrpl: retry budget exhausted")

// Client defines the rippled JSON-RPC operations the scanner depends on.
type Client interface {
	// LatestValidatedLedger returns the index of the most recently
	// validated ledger.
	LatestValidatedLedger(ctx context.Context) (int64, error)

	// LedgerCloseTime returns the close time of a ledger by index.
	LedgerCloseTime(ctx context.Context, ledgerIndex int64) (time.Time, error)

	// AccountTx retrieves one page of transaction history for an account
	// within ledger-index bounds. The returned marker is opaque and must be
	// round-tripped verbatim on the next request; a nil marker means no
	// more pages.
	AccountTx(ctx context.Context, req AccountTxRequest) (*AccountTxPage, error)

	// AccountLines retrieves trust-line balances for an account at a
	// specific ledger index.
	AccountLines(ctx context.Context, account string, ledgerIndex int64) ([]AccountLine, error)

	// XRPBalance retrieves the XRP balance of an account at a specific
	// ledger index, converted from drops.
	XRPBalance(ctx context.Context, account string, ledgerIndex int64) (decimal.Decimal, error)

	// AMMInfo retrieves the asset pair and current reserves of an AMM
	// account.
	AMMInfo(ctx context.Context, ammAccount string) (*AMMInfo, error)
}
