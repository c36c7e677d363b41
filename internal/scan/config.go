package scan

import (
	"time"

	"xrpl-amm-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultPageSize       = 1000
	MinPageSize           = 200
	MaxPageSize           = 1500
	DefaultSampleInterval = 1 * time.Hour
)

// Config controls a scan run. The zero value scans the account's full
// history up to the latest validated ledger, sampling Payment transactions
// at most once per hour.
type Config struct {
	// PageSize is the account_tx page limit, clamped to [200, 1500].
	PageSize int

	// MinSampleInterval is the minimum wall-clock gap between emitted
	// events.
	MinSampleInterval time.Duration

	// MaxLedgerIndex caps the scan; 0 means the latest validated index at
	// scan start.
	MaxLedgerIndex int64

	// MinLedgerIndex starts the scan; 0 or domain.EarliestLedger means
	// the account's earliest available history.
	MinLedgerIndex int64

	// FromTime, when set, overrides MinLedgerIndex with the ledger index
	// whose close time is nearest FromTime.
	FromTime time.Time

	// Types lists admitted transaction types; empty means Payment only.
	Types []string
}

// withDefaults normalizes the config.
func (c Config) withDefaults() Config {
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize < MinPageSize {
		c.PageSize = MinPageSize
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	if c.MinSampleInterval == 0 {
		c.MinSampleInterval = DefaultSampleInterval
	}
	if c.MinLedgerIndex == 0 {
		c.MinLedgerIndex = domain.EarliestLedger
	}
	if len(c.Types) == 0 {
		c.Types = []string{domain.TxTypePayment}
	}
	return c
}
