// Package scan implements the paginated ledger scanner: a pull-based
// pipeline that walks an AMM account's transaction history, samples
// qualifying events, joins pool reserves at each event's ledger index, and
// assembles a deterministic time-ordered record sequence.
package scan

import "errors"

var (
	// ErrWindowUnresolvable means the scan bounds could not be
	// established; the scan never starts.
	ErrWindowUnresolvable = errors.New("scan: ledger window unresolvable")

	// ErrJoinIncomplete means no auxiliary state at all could be
	// retrieved for one record. Reported per record; the scan continues.
	ErrJoinIncomplete = errors.New("scan: auxiliary state unavailable")

	// ErrDataQuality marks a single malformed record (undecodable
	// currency, missing fields). Skipped with a warning; never fatal.
	ErrDataQuality = errors.New("scan: data quality")

	// ErrEmptyResult means the configured window and filter yielded zero
	// records. Distinct from a transport failure.
	ErrEmptyResult = errors.New("scan: no records matched")
)
