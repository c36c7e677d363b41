package storage

import (
	"context"
	"time"

	"xrpl-amm-lab/internal/domain"
)

// RecordStore provides access to pool_records storage. Records are
// append-only; the deterministic record_id doubles as the dedupe key so a
// re-run over unchanged history can be replayed into the store safely.
type RecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, r *domain.PoolRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.PoolRecord) error

	// GetByMarket retrieves all records for a market, ordered by timestamp,
	// ledger index, then tx hash.
	GetByMarket(ctx context.Context, market string) ([]*domain.PoolRecord, error)

	// GetByLedgerRange retrieves records for a market within [min, max] (inclusive).
	GetByLedgerRange(ctx context.Context, market string, min, max int64) ([]*domain.PoolRecord, error)

	// LatestLedgerIndex returns the highest ledger index stored for a
	// market. Returns ErrNotFound when the market has no records; callers
	// use it to resume a scan where the last run stopped.
	LatestLedgerIndex(ctx context.Context, market string) (int64, error)
}

// ReserveSeriesStore provides access to the reserve_series analytics table.
// Amounts are stored as Float64; the lossless NUMERIC copy lives in the
// record store.
type ReserveSeriesStore interface {
	// InsertBulk appends records as reserve points.
	InsertBulk(ctx context.Context, records []*domain.PoolRecord) error

	// GetByMarket retrieves all points for a market, ordered by timestamp ASC.
	GetByMarket(ctx context.Context, market string) ([]*domain.ReservePoint, error)

	// GetByTimeRange retrieves points for a market within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, market string, start, end time.Time) ([]*domain.ReservePoint, error)
}
