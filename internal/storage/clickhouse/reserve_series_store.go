package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/storage"
)

// ReserveSeriesStore implements storage.ReserveSeriesStore using ClickHouse.
// MergeTree does not enforce uniqueness; the authoritative dedupe happens in
// the record store, and this sink just appends what it is given.
type ReserveSeriesStore struct {
	conn *Conn
}

// NewReserveSeriesStore creates a new ReserveSeriesStore.
func NewReserveSeriesStore(conn *Conn) *ReserveSeriesStore {
	return &ReserveSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ReserveSeriesStore = (*ReserveSeriesStore)(nil)

// InsertBulk appends records as reserve points.
func (s *ReserveSeriesStore) InsertBulk(ctx context.Context, records []*domain.PoolRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO reserve_series (
			market, timestamp, ledger_index, tx_hash, asset1, asset2,
			asset1_amount, asset2_amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.Market, r.Timestamp, uint64(r.LedgerIndex), r.TxHash,
			r.Asset1, r.Asset2,
			amountFloat(r.Asset1Amount), amountFloat(r.Asset2Amount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMarket retrieves all points for a market, ordered by timestamp ASC.
func (s *ReserveSeriesStore) GetByMarket(ctx context.Context, market string) ([]*domain.ReservePoint, error) {
	query := `
		SELECT market, timestamp, ledger_index, tx_hash, asset1, asset2,
		       asset1_amount, asset2_amount
		FROM reserve_series
		WHERE market = ?
		ORDER BY timestamp ASC, ledger_index ASC
	`

	rows, err := s.conn.Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("query by market: %w", err)
	}
	defer rows.Close()

	return scanReservePoints(rows)
}

// GetByTimeRange retrieves points for a market within [start, end] (inclusive).
func (s *ReserveSeriesStore) GetByTimeRange(ctx context.Context, market string, start, end time.Time) ([]*domain.ReservePoint, error) {
	query := `
		SELECT market, timestamp, ledger_index, tx_hash, asset1, asset2,
		       asset1_amount, asset2_amount
		FROM reserve_series
		WHERE market = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, ledger_index ASC
	`

	rows, err := s.conn.Query(ctx, query, market, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanReservePoints(rows)
}

// scanReservePoints scans multiple rows into a slice of ReservePoint.
func scanReservePoints(rows driver.Rows) ([]*domain.ReservePoint, error) {
	var points []*domain.ReservePoint

	for rows.Next() {
		var (
			p           domain.ReservePoint
			ledgerIndex uint64
		)
		err := rows.Scan(
			&p.Market, &p.Timestamp, &ledgerIndex, &p.TxHash,
			&p.Asset1, &p.Asset2,
			&p.Asset1Amount, &p.Asset2Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reserve point row: %w", err)
		}
		p.LedgerIndex = int64(ledgerIndex)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reserve point rows: %w", err)
	}
	return points, nil
}

func amountFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}
