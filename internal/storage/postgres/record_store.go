package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/storage"
)

// RecordStore implements storage.RecordStore using PostgreSQL. Amounts are
// stored as NUMERIC and round-tripped through their decimal string form so
// issued-currency precision survives.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool *Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

const insertRecordQuery = `
	INSERT INTO pool_records (
		record_id, timestamp, ledger_index, tx_hash, market, asset1, asset2,
		asset1_amount, asset2_amount, raw_tx
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10)
`

const selectRecordColumns = `
	record_id, timestamp, ledger_index, tx_hash, market, asset1, asset2,
	asset1_amount::text, asset2_amount::text, raw_tx, created_at
`

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *RecordStore) Insert(ctx context.Context, r *domain.PoolRecord) error {
	_, err := s.pool.Exec(ctx, insertRecordQuery, insertArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *RecordStore) InsertBulk(ctx context.Context, records []*domain.PoolRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if _, err := tx.Exec(ctx, insertRecordQuery, insertArgs(r)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert pool record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByMarket retrieves all records for a market, ordered by timestamp,
// ledger index, then tx hash.
func (s *RecordStore) GetByMarket(ctx context.Context, market string) ([]*domain.PoolRecord, error) {
	query := `
		SELECT ` + selectRecordColumns + `
		FROM pool_records
		WHERE market = $1
		ORDER BY timestamp ASC, ledger_index ASC, tx_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("get records by market: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByLedgerRange retrieves records for a market within [min, max] (inclusive).
func (s *RecordStore) GetByLedgerRange(ctx context.Context, market string, min, max int64) ([]*domain.PoolRecord, error) {
	query := `
		SELECT ` + selectRecordColumns + `
		FROM pool_records
		WHERE market = $1 AND ledger_index >= $2 AND ledger_index <= $3
		ORDER BY timestamp ASC, ledger_index ASC, tx_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, market, min, max)
	if err != nil {
		return nil, fmt.Errorf("get records by ledger range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LatestLedgerIndex returns the highest ledger index stored for a market.
func (s *RecordStore) LatestLedgerIndex(ctx context.Context, market string) (int64, error) {
	query := `SELECT max(ledger_index) FROM pool_records WHERE market = $1`

	var latest *int64
	if err := s.pool.QueryRow(ctx, query, market).Scan(&latest); err != nil {
		return 0, fmt.Errorf("latest ledger index: %w", err)
	}
	if latest == nil {
		return 0, storage.ErrNotFound
	}
	return *latest, nil
}

// insertArgs flattens a record into query arguments. Amounts go over the
// wire as decimal strings; nil stays NULL.
func insertArgs(r *domain.PoolRecord) []any {
	return []any{
		r.RecordID,
		r.Timestamp,
		r.LedgerIndex,
		r.TxHash,
		r.Market,
		r.Asset1,
		r.Asset2,
		amountString(r.Asset1Amount),
		amountString(r.Asset2Amount),
		r.RawTx,
	}
}

func amountString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

// scanRecords scans multiple rows into a slice of PoolRecord.
func scanRecords(rows pgx.Rows) ([]*domain.PoolRecord, error) {
	var records []*domain.PoolRecord

	for rows.Next() {
		var r domain.PoolRecord
		var asset1Str, asset2Str *string

		err := rows.Scan(
			&r.RecordID,
			&r.Timestamp,
			&r.LedgerIndex,
			&r.TxHash,
			&r.Market,
			&r.Asset1,
			&r.Asset2,
			&asset1Str,
			&asset2Str,
			&r.RawTx,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pool record row: %w", err)
		}

		if r.Asset1Amount, err = parseAmount(asset1Str); err != nil {
			return nil, fmt.Errorf("record %s asset1: %w", r.RecordID, err)
		}
		if r.Asset2Amount, err = parseAmount(asset2Str); err != nil {
			return nil, fmt.Errorf("record %s asset2: %w", r.RecordID, err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool record rows: %w", err)
	}
	return records, nil
}

func parseAmount(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", *s, err)
	}
	return &d, nil
}
