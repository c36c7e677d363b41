// Package memory provides in-memory store implementations used by tests
// and the --use-memory mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/storage"
)

// RecordStore is an in-memory implementation of storage.RecordStore.
type RecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolRecord // keyed by record_id
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{data: make(map[string]*domain.PoolRecord)}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *RecordStore) Insert(_ context.Context, r *domain.PoolRecord) error {
	if r == nil || r.RecordID == "" || r.Market == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *r
	s.data[r.RecordID] = &cp
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *RecordStore) InsertBulk(_ context.Context, records []*domain.PoolRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.RecordID == "" || r.Market == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[r.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.RecordID] = struct{}{}
	}

	for _, r := range records {
		cp := *r
		s.data[r.RecordID] = &cp
	}
	return nil
}

// GetByMarket retrieves all records for a market, ordered by timestamp,
// ledger index, then tx hash.
func (s *RecordStore) GetByMarket(_ context.Context, market string) ([]*domain.PoolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PoolRecord
	for _, r := range s.data {
		if r.Market == market {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortRecords(out)
	return out, nil
}

// GetByLedgerRange retrieves records for a market within [min, max] (inclusive).
func (s *RecordStore) GetByLedgerRange(_ context.Context, market string, min, max int64) ([]*domain.PoolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PoolRecord
	for _, r := range s.data {
		if r.Market == market && r.LedgerIndex >= min && r.LedgerIndex <= max {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortRecords(out)
	return out, nil
}

// LatestLedgerIndex returns the highest ledger index stored for a market.
func (s *RecordStore) LatestLedgerIndex(_ context.Context, market string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int64
	found := false
	for _, r := range s.data {
		if r.Market == market && (!found || r.LedgerIndex > latest) {
			latest = r.LedgerIndex
			found = true
		}
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return latest, nil
}

func sortRecords(records []*domain.PoolRecord) {
	sort.SliceStable(records, func(i, k int) bool {
		if !records[i].Timestamp.Equal(records[k].Timestamp) {
			return records[i].Timestamp.Before(records[k].Timestamp)
		}
		if records[i].LedgerIndex != records[k].LedgerIndex {
			return records[i].LedgerIndex < records[k].LedgerIndex
		}
		return records[i].TxHash < records[k].TxHash
	})
}
