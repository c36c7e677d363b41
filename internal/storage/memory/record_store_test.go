package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/idhash"
	"xrpl-amm-lab/internal/storage"
)

func record(market, hash string, ledgerIndex int64, ts time.Time) *domain.PoolRecord {
	amt := decimal.RequireFromString("100")
	return &domain.PoolRecord{
		RecordID:     idhash.ComputeRecordID(market, hash, ledgerIndex),
		Timestamp:    ts,
		LedgerIndex:  ledgerIndex,
		TxHash:       hash,
		Market:       market,
		Asset1:       "XRP",
		Asset2:       "USD",
		Asset1Amount: &amt,
		Asset2Amount: &amt,
	}
}

func TestRecordStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Insert(ctx, record("rPool", "AAA", 100, base)); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	got, err := s.GetByMarket(ctx, "rPool")
	if err != nil {
		t.Fatalf("GetByMarket() error: %v", err)
	}
	if len(got) != 1 || got[0].TxHash != "AAA" {
		t.Fatalf("GetByMarket() = %v, want one AAA record", got)
	}
}

func TestRecordStore_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	r := record("rPool", "AAA", 100, base)
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := s.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("second Insert() error = %v, want ErrDuplicateKey", err)
	}
}

func TestRecordStore_InsertBulkAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Insert(ctx, record("rPool", "AAA", 100, base)); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	batch := []*domain.PoolRecord{
		record("rPool", "BBB", 200, base.Add(time.Hour)),
		record("rPool", "AAA", 100, base), // duplicate
	}
	if err := s.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("InsertBulk() error = %v, want ErrDuplicateKey", err)
	}

	// The whole batch must have been rejected.
	got, err := s.GetByMarket(ctx, "rPool")
	if err != nil {
		t.Fatalf("GetByMarket() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after failed bulk, want 1", len(got))
	}
}

func TestRecordStore_Ordering(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	err := s.InsertBulk(ctx, []*domain.PoolRecord{
		record("rPool", "CCC", 300, base.Add(2*time.Hour)),
		record("rPool", "AAA", 100, base),
		record("rPool", "BBB", 200, base.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertBulk() error: %v", err)
	}

	got, err := s.GetByMarket(ctx, "rPool")
	if err != nil {
		t.Fatalf("GetByMarket() error: %v", err)
	}
	want := []string{"AAA", "BBB", "CCC"}
	for i, w := range want {
		if got[i].TxHash != w {
			t.Errorf("got[%d].TxHash = %s, want %s", i, got[i].TxHash, w)
		}
	}
}

func TestRecordStore_GetByLedgerRange(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	err := s.InsertBulk(ctx, []*domain.PoolRecord{
		record("rPool", "AAA", 100, base),
		record("rPool", "BBB", 200, base.Add(time.Hour)),
		record("rPool", "CCC", 300, base.Add(2*time.Hour)),
		record("rOther", "DDD", 200, base.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertBulk() error: %v", err)
	}

	got, err := s.GetByLedgerRange(ctx, "rPool", 150, 300)
	if err != nil {
		t.Fatalf("GetByLedgerRange() error: %v", err)
	}
	if len(got) != 2 || got[0].TxHash != "BBB" || got[1].TxHash != "CCC" {
		t.Fatalf("GetByLedgerRange() = %v, want BBB, CCC", got)
	}
}

func TestRecordStore_LatestLedgerIndex(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.LatestLedgerIndex(ctx, "rPool"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("LatestLedgerIndex() on empty store error = %v, want ErrNotFound", err)
	}

	err := s.InsertBulk(ctx, []*domain.PoolRecord{
		record("rPool", "AAA", 100, base),
		record("rPool", "BBB", 900, base.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertBulk() error: %v", err)
	}

	latest, err := s.LatestLedgerIndex(ctx, "rPool")
	if err != nil {
		t.Fatalf("LatestLedgerIndex() error: %v", err)
	}
	if latest != 900 {
		t.Errorf("LatestLedgerIndex() = %d, want 900", latest)
	}
}
