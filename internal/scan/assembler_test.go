package scan

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-amm-lab/internal/domain"
)

func joinedAt(hash string, ledgerIndex int64, ts time.Time) *domain.JoinedEvent {
	amt := decimal.RequireFromString("100")
	return &domain.JoinedEvent{
		RawEvent: domain.RawEvent{
			LedgerIndex: ledgerIndex,
			Timestamp:   ts,
			Type:        domain.TxTypePayment,
			Hash:        hash,
			Payload:     []byte(`{"TransactionType":"Payment"}`),
		},
		Market:       "rPool",
		Asset1:       domain.AssetID{Symbol: "XRP"},
		Asset2:       domain.AssetID{Symbol: "USD", Issuer: "rIssuer"},
		Asset1Amount: &amt,
		Asset2Amount: &amt,
	}
}

func TestAssembler_SortsByTimeThenLedgerThenHash(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []*domain.JoinedEvent{
		joinedAt("CCC", 300, base.Add(2*time.Hour)),
		joinedAt("BBB", 200, base),
		joinedAt("AAA", 200, base),
		joinedAt("DDD", 100, base),
	}

	a := NewAssembler(nil)
	records, err := a.Assemble(events)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	wantHashes := []string{"DDD", "AAA", "BBB", "CCC"}
	if len(records) != len(wantHashes) {
		t.Fatalf("got %d records, want %d", len(records), len(wantHashes))
	}
	for i, want := range wantHashes {
		if records[i].TxHash != want {
			t.Errorf("records[%d].TxHash = %s, want %s", i, records[i].TxHash, want)
		}
	}
}

func TestAssembler_DeduplicatesByRecordID(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []*domain.JoinedEvent{
		joinedAt("AAA", 100, base),
		joinedAt("AAA", 100, base), // replay of the same tx
		joinedAt("BBB", 100, base),
	}

	a := NewAssembler(nil)
	records, err := a.Assemble(events)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestAssembler_EmptyResult(t *testing.T) {
	a := NewAssembler(nil)
	_, err := a.Assemble(nil)
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("Assemble() error = %v, want ErrEmptyResult", err)
	}
}

func TestAssembler_RecordFields(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ev := joinedAt("AAA", 100, base)
	ev.Asset2Amount = nil

	a := NewAssembler(nil)
	records, err := a.Assemble([]*domain.JoinedEvent{ev})
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	rec := records[0]
	if len(rec.RecordID) != 64 {
		t.Errorf("RecordID length = %d, want 64", len(rec.RecordID))
	}
	if rec.Market != "rPool" || rec.Asset1 != "XRP" || rec.Asset2 != "USD" {
		t.Errorf("record identity = (%s, %s, %s)", rec.Market, rec.Asset1, rec.Asset2)
	}
	if rec.Asset2Amount != nil {
		t.Errorf("Asset2Amount = %v, want nil carried through", rec.Asset2Amount)
	}
	if len(rec.RawTx) == 0 {
		t.Error("RawTx not retained")
	}
}

func TestAssembler_Deterministic(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	build := func() []*domain.JoinedEvent {
		return []*domain.JoinedEvent{
			joinedAt("BBB", 200, base.Add(time.Hour)),
			joinedAt("AAA", 100, base),
			joinedAt("CCC", 300, base.Add(2*time.Hour)),
		}
	}

	a := NewAssembler(nil)
	first, err := a.Assemble(build())
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	second, err := a.Assemble(build())
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	for i := range first {
		if first[i].RecordID != second[i].RecordID {
			t.Errorf("run ids diverge at %d: %s != %s", i, first[i].RecordID, second[i].RecordID)
		}
	}
}
