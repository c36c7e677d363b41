package xrpl

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAmount_UnmarshalDrops(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`"3309114747027"`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !a.Native {
		t.Error("expected native amount")
	}
	if a.Value.String() != "3309114.747027" {
		t.Errorf("expected 3309114.747027, got %s", a.Value)
	}
}

func TestAmount_UnmarshalIssued(t *testing.T) {
	raw := `{"currency":"43525950544F0000000000000000000000000000","issuer":"rIssuer","value":"661186.9433432882"}`

	var a Amount
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Native {
		t.Error("expected issued amount")
	}
	if a.Issuer != "rIssuer" {
		t.Errorf("unexpected issuer: %s", a.Issuer)
	}
	if a.Value.String() != "661186.9433432882" {
		t.Errorf("value precision lost: %s", a.Value)
	}
}

func TestAmount_UnmarshalBadValue(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`{"currency":"USD","value":"not-a-number"}`), &a); err == nil {
		t.Fatal("expected error for malformed value")
	}
}

func TestRippleTimeRoundTrip(t *testing.T) {
	// 2025-01-18T17:33:20Z is 791 million seconds past the ripple epoch.
	ts := RippleTimeToUTC(791000000)
	want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(791000000 * time.Second)
	if !ts.Equal(want) {
		t.Errorf("RippleTimeToUTC = %v, want %v", ts, want)
	}
	if got := UTCToRippleTime(ts); got != 791000000 {
		t.Errorf("UTCToRippleTime = %d, want 791000000", got)
	}
}

func TestTransactionEntry_Summary(t *testing.T) {
	entry := TransactionEntry{
		Hash:        "DEF",
		LedgerIndex: 5,
		TxJSON:      json.RawMessage(`{"TransactionType":"OfferCreate","Account":"rTaker","date":791000100}`),
	}

	s, err := entry.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.TransactionType != "OfferCreate" {
		t.Errorf("unexpected type: %s", s.TransactionType)
	}
	if s.Date != 791000100 {
		t.Errorf("unexpected date: %d", s.Date)
	}
}

func TestTransactionEntry_SummaryMissingTxJSON(t *testing.T) {
	entry := TransactionEntry{Hash: "DEF", LedgerIndex: 5}
	if _, err := entry.Summary(); err == nil {
		t.Fatal("expected error for empty tx_json")
	}

	entry.TxJSON = json.RawMessage(`{"date":1}`)
	if _, err := entry.Summary(); err == nil {
		t.Fatal("expected error for missing TransactionType")
	}
}
