package scan

import (
	"testing"
	"time"
)

func TestLedgerTimeCache_Eviction(t *testing.T) {
	c := newLedgerTimeCache(2)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	c.put(1, base)
	c.put(2, base.Add(time.Second))
	c.put(3, base.Add(2*time.Second))

	if c.len() != 2 {
		t.Fatalf("len() = %d, want 2", c.len())
	}
	if _, ok := c.get(1); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.get(3); !ok {
		t.Error("newest entry missing")
	}
}

func TestLedgerTimeCache_GetRefreshesRecency(t *testing.T) {
	c := newLedgerTimeCache(2)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	c.put(1, base)
	c.put(2, base.Add(time.Second))
	c.get(1) // 2 is now least recently used
	c.put(3, base.Add(2*time.Second))

	if _, ok := c.get(1); !ok {
		t.Error("recently read entry was evicted")
	}
	if _, ok := c.get(2); ok {
		t.Error("least recently used entry survived eviction")
	}
}

func TestLedgerTimeCache_PutExistingKeepsValue(t *testing.T) {
	c := newLedgerTimeCache(4)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	c.put(7, base)
	c.put(7, base.Add(time.Hour))

	got, ok := c.get(7)
	if !ok {
		t.Fatal("entry missing")
	}
	// Ledger close times are immutable; the first write wins.
	if !got.Equal(base) {
		t.Errorf("get(7) = %v, want %v", got, base)
	}
	if c.len() != 1 {
		t.Errorf("len() = %d, want 1", c.len())
	}
}
