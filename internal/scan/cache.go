package scan

import (
	"container/list"
	"time"
)

// ledgerTimeCache memoizes ledger close times for the window resolver's
// binary search. It is scan-scoped and passed explicitly; keys are ledger
// indices and eviction is least-recently-used.
type ledgerTimeCache struct {
	maxSize int
	entries map[int64]*list.Element
	order   *list.List // front = most recently used
}

type ledgerTimeEntry struct {
	index     int64
	closeTime time.Time
}

func newLedgerTimeCache(maxSize int) *ledgerTimeCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &ledgerTimeCache{
		maxSize: maxSize,
		entries: make(map[int64]*list.Element),
		order:   list.New(),
	}
}

func (c *ledgerTimeCache) get(index int64) (time.Time, bool) {
	elem, ok := c.entries[index]
	if !ok {
		return time.Time{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(ledgerTimeEntry).closeTime, true
}

func (c *ledgerTimeCache) put(index int64, closeTime time.Time) {
	if elem, ok := c.entries[index]; ok {
		c.order.MoveToFront(elem)
		return
	}
	c.entries[index] = c.order.PushFront(ledgerTimeEntry{index: index, closeTime: closeTime})
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(ledgerTimeEntry).index)
	}
}

func (c *ledgerTimeCache) len() int {
	return c.order.Len()
}
