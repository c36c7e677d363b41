package scan

import (
	"context"
	"encoding/json"
	"log"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/observability"
	"xrpl-amm-lab/internal/xrpl"
)

type walkerState int

const (
	stateFetching walkerState = iota
	stateDraining
	stateDone
)

// Walker pulls an account's transaction history page by page in ascending
// ledger order. The server-side marker is round-tripped verbatim; the walk
// ends when the highest ledger index seen reaches the window's max bound,
// even if the server still offers a marker.
type Walker struct {
	rpc     xrpl.Client
	account string
	window  domain.LedgerWindow
	limit   int
	logger  *log.Logger
	metrics *observability.Metrics

	state    walkerState
	marker   json.RawMessage
	buffer   []xrpl.TransactionEntry
	pos      int
	lastSeen int64
}

// NewWalker creates a walker over the account's history within window.
func NewWalker(rpc xrpl.Client, account string, window domain.LedgerWindow, limit int, logger *log.Logger) *Walker {
	if logger == nil {
		logger = log.Default()
	}
	return &Walker{
		rpc:     rpc,
		account: account,
		window:  window,
		limit:   limit,
		logger:  logger,
		metrics: observability.DefaultMetrics,
	}
}

// Next returns the next transaction in ledger order, or (nil, nil) once the
// history is exhausted. Transport failures end the walk; malformed entries
// are skipped with a warning and do not.
func (w *Walker) Next(ctx context.Context) (*domain.RawEvent, error) {
	for {
		switch w.state {
		case stateDone:
			return nil, nil

		case stateDraining:
			if w.pos < len(w.buffer) {
				entry := w.buffer[w.pos]
				w.pos++
				if entry.LedgerIndex > w.lastSeen {
					w.lastSeen = entry.LedgerIndex
					w.metrics.HighestLedgerSeen.Set(float64(w.lastSeen))
				}
				event, ok := w.toEvent(entry)
				if !ok {
					continue
				}
				w.metrics.EventsSeen.Inc()
				return event, nil
			}
			// Page drained. The max-bound check comes before the marker:
			// a leftover marker past the cap must not trigger another
			// request.
			if w.lastSeen >= w.window.MaxIndex || w.marker == nil {
				w.state = stateDone
				continue
			}
			w.state = stateFetching

		case stateFetching:
			page, err := w.rpc.AccountTx(ctx, xrpl.AccountTxRequest{
				Account:        w.account,
				LedgerIndexMin: w.window.MinIndex,
				LedgerIndexMax: w.window.MaxIndex,
				Limit:          w.limit,
				Marker:         w.marker,
			})
			if err != nil {
				w.state = stateDone
				return nil, err
			}
			w.metrics.PagesFetched.Inc()
			w.buffer = page.Transactions
			w.pos = 0
			w.marker = page.Marker
			w.state = stateDraining
		}
	}
}

// LastSeen returns the highest ledger index encountered so far.
func (w *Walker) LastSeen() int64 {
	return w.lastSeen
}

// toEvent converts a history entry to a raw event, enforcing the entry is
// validated and its tx_json carries the inspected fields.
func (w *Walker) toEvent(entry xrpl.TransactionEntry) (*domain.RawEvent, bool) {
	if !entry.Validated {
		w.logger.Printf("warn: skipping unvalidated transaction %s at ledger %d", entry.Hash, entry.LedgerIndex)
		w.metrics.EventsSkipped.WithLabelValues("unvalidated").Inc()
		return nil, false
	}
	summary, err := entry.Summary()
	if err != nil {
		w.logger.Printf("warn: %v: %v", ErrDataQuality, err)
		w.metrics.EventsSkipped.WithLabelValues("malformed").Inc()
		return nil, false
	}
	return &domain.RawEvent{
		LedgerIndex: entry.LedgerIndex,
		Timestamp:   xrpl.RippleTimeToUTC(summary.Date),
		Type:        summary.TransactionType,
		Hash:        entry.Hash,
		Payload:     entry.TxJSON,
	}, true
}
