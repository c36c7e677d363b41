package scan

import (
	"log"
	"sort"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/idhash"
	"xrpl-amm-lab/internal/observability"
)

// Assembler turns joined events into the final deduplicated, time-ordered
// record sequence.
type Assembler struct {
	logger  *log.Logger
	metrics *observability.Metrics
}

// NewAssembler creates an assembler.
func NewAssembler(logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.Default()
	}
	return &Assembler{logger: logger, metrics: observability.DefaultMetrics}
}

// Assemble builds pool records from joined events. Duplicate record ids are
// dropped keeping the first occurrence, and the result is sorted by
// timestamp, then ledger index, then transaction hash so identical inputs
// always produce identical output. An empty outcome is ErrEmptyResult.
func (a *Assembler) Assemble(events []*domain.JoinedEvent) ([]domain.PoolRecord, error) {
	records := make([]domain.PoolRecord, 0, len(events))
	seen := make(map[string]struct{}, len(events))

	for _, ev := range events {
		id := idhash.ComputeRecordID(ev.Market, ev.Hash, ev.LedgerIndex)
		if _, dup := seen[id]; dup {
			a.logger.Printf("warn: dropping duplicate record %s (tx %s, ledger %d)", id, ev.Hash, ev.LedgerIndex)
			a.metrics.RecordsDropped.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[id] = struct{}{}

		records = append(records, domain.PoolRecord{
			RecordID:     id,
			Timestamp:    ev.Timestamp,
			LedgerIndex:  ev.LedgerIndex,
			TxHash:       ev.Hash,
			Market:       ev.Market,
			Asset1:       ev.Asset1.Symbol,
			Asset2:       ev.Asset2.Symbol,
			Asset1Amount: ev.Asset1Amount,
			Asset2Amount: ev.Asset2Amount,
			RawTx:        ev.Payload,
		})
		a.metrics.RecordsAssembled.Inc()
	}

	if len(records) == 0 {
		return nil, ErrEmptyResult
	}

	sort.SliceStable(records, func(i, k int) bool {
		if !records[i].Timestamp.Equal(records[k].Timestamp) {
			return records[i].Timestamp.Before(records[k].Timestamp)
		}
		if records[i].LedgerIndex != records[k].LedgerIndex {
			return records[i].LedgerIndex < records[k].LedgerIndex
		}
		return records[i].TxHash < records[k].TxHash
	})
	return records, nil
}
