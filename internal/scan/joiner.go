package scan

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"xrpl-amm-lab/internal/asset"
	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/observability"
	"xrpl-amm-lab/internal/xrpl"
)

// Joiner merges a sampled event with the pool's reserves queried at the
// event's own ledger index. Both auxiliary queries run concurrently; a
// record with one side missing is still produced, and ErrJoinIncomplete is
// reported only when no auxiliary data at all could be retrieved.
type Joiner struct {
	rpc     xrpl.Client
	logger  *log.Logger
	metrics *observability.Metrics
}

// NewJoiner creates a joiner backed by the given ledger-query client.
func NewJoiner(rpc xrpl.Client, logger *log.Logger) *Joiner {
	if logger == nil {
		logger = log.Default()
	}
	return &Joiner{rpc: rpc, logger: logger, metrics: observability.DefaultMetrics}
}

// Join resolves both reserve sides of market as of event's ledger index.
func (j *Joiner) Join(ctx context.Context, market domain.Market, event *domain.RawEvent) (*domain.JoinedEvent, error) {
	needLines := !market.Asset1.IsXRP() || !market.Asset2.IsXRP()
	needBalance := market.Asset1.IsXRP() || market.Asset2.IsXRP()

	var (
		wg         sync.WaitGroup
		lines      []xrpl.AccountLine
		linesErr   error
		balance    decimal.Decimal
		balanceErr error
	)

	if needLines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lines, linesErr = j.rpc.AccountLines(ctx, market.Account, event.LedgerIndex)
		}()
	}
	if needBalance {
		wg.Add(1)
		go func() {
			defer wg.Done()
			balance, balanceErr = j.rpc.XRPBalance(ctx, market.Account, event.LedgerIndex)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if linesErr != nil {
		j.logger.Printf("warn: account_lines for %s at ledger %d: %v", market.Account, event.LedgerIndex, linesErr)
	}
	if balanceErr != nil {
		j.logger.Printf("warn: xrp balance for %s at ledger %d: %v", market.Account, event.LedgerIndex, balanceErr)
	}
	linesOK := needLines && linesErr == nil
	balanceOK := needBalance && balanceErr == nil
	if !linesOK && !balanceOK {
		j.metrics.JoinsFailed.Inc()
		return nil, fmt.Errorf("%w: %s at ledger %d", ErrJoinIncomplete, event.Hash, event.LedgerIndex)
	}

	joined := &domain.JoinedEvent{
		RawEvent: *event,
		Market:   market.Account,
		Asset1:   market.Asset1,
		Asset2:   market.Asset2,
	}
	joined.Asset1Amount = j.resolveSide(market.Asset1, lines, linesErr, balance, balanceErr)
	joined.Asset2Amount = j.resolveSide(market.Asset2, lines, linesErr, balance, balanceErr)

	if joined.Asset1Amount != nil && joined.Asset2Amount != nil {
		j.metrics.JoinsCompleted.Inc()
	} else {
		j.metrics.JoinsPartial.Inc()
	}
	return joined, nil
}

// resolveSide finds one asset's reserve among the join results. A missing
// or unparseable side yields nil.
func (j *Joiner) resolveSide(a domain.AssetID, lines []xrpl.AccountLine, linesErr error, balance decimal.Decimal, balanceErr error) *decimal.Decimal {
	if a.IsXRP() {
		if balanceErr != nil {
			return nil
		}
		v := balance
		return &v
	}
	if linesErr != nil {
		return nil
	}
	for _, line := range lines {
		symbol, err := asset.DecodeCurrencySymbol(line.Currency)
		if err != nil {
			j.logger.Printf("warn: %v: currency %q: %v", ErrDataQuality, line.Currency, err)
			continue
		}
		if symbol != a.Symbol || line.Account != a.Issuer {
			continue
		}
		v, err := decimal.NewFromString(line.Balance)
		if err != nil {
			j.logger.Printf("warn: %v: balance %q for %s: %v", ErrDataQuality, line.Balance, symbol, err)
			return nil
		}
		// AMM trust-line balances are held from the pool's perspective
		// and come back negative.
		v = v.Abs()
		return &v
	}
	return nil
}
