package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/xrpl"
)

// genesisLedgerIndex is the first ledger index with retrievable history on
// mainnet. The time-based search never probes below it.
const genesisLedgerIndex int64 = 32570

// WindowResolver turns scan configuration into a concrete ledger window.
// Every failure to establish bounds wraps ErrWindowUnresolvable; the scan
// must not start on a guessed window.
type WindowResolver struct {
	rpc    xrpl.Client
	cache  *ledgerTimeCache
	logger *log.Logger
}

// NewWindowResolver creates a resolver with a scan-scoped close-time cache.
func NewWindowResolver(rpc xrpl.Client, logger *log.Logger) *WindowResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &WindowResolver{
		rpc:    rpc,
		cache:  newLedgerTimeCache(256),
		logger: logger,
	}
}

// Resolve computes the window for cfg. The max bound is the explicit cap
// when set, otherwise the latest validated index at call time. The min
// bound is the configured index, or when FromTime is set, the validated
// index whose close time is nearest FromTime.
func (r *WindowResolver) Resolve(ctx context.Context, cfg Config) (domain.LedgerWindow, error) {
	maxIndex := cfg.MaxLedgerIndex
	if maxIndex == 0 {
		latest, err := r.rpc.LatestValidatedLedger(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.LedgerWindow{}, err
			}
			return domain.LedgerWindow{}, fmt.Errorf("%w: latest validated ledger: %w", ErrWindowUnresolvable, err)
		}
		maxIndex = latest
	}

	minIndex := cfg.MinLedgerIndex
	if !cfg.FromTime.IsZero() {
		idx, err := r.closestIndexForTime(ctx, cfg.FromTime, maxIndex)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.LedgerWindow{}, err
			}
			return domain.LedgerWindow{}, fmt.Errorf("%w: ledger index for %s: %w",
				ErrWindowUnresolvable, cfg.FromTime.UTC().Format(time.RFC3339), err)
		}
		minIndex = idx
	}

	window := domain.LedgerWindow{MinIndex: minIndex, MaxIndex: maxIndex}
	if minIndex != domain.EarliestLedger && !window.Valid() {
		return domain.LedgerWindow{}, fmt.Errorf("%w: min %d exceeds max %d",
			ErrWindowUnresolvable, minIndex, maxIndex)
	}

	r.logger.Printf("resolved ledger window [%d, %d]", window.MinIndex, window.MaxIndex)
	return window, nil
}

// closestIndexForTime binary-searches validated ledgers for the index whose
// close time is nearest target. Close times are memoized in the resolver's
// cache; a tail scan resolving successive windows reuses earlier probes.
func (r *WindowResolver) closestIndexForTime(ctx context.Context, target time.Time, maxIndex int64) (int64, error) {
	lo, hi := genesisLedgerIndex, maxIndex
	if hi < lo {
		return 0, fmt.Errorf("max index %d below genesis", maxIndex)
	}

	for lo < hi {
		mid := lo + (hi-lo)/2
		closeTime, err := r.ledgerCloseTime(ctx, mid)
		if err != nil {
			return 0, err
		}
		if closeTime.Before(target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	// lo is the first index closing at or after target. The neighbor below
	// may still be closer in wall-clock terms.
	if lo > genesisLedgerIndex {
		atOrAfter, err := r.ledgerCloseTime(ctx, lo)
		if err != nil {
			return 0, err
		}
		before, err := r.ledgerCloseTime(ctx, lo-1)
		if err != nil {
			return 0, err
		}
		if target.Sub(before) < atOrAfter.Sub(target) {
			return lo - 1, nil
		}
	}
	return lo, nil
}

func (r *WindowResolver) ledgerCloseTime(ctx context.Context, index int64) (time.Time, error) {
	if t, ok := r.cache.get(index); ok {
		return t, nil
	}
	t, err := r.rpc.LedgerCloseTime(ctx, index)
	if err != nil {
		return time.Time{}, err
	}
	r.cache.put(index, t)
	return t, nil
}
