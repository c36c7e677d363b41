package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"xrpl-amm-lab/internal/asset"
	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/observability"
	"xrpl-amm-lab/internal/xrpl"
)

// Options configures a Scanner.
type Options struct {
	RPC    xrpl.Client
	Config Config
	Logger *log.Logger
}

// Scanner runs the full pipeline for one AMM market: resolve the window,
// walk the history, sample, join pool state, and assemble records.
type Scanner struct {
	rpc       xrpl.Client
	cfg       Config
	resolver  *WindowResolver
	joiner    *Joiner
	assembler *Assembler
	logger    *log.Logger
	metrics   *observability.Metrics
}

// NewScanner creates a scanner from options.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.RPC == nil {
		return nil, errors.New("scan: rpc client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := opts.Config.withDefaults()
	return &Scanner{
		rpc:       opts.RPC,
		cfg:       cfg,
		resolver:  NewWindowResolver(opts.RPC, logger),
		joiner:    NewJoiner(opts.RPC, logger),
		assembler: NewAssembler(logger),
		logger:    logger,
		metrics:   observability.DefaultMetrics,
	}, nil
}

// Scan walks the configured window of market's history once and returns
// the assembled records. A transport failure mid-walk returns the records
// assembled up to the failure point together with the error; re-running
// over unchanged history yields the same record ids, so downstream dedupe
// makes the retry safe.
func (s *Scanner) Scan(ctx context.Context, market domain.Market) ([]domain.PoolRecord, error) {
	market, err := s.resolveMarket(ctx, market)
	if err != nil {
		return nil, err
	}

	window, err := s.resolver.Resolve(ctx, s.cfg)
	if err != nil {
		return nil, err
	}

	sampler := NewSampler(s.cfg.Types, s.cfg.MinSampleInterval)
	joined, walkErr := s.scanWindow(ctx, market, window, sampler)
	if walkErr != nil {
		if len(joined) == 0 {
			return nil, walkErr
		}
		records, asmErr := s.assembler.Assemble(joined)
		if asmErr != nil {
			return nil, walkErr
		}
		return records, walkErr
	}

	records, err := s.assembler.Assemble(joined)
	if err != nil {
		return nil, err
	}
	s.metrics.LastSuccessfulScan.SetToCurrentTime()
	return records, nil
}

// Tail scans the configured window once, then follows the ledger stream,
// scanning each newly closed span incrementally. Records are delivered
// through emit; the sampler persists across windows so the interval gate
// holds over the whole tail. Tail returns when the stream closes, the
// context ends, or emit fails.
func (s *Scanner) Tail(ctx context.Context, market domain.Market, stream xrpl.LedgerStream, emit func([]domain.PoolRecord) error) error {
	market, err := s.resolveMarket(ctx, market)
	if err != nil {
		return err
	}

	window, err := s.resolver.Resolve(ctx, s.cfg)
	if err != nil {
		return err
	}

	sampler := NewSampler(s.cfg.Types, s.cfg.MinSampleInterval)
	if err := s.tailWindow(ctx, market, window, sampler, emit); err != nil {
		return err
	}
	lastProcessed := window.MaxIndex

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case lc, ok := <-stream.Ledgers():
			if !ok {
				return nil
			}
			s.metrics.TailLedgersClosed.Inc()
			if lc.LedgerIndex <= lastProcessed {
				continue
			}
			next := domain.LedgerWindow{MinIndex: lastProcessed + 1, MaxIndex: lc.LedgerIndex}
			if err := s.tailWindow(ctx, market, next, sampler, emit); err != nil {
				return err
			}
			lastProcessed = lc.LedgerIndex
		}
	}
}

// tailWindow scans one window and emits its records. An empty window is not
// an error in tail mode.
func (s *Scanner) tailWindow(ctx context.Context, market domain.Market, window domain.LedgerWindow, sampler *Sampler, emit func([]domain.PoolRecord) error) error {
	joined, err := s.scanWindow(ctx, market, window, sampler)
	if err != nil {
		return err
	}
	records, err := s.assembler.Assemble(joined)
	if err != nil {
		if errors.Is(err, ErrEmptyResult) {
			return nil
		}
		return err
	}
	if err := emit(records); err != nil {
		return fmt.Errorf("emit %d records: %w", len(records), err)
	}
	s.metrics.LastSuccessfulScan.SetToCurrentTime()
	return nil
}

// scanWindow walks one window, sampling and joining as it goes. A join
// with no auxiliary data drops that event with a warning; a transport
// failure returns the events joined so far together with the error.
func (s *Scanner) scanWindow(ctx context.Context, market domain.Market, window domain.LedgerWindow, sampler *Sampler) ([]*domain.JoinedEvent, error) {
	walker := NewWalker(s.rpc, market.Account, window, s.cfg.PageSize, s.logger)
	start := time.Now()
	var joined []*domain.JoinedEvent

	for {
		event, err := walker.Next(ctx)
		if err != nil {
			return joined, err
		}
		if event == nil {
			break
		}
		if !sampler.Admit(event) {
			continue
		}
		s.metrics.EventsSampled.Inc()

		je, err := s.joiner.Join(ctx, market, event)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return joined, err
			}
			s.logger.Printf("warn: %v", err)
			continue
		}
		joined = append(joined, je)
	}

	s.logger.Printf("scanned ledgers [%d, %d] for %s: %d events joined in %s",
		window.MinIndex, window.MaxIndex, market.Account, len(joined), time.Since(start).Round(time.Millisecond))
	return joined, nil
}

// resolveMarket fills in the asset pair from amm_info when the caller only
// supplied the pool account.
func (s *Scanner) resolveMarket(ctx context.Context, market domain.Market) (domain.Market, error) {
	if !asset.IsValidAddress(market.Account) {
		return market, fmt.Errorf("scan: invalid market account %q", market.Account)
	}
	if market.Resolved() {
		return market, nil
	}
	info, err := s.rpc.AMMInfo(ctx, market.Account)
	if err != nil {
		return market, fmt.Errorf("resolve market %s: %w", market.Account, err)
	}
	a1, err := assetFromAmount(info.Amount)
	if err != nil {
		return market, fmt.Errorf("resolve market %s: %w", market.Account, err)
	}
	a2, err := assetFromAmount(info.Amount2)
	if err != nil {
		return market, fmt.Errorf("resolve market %s: %w", market.Account, err)
	}
	market.Asset1 = a1
	market.Asset2 = a2
	s.logger.Printf("resolved market %s: %s/%s", market.Account, a1.Symbol, a2.Symbol)
	return market, nil
}

func assetFromAmount(a xrpl.Amount) (domain.AssetID, error) {
	if a.Native {
		return domain.AssetID{Symbol: asset.XRP}, nil
	}
	symbol, err := asset.DecodeCurrencySymbol(a.Currency)
	if err != nil {
		return domain.AssetID{}, err
	}
	return domain.AssetID{Symbol: symbol, Issuer: a.Issuer}, nil
}
