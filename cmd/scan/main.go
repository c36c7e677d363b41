package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"xrpl-amm-lab/internal/domain"
	"xrpl-amm-lab/internal/observability"
	"xrpl-amm-lab/internal/scan"
	"xrpl-amm-lab/internal/storage"
	chstore "xrpl-amm-lab/internal/storage/clickhouse"
	"xrpl-amm-lab/internal/storage/memory"
	"xrpl-amm-lab/internal/storage/migrations"
	pgstore "xrpl-amm-lab/internal/storage/postgres"
	"xrpl-amm-lab/internal/xrpl"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "scan", "Run mode: scan (one window) or tail (follow the ledger)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "rippled JSON-RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "rippled WebSocket endpoint (tail mode)")
	market := flag.String("market", "", "AMM pool account address")
	asset1 := flag.String("asset1", "", "First pool asset as SYMBOL or SYMBOL:issuer (resolved via amm_info when omitted)")
	asset2 := flag.String("asset2", "", "Second pool asset as SYMBOL or SYMBOL:issuer")
	fromLedger := flag.Int64("from-ledger", 0, "Start ledger index (0 = earliest history)")
	toLedger := flag.Int64("to-ledger", 0, "End ledger index (0 = latest validated)")
	fromTime := flag.String("from-time", "", "Start time (RFC3339); overrides --from-ledger")
	sampleInterval := flag.Duration("sample-interval", scan.DefaultSampleInterval, "Minimum gap between sampled events")
	pageSize := flag.Int("page-size", scan.DefaultPageSize, "account_tx page size")
	types := flag.String("types", "", "Comma-separated transaction types to admit (default Payment)")
	resume := flag.Bool("resume", false, "Resume from the highest ledger index already stored")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the analytics sink (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[scan] ", log.LstdFlags|log.Lshortfile)

	if *market == "" {
		logger.Fatal("--market is required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	cfg := scan.Config{
		PageSize:          *pageSize,
		MinSampleInterval: *sampleInterval,
		MinLedgerIndex:    *fromLedger,
		MaxLedgerIndex:    *toLedger,
		Types:             splitTypes(*types),
	}
	if *fromTime != "" {
		t, err := time.Parse(time.RFC3339, *fromTime)
		if err != nil {
			logger.Fatalf("Invalid --from-time: %v", err)
		}
		cfg.FromTime = t
	}

	pool, err := parseMarket(*market, *asset1, *asset2)
	if err != nil {
		logger.Fatalf("Invalid market flags: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	switch *mode {
	case "scan", "tail":
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}
	err = run(ctx, logger, *mode, *rpcEndpoint, *wsEndpoint, *postgresDSN, *clickhouseDSN, *useMemory, *resume, cfg, pool)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, mode, rpcEndpoint, wsEndpoint, postgresDSN, clickhouseDSN string, useMemory, resume bool, cfg scan.Config, pool domain.Market) error {
	// Require --postgres-dsn unless --use-memory is explicitly set
	if !useMemory && postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	var recordStore storage.RecordStore = memory.NewRecordStore()
	if !useMemory {
		pgPool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pgPool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
			return fmt.Errorf("apply postgres migrations: %w", err)
		}
		recordStore = pgstore.NewRecordStore(pgPool)
	}

	var reserveSeries storage.ReserveSeriesStore
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("prepare clickhouse: %w", err)
		}
		defer conn.Close()
		reserveSeries = chstore.NewReserveSeriesStore(conn)
	}

	if resume {
		latest, err := recordStore.LatestLedgerIndex(ctx, pool.Account)
		switch {
		case err == nil:
			cfg.MinLedgerIndex = latest + 1
			cfg.FromTime = time.Time{}
			logger.Printf("Resuming %s from ledger %d", pool.Account, cfg.MinLedgerIndex)
		case errors.Is(err, storage.ErrNotFound):
			logger.Printf("No stored records for %s, starting fresh", pool.Account)
		default:
			return fmt.Errorf("determine resume point: %w", err)
		}
	}

	rpc := xrpl.NewHTTPClient(rpcEndpoint, xrpl.WithLogger(logger))
	scanner, err := scan.NewScanner(scan.Options{RPC: rpc, Config: cfg, Logger: logger})
	if err != nil {
		return err
	}

	sink := &recordSink{store: recordStore, series: reserveSeries, logger: logger}

	switch mode {
	case "scan":
		records, scanErr := scanner.Scan(ctx, pool)
		if len(records) > 0 {
			if err := sink.persist(ctx, records); err != nil {
				return err
			}
		}
		return scanErr
	case "tail":
		if wsEndpoint == "" {
			return fmt.Errorf("--ws-endpoint is required for tail mode")
		}
		stream, err := xrpl.NewWSClient(ctx, wsEndpoint, nil, logger)
		if err != nil {
			return fmt.Errorf("create ledger stream: %w", err)
		}
		defer stream.Close()

		logger.Printf("Tailing %s...", pool.Account)
		return scanner.Tail(ctx, pool, stream, func(records []domain.PoolRecord) error {
			return sink.persist(ctx, records)
		})
	}
	return fmt.Errorf("unknown mode: %s", mode)
}

// recordSink persists assembled records, tolerating replays of already
// stored record ids.
type recordSink struct {
	store  storage.RecordStore
	series storage.ReserveSeriesStore
	logger *log.Logger
}

func (s *recordSink) persist(ctx context.Context, records []domain.PoolRecord) error {
	var fresh []*domain.PoolRecord
	for i := range records {
		r := &records[i]
		err := s.store.Insert(ctx, r)
		switch {
		case err == nil:
			fresh = append(fresh, r)
		case errors.Is(err, storage.ErrDuplicateKey):
			// Re-scan over known history; already persisted.
		default:
			return fmt.Errorf("store record %s: %w", r.RecordID, err)
		}
	}
	s.logger.Printf("Persisted %d new records (%d already stored)", len(fresh), len(records)-len(fresh))

	if s.series != nil && len(fresh) > 0 {
		if err := s.series.InsertBulk(ctx, fresh); err != nil {
			return fmt.Errorf("store reserve series: %w", err)
		}
	}
	return nil
}

// parseMarket builds the market from CLI flags. Assets use SYMBOL or
// SYMBOL:issuer; both or neither must be given.
func parseMarket(account, asset1, asset2 string) (domain.Market, error) {
	m := domain.Market{Account: strings.TrimSpace(account)}
	if (asset1 == "") != (asset2 == "") {
		return m, fmt.Errorf("--asset1 and --asset2 must be given together")
	}
	if asset1 == "" {
		return m, nil
	}
	var err error
	if m.Asset1, err = parseAsset(asset1); err != nil {
		return m, err
	}
	if m.Asset2, err = parseAsset(asset2); err != nil {
		return m, err
	}
	return m, nil
}

func parseAsset(s string) (domain.AssetID, error) {
	symbol, issuer, found := strings.Cut(strings.TrimSpace(s), ":")
	if symbol == "" {
		return domain.AssetID{}, fmt.Errorf("empty asset symbol in %q", s)
	}
	if symbol == "XRP" {
		if found && issuer != "" {
			return domain.AssetID{}, fmt.Errorf("XRP has no issuer")
		}
		return domain.AssetID{Symbol: "XRP"}, nil
	}
	if !found || issuer == "" {
		return domain.AssetID{}, fmt.Errorf("issued asset %q needs SYMBOL:issuer", s)
	}
	return domain.AssetID{Symbol: symbol, Issuer: issuer}, nil
}

func splitTypes(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
