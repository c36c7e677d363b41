package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-amm-lab/internal/xrpl"
)

// fakeRPC is a test double for xrpl.Client with per-method hooks.
type fakeRPC struct {
	latestFn      func(ctx context.Context) (int64, error)
	closeTimeFn   func(ctx context.Context, index int64) (time.Time, error)
	accountTxFn   func(ctx context.Context, req xrpl.AccountTxRequest) (*xrpl.AccountTxPage, error)
	linesFn       func(ctx context.Context, account string, index int64) ([]xrpl.AccountLine, error)
	balanceFn     func(ctx context.Context, account string, index int64) (decimal.Decimal, error)
	ammInfoFn     func(ctx context.Context, account string) (*xrpl.AMMInfo, error)
	mu            sync.Mutex
	accountTxReqs []xrpl.AccountTxRequest
}

func (f *fakeRPC) LatestValidatedLedger(ctx context.Context) (int64, error) {
	if f.latestFn == nil {
		return 0, errors.New("latestFn not set")
	}
	return f.latestFn(ctx)
}

func (f *fakeRPC) LedgerCloseTime(ctx context.Context, index int64) (time.Time, error) {
	if f.closeTimeFn == nil {
		return time.Time{}, errors.New("closeTimeFn not set")
	}
	return f.closeTimeFn(ctx, index)
}

func (f *fakeRPC) AccountTx(ctx context.Context, req xrpl.AccountTxRequest) (*xrpl.AccountTxPage, error) {
	f.mu.Lock()
	f.accountTxReqs = append(f.accountTxReqs, req)
	f.mu.Unlock()
	if f.accountTxFn == nil {
		return nil, errors.New("accountTxFn not set")
	}
	return f.accountTxFn(ctx, req)
}

func (f *fakeRPC) AccountLines(ctx context.Context, account string, index int64) ([]xrpl.AccountLine, error) {
	if f.linesFn == nil {
		return nil, errors.New("linesFn not set")
	}
	return f.linesFn(ctx, account, index)
}

func (f *fakeRPC) XRPBalance(ctx context.Context, account string, index int64) (decimal.Decimal, error) {
	if f.balanceFn == nil {
		return decimal.Decimal{}, errors.New("balanceFn not set")
	}
	return f.balanceFn(ctx, account, index)
}

func (f *fakeRPC) AMMInfo(ctx context.Context, account string) (*xrpl.AMMInfo, error) {
	if f.ammInfoFn == nil {
		return nil, errors.New("ammInfoFn not set")
	}
	return f.ammInfoFn(ctx, account)
}

func (f *fakeRPC) requests() []xrpl.AccountTxRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]xrpl.AccountTxRequest, len(f.accountTxReqs))
	copy(out, f.accountTxReqs)
	return out
}

// historyService simulates the server side of account_tx over a fixed
// ledger-index history, honoring bounds, limits, and opaque markers the way
// rippled does with forward=true.
type historyService struct {
	entries []xrpl.TransactionEntry
}

// newHistory builds validated Payment entries at the given ledger indices,
// one transaction per index, with close times spaced an hour apart.
func newHistory(indices ...int64) *historyService {
	h := &historyService{}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, idx := range indices {
		h.entries = append(h.entries, paymentEntry(fmt.Sprintf("HASH%04d", i), idx, base.Add(time.Duration(i)*time.Hour)))
	}
	return h
}

func paymentEntry(hash string, ledgerIndex int64, ts time.Time) xrpl.TransactionEntry {
	txJSON, _ := json.Marshal(map[string]any{
		"TransactionType": "Payment",
		"Account":         "rSender",
		"Destination":     "rPool",
		"date":            xrpl.UTCToRippleTime(ts),
	})
	return xrpl.TransactionEntry{
		Hash:        hash,
		LedgerIndex: ledgerIndex,
		Validated:   true,
		TxJSON:      txJSON,
	}
}

func (h *historyService) accountTx(_ context.Context, req xrpl.AccountTxRequest) (*xrpl.AccountTxPage, error) {
	start := 0
	if len(req.Marker) > 0 {
		if err := json.Unmarshal(req.Marker, &start); err != nil {
			return nil, fmt.Errorf("bad marker: %w", err)
		}
	}

	var page xrpl.AccountTxPage
	i := start
	for ; i < len(h.entries); i++ {
		e := h.entries[i]
		if req.LedgerIndexMin >= 0 && e.LedgerIndex < req.LedgerIndexMin {
			continue
		}
		if e.LedgerIndex > req.LedgerIndexMax {
			break
		}
		if req.Limit > 0 && len(page.Transactions) == req.Limit {
			break
		}
		page.Transactions = append(page.Transactions, e)
	}
	if i < len(h.entries) && h.entries[i].LedgerIndex <= req.LedgerIndexMax {
		page.Marker, _ = json.Marshal(i)
	}
	return &page, nil
}
