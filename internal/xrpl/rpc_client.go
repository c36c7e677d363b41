package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-amm-lab/internal/observability"
)

// Default configuration values. Retry defaults are sized for public cluster
// endpoints, which shed load with 5xx and dropped connections under bursts.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 8
	DefaultRetryDelay = 2500 * time.Millisecond
)

// HTTPClient implements Client over rippled's HTTP JSON-RPC endpoint with
// bounded retries and exponential backoff.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	jitter     func(time.Duration) time.Duration
	logger     *log.Logger
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets the maximum retry attempts after the initial call.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithLogger sets the logger used for retry reporting.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// withoutJitter disables backoff jitter. Test hook.
func withoutJitter() ClientOption {
	return func(c *HTTPClient) {
		c.jitter = func(time.Duration) time.Duration { return 0 }
	}
}

// NewHTTPClient creates a new rippled JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		// Up to half the base step, so delays stay monotonic across
		// attempts while concurrent scanners desynchronize.
		jitter: func(step time.Duration) time.Duration {
			return time.Duration(rand.Int63n(int64(step)/2 + 1))
		},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest is a rippled JSON-RPC request. rippled expects a single params
// object wrapped in an array.
type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

// rpcEnvelope is the outer rippled response shape.
type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// rpcStatus carries rippled's in-band error reporting.
type rpcStatus struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// rpcError is a terminal rippled application error, e.g. actNotFound.
type rpcError struct {
	Code    string
	Message string
}

func (e *rpcError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rippled error %s", e.Code)
	}
	return fmt.Sprintf("rippled error %s: %s", e.Code, e.Message)
}

// terminalHTTPError is a non-retryable HTTP failure (4xx).
type terminalHTTPError struct {
	status int
	body   string
}

func (e *terminalHTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.status, e.body)
}

// call performs one logical JSON-RPC call. Transient failures (connection
// errors, timeouts, HTTP >= 500, malformed bodies) are retried with
// exponential backoff; after the budget is spent the last failure is
// surfaced wrapped in ErrExhausted. rippled application errors and other
// 4xx responses fail immediately. Context cancellation is honored before
// each attempt and during each backoff sleep and propagates as ctx.Err().
func (c *HTTPClient) call(ctx context.Context, method string, params any, result any) error {
	var wrapped []any
	if params != nil {
		wrapped = []any{params}
	}
	body, err := json.Marshal(rpcRequest{Method: method, Params: wrapped})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.DefaultMetrics.RPCRetries.WithLabelValues(method).Inc()
			delay := c.backoff(attempt - 1)
			c.logger.Printf("xrpl: %s failed (attempt %d/%d): %v; retrying in %v",
				method, attempt, c.maxRetries+1, lastErr, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var terminal *terminalHTTPError
			if errors.As(err, &terminal) {
				return fmt.Errorf("%s: %w", method, err)
			}
			lastErr = err
			continue
		}

		var envelope rpcEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			// Malformed body: proxies and overloaded nodes return
			// HTML error pages with a 200.
			lastErr = fmt.Errorf("malformed response body: %w", err)
			continue
		}

		var status rpcStatus
		if err := json.Unmarshal(envelope.Result, &status); err == nil && status.Status == "error" {
			return fmt.Errorf("%s: %w", method, &rpcError{Code: status.ErrorCode, Message: status.ErrorMessage})
		}

		if result != nil {
			if err := json.Unmarshal(envelope.Result, result); err != nil {
				lastErr = fmt.Errorf("malformed %s result: %w", method, err)
				continue
			}
		}
		return nil
	}

	c.logger.Printf("xrpl: %s failed after %d attempts: %v", method, c.maxRetries+1, lastErr)
	return fmt.Errorf("%s after %d attempts: %w: %w", method, c.maxRetries+1, ErrExhausted, lastErr)
}

// backoff computes the sleep before retrying after the i-th failed attempt
// (0-indexed): retryDelay * 2^i plus jitter bounded by half the base step,
// so the schedule stays non-decreasing.
func (c *HTTPClient) backoff(i int) time.Duration {
	delay := c.retryDelay << i
	return delay + c.jitter(delay)
}

// post performs a single HTTP exchange and classifies the status code.
func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &terminalHTTPError{status: 0, body: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(raw))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 400:
		return nil, &terminalHTTPError{status: resp.StatusCode, body: truncate(raw)}
	}
	return raw, nil
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// LatestValidatedLedger returns the index of the most recently validated
// ledger.
func (c *HTTPClient) LatestValidatedLedger(ctx context.Context) (int64, error) {
	params := map[string]any{
		"ledger_index": "validated",
		"transactions": false,
		"expand":       false,
	}
	var result ledgerResult
	if err := c.call(ctx, "ledger", params, &result); err != nil {
		return 0, err
	}
	return result.LedgerIndex, nil
}

// LedgerCloseTime returns the close time of a ledger by index.
func (c *HTTPClient) LedgerCloseTime(ctx context.Context, ledgerIndex int64) (time.Time, error) {
	params := map[string]any{
		"ledger_index": ledgerIndex,
		"transactions": false,
		"expand":       false,
	}
	var result ledgerResult
	if err := c.call(ctx, "ledger", params, &result); err != nil {
		return time.Time{}, err
	}
	return RippleTimeToUTC(result.Ledger.CloseTime), nil
}

// AccountTx retrieves one page of transaction history. History is always
// requested oldest-first; the ledger-index bounds are enforced server-side.
func (c *HTTPClient) AccountTx(ctx context.Context, req AccountTxRequest) (*AccountTxPage, error) {
	params := accountTxParams{
		Account:        req.Account,
		LedgerIndexMin: req.LedgerIndexMin,
		LedgerIndexMax: req.LedgerIndexMax,
		Limit:          req.Limit,
		Marker:         req.Marker,
		Forward:        true,
	}
	var result accountTxResult
	if err := c.call(ctx, "account_tx", params, &result); err != nil {
		return nil, err
	}
	marker := result.Marker
	// An explicit null marker means the same as an absent one.
	if string(marker) == "null" {
		marker = nil
	}
	return &AccountTxPage{
		Transactions: result.Transactions,
		Marker:       marker,
	}, nil
}

// AccountLines retrieves trust-line balances at a specific ledger index.
func (c *HTTPClient) AccountLines(ctx context.Context, account string, ledgerIndex int64) ([]AccountLine, error) {
	params := map[string]any{
		"account":      account,
		"ledger_index": ledgerIndex,
	}
	var result accountLinesResult
	if err := c.call(ctx, "account_lines", params, &result); err != nil {
		return nil, err
	}
	return result.Lines, nil
}

// XRPBalance retrieves the XRP balance of an account at a specific ledger
// index, converted from drops.
func (c *HTTPClient) XRPBalance(ctx context.Context, account string, ledgerIndex int64) (decimal.Decimal, error) {
	params := map[string]any{
		"account":      account,
		"ledger_index": ledgerIndex,
	}
	var result accountInfoResult
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return decimal.Zero, err
	}
	drops, err := decimal.NewFromString(result.AccountData.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", result.AccountData.Balance, err)
	}
	return drops.Div(dropsPerXRP), nil
}

// AMMInfo retrieves the asset pair and current reserves of an AMM account.
func (c *HTTPClient) AMMInfo(ctx context.Context, ammAccount string) (*AMMInfo, error) {
	params := map[string]any{
		"amm_account": ammAccount,
	}
	var result ammInfoResult
	if err := c.call(ctx, "amm_info", params, &result); err != nil {
		return nil, err
	}
	return &AMMInfo{
		Account: result.AMM.Account,
		Amount:  result.AMM.Amount,
		Amount2: result.AMM.Amount2,
	}, nil
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)
