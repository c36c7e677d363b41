package xrpl

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSClient subscribes to the rippled "ledger" stream over WebSocket and
// republishes validated-ledger closes. It reconnects and resubscribes on
// connection loss.
type WSClient struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	ledgers chan LedgerClosed
	done    chan struct{}
	wg      sync.WaitGroup
}

// wsCommand is a rippled WebSocket API request.
type wsCommand struct {
	ID      uint64   `json:"id"`
	Command string   `json:"command"`
	Streams []string `json:"streams,omitempty"`
}

// wsMessage covers both command responses and stream notifications.
type wsMessage struct {
	ID     uint64 `json:"id,omitempty"`
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`

	// ledgerClosed fields
	LedgerIndex int64 `json:"ledger_index,omitempty"`
	LedgerTime  int64 `json:"ledger_time,omitempty"`
	TxnCount    int   `json:"txn_count,omitempty"`
}

// NewWSClient connects to the endpoint and subscribes to the ledger stream.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		ledgers:  make(chan LedgerClosed, 64),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	if err := c.subscribe(); err != nil {
		c.conn.Close()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// subscribe sends the ledger stream subscription request. The confirmation
// response is consumed by the read loop (or here during startup).
func (c *WSClient) subscribe() error {
	req := wsCommand{
		ID:      c.requestID.Add(1),
		Command: "subscribe",
		Streams: []string{"ledger"},
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe ledger stream: %w", err)
	}
	return nil
}

// Ledgers returns the validated-ledger notification channel.
func (c *WSClient) Ledgers() <-chan LedgerClosed {
	return c.ledgers
}

// readLoop reads messages and dispatches ledgerClosed notifications,
// reconnecting on failure.
func (c *WSClient) readLoop() {
	defer c.wg.Done()
	defer close(c.ledgers)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Printf("xrpl: websocket read: %v; reconnecting", err)
			if !c.reconnect() {
				return
			}
			continue
		}

		switch msg.Type {
		case "ledgerClosed":
			notification := LedgerClosed{
				LedgerIndex: msg.LedgerIndex,
				CloseTime:   RippleTimeToUTC(msg.LedgerTime),
				TxnCount:    msg.TxnCount,
			}
			select {
			case c.ledgers <- notification:
			case <-c.done:
				return
			default:
				// Slow consumer: drop the oldest to keep the tail live.
				select {
				case <-c.ledgers:
				default:
				}
				select {
				case c.ledgers <- notification:
				default:
				}
			}
		case "response":
			if msg.Status != "success" {
				c.logger.Printf("xrpl: subscribe failed: %s", msg.Error)
			}
		}
	}
}

// reconnect re-establishes the connection and resubscribes with exponential
// backoff. Returns false when the client was closed meanwhile.
func (c *WSClient) reconnect() bool {
	delay := c.config.ReconnectDelay

	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			if err := c.subscribe(); err == nil {
				c.logger.Printf("xrpl: websocket reconnected")
				return true
			}
		}

		c.logger.Printf("xrpl: websocket reconnect failed: %v", err)
		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// pingLoop keeps the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()

			deadline := time.Now().Add(c.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Printf("xrpl: websocket ping: %v", err)
			}
		}
	}
}

// Close shuts the client down.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	err := c.conn.Close()
	c.connMu.Unlock()

	c.wg.Wait()
	return err
}

// Compile-time interface check.
var _ LedgerStream = (*WSClient)(nil)
