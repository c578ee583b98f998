// Package marketdata streams minute bars from a WebSocket feed into storage.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"equity-lab/internal/domain"
	"equity-lab/internal/observability"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("feed client closed")

// Config tunes connection upkeep. The backoff starts at ReconnectDelay and
// doubles per failed read up to MaxReconnectDelay.
type Config struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	// Pings keep idle feeds alive between bars; ReadTimeout must exceed PingInterval.
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// BufferSize is the capacity of the Bars channel.
	BufferSize int
}

// DefaultConfig suits a one-bar-per-minute feed.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      20 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
		BufferSize:        4096,
	}
}

// Client is a minute bar feed client using gorilla/websocket.
// It reconnects with exponential backoff and resubscribes its symbols.
type Client struct {
	endpoint string
	config   Config
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	symbols   map[string]struct{}
	symbolsMu sync.Mutex

	bars chan *domain.Bar

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewClient connects to endpoint and starts the read and ping loops.
// A nil config uses DefaultConfig; a nil logger uses log.Default().
func NewClient(ctx context.Context, endpoint string, config *Config, logger *log.Logger) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		symbols:  make(map[string]struct{}),
		bars:     make(chan *domain.Bar, cfg.BufferSize),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Bars returns the channel of received bars. It is closed by Close.
func (c *Client) Bars() <-chan *domain.Bar {
	return c.bars
}

// Subscribe requests minute bars for symbols. Symbols are kept for
// resubscription after a reconnect.
func (c *Client) Subscribe(_ context.Context, symbols []string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to subscribe")
	}

	c.symbolsMu.Lock()
	for _, s := range symbols {
		c.symbols[strings.ToUpper(s)] = struct{}{}
	}
	c.symbolsMu.Unlock()

	return c.writeSubscribe(normalizeSymbols(symbols))
}

// Symbols returns the subscribed symbols, sorted.
func (c *Client) Symbols() []string {
	c.symbolsMu.Lock()
	defer c.symbolsMu.Unlock()

	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Close closes the connection and the bar channel.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.bars)
	return nil
}

func (c *Client) connect(ctx context.Context) error {
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

func (c *Client) writeSubscribe(symbols []string) error {
	req := subscribeRequest{
		Action:    "subscribe",
		Timeframe: "1m",
		Symbols:   symbols,
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !c.reconnecting.Swap(true) {
				go c.reconnect(nil, reconnectDelay)
				reconnectDelay = min(reconnectDelay*2, c.config.MaxReconnectDelay)
			}
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				c.logger.Printf("feed: read failed, reconnecting in %s: %v", reconnectDelay, err)
				go c.reconnect(conn, reconnectDelay)
			}

			reconnectDelay = min(reconnectDelay*2, c.config.MaxReconnectDelay)

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(message)
	}
}

// reconnect replaces stale with a new connection and resubscribes.
func (c *Client) reconnect(stale *websocket.Conn, delay time.Duration) {
	defer c.reconnecting.Store(false)

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn == stale && c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	observability.RecordFeedReconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Printf("feed: reconnect failed: %v", err)
		return
	}

	if c.closed.Load() {
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.connMu.Unlock()
		return
	}
	if symbols := c.Symbols(); len(symbols) > 0 {
		if err := c.writeSubscribe(symbols); err != nil {
			c.logger.Printf("feed: resubscribe failed: %v", err)
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Printf("feed: malformed message: %v", err)
		return
	}

	switch msg.Type {
	case "bar":
		bar, err := msg.toBar()
		if err != nil {
			c.logger.Printf("feed: drop bar: %v", err)
			return
		}
		observability.RecordFeedBars(1)
		select {
		case c.bars <- bar:
		case <-c.done:
		}
	case "error":
		c.logger.Printf("feed: server error: %s", msg.Message)
	case "subscribed":
		c.logger.Printf("feed: subscribed to %s", strings.Join(msg.Symbols, ","))
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A dead connection surfaces as a read error in readLoop
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = strings.ToUpper(s)
	}
	return out
}

// Wire messages

type subscribeRequest struct {
	Action    string   `json:"action"`
	Timeframe string   `json:"timeframe"`
	Symbols   []string `json:"symbols"`
}

type feedMessage struct {
	Type    string   `json:"type"`
	Symbol  string   `json:"symbol,omitempty"`
	T       int64    `json:"t,omitempty"`
	O       float64  `json:"o,omitempty"`
	H       float64  `json:"h,omitempty"`
	L       float64  `json:"l,omitempty"`
	C       float64  `json:"c,omitempty"`
	V       float64  `json:"v,omitempty"`
	Message string   `json:"message,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
}

// toBar validates a bar message and aligns it to its minute.
func (m *feedMessage) toBar() (*domain.Bar, error) {
	if m.Symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	if m.T <= 0 {
		return nil, fmt.Errorf("%s: invalid timestamp %d", m.Symbol, m.T)
	}
	for _, v := range []float64{m.O, m.H, m.L, m.C, m.V} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%s: invalid value %v", m.Symbol, v)
		}
	}
	if m.H < m.L {
		return nil, fmt.Errorf("%s: high %v below low %v", m.Symbol, m.H, m.L)
	}

	return &domain.Bar{
		Symbol:      strings.ToUpper(m.Symbol),
		TimestampMs: m.T - m.T%domain.MinuteMs,
		Open:        m.O,
		High:        m.H,
		Low:         m.L,
		Close:       m.C,
		Volume:      m.V,
	}, nil
}
