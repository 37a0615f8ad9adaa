package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoPrice is returned by Stream before the first ticker message arrives.
	ErrNoPrice = errors.New("no price received yet")
	// ErrStalePrice is returned when the last ticker message is older than MaxAge.
	ErrStalePrice = errors.New("stream price is stale")
)

// TickerMessage is the subset of a Binance 24hr ticker stream event we read.
//
//	{"e":"24hrTicker","E":1714560000000,"s":"XRPUSDT","c":"0.5123",...}
type TickerMessage struct {
	Event     string          `json:"e"`
	EventTime int64           `json:"E"` // ms
	Symbol    string          `json:"s"`
	Close     decimal.Decimal `json:"c"`
}

// Stream keeps the last price pushed by a ticker WebSocket. FetchPrice never
// blocks on the network; Run must be started for prices to arrive.
type Stream struct {
	url               string
	symbol            string
	maxAge            time.Duration
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	now               func() time.Time
	after             func(time.Duration) <-chan time.Time

	mu       sync.RWMutex
	price    float64
	received time.Time

	// Optional hook, called each time a reconnection happens.
	OnReconnect func()
}

// NewStream creates a stream source. cfg.StreamURL defaults to the public
// Binance ticker stream for cfg.Symbol.
func NewStream(cfg Config) (*Stream, error) {
	symbol := strings.ToUpper(cfg.Symbol)
	if symbol == "" {
		symbol = "XRPUSDT"
	}
	raw := cfg.StreamURL
	if raw == "" {
		raw = "wss://stream.binance.com:9443/ws/" + strings.ToLower(symbol) + "@ticker"
	}
	if _, err := url.Parse(raw); err != nil {
		return nil, fmt.Errorf("stream url: %w", err)
	}
	s := &Stream{
		url:               raw,
		symbol:            symbol,
		maxAge:            cfg.MaxAge,
		reconnectDelay:    2 * time.Second,
		maxReconnectDelay: 30 * time.Second,
		now:               time.Now,
		after:             time.After,
	}
	if s.maxAge <= 0 {
		s.maxAge = time.Minute
	}
	return s, nil
}

func (s *Stream) Name() string { return ProviderStream }

// FetchPrice returns the most recent streamed price.
func (s *Stream) FetchPrice(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.received.IsZero() {
		return 0, ErrNoPrice
	}
	if age := s.now().Sub(s.received); age > s.maxAge {
		return 0, fmt.Errorf("%w: last update %s ago", ErrStalePrice, age.Round(time.Second))
	}
	return s.price, nil
}

// Run connects and reads ticker messages until ctx is cancelled,
// reconnecting with exponential backoff. The backoff starts over after a
// connection that delivered at least one message.
func (s *Stream) Run(ctx context.Context) error {
	delay := s.reconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		received, err := s.runOnce(ctx)
		if err == nil {
			return nil
		}
		if received {
			delay = s.reconnectDelay
		}

		log.Printf("[quote] stream disconnected (%v), reconnecting in %s...", err, delay)
		if s.OnReconnect != nil {
			s.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.after(delay):
		}

		delay *= 2
		if delay > s.maxReconnectDelay {
			delay = s.maxReconnectDelay
		}
	}
}

// runOnce makes a single connection and reads until disconnect or ctx cancel.
// received reports whether any message arrived on the connection.
func (s *Stream) runOnce(ctx context.Context) (received bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	log.Printf("[quote] stream connected to %s", s.url)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return received, nil
			}
			return received, err
		}
		received = true
		s.handle(raw)
	}
}

func (s *Stream) handle(raw []byte) {
	var msg TickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[quote] stream parse error: %v (raw: %s)", err, raw)
		return
	}
	if msg.Symbol != "" && !strings.EqualFold(msg.Symbol, s.symbol) {
		return
	}
	price, _ := msg.Close.Float64()
	if price <= 0 {
		return
	}

	s.mu.Lock()
	s.price = price
	s.received = s.now()
	s.mu.Unlock()
}
