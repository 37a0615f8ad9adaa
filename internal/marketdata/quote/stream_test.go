package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickerServer(t *testing.T, msgs ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStream_NoPriceBeforeFirstMessage(t *testing.T) {
	s, err := NewStream(Config{StreamURL: "ws://127.0.0.1:1/ws"})
	require.NoError(t, err)
	_, err = s.FetchPrice(context.Background())
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestStream_ReceivesTickerPrice(t *testing.T) {
	srv := tickerServer(t,
		`not json`,
		`{"e":"24hrTicker","s":"BTCUSDT","c":"64000.10"}`,
		`{"e":"24hrTicker","E":1714560000000,"s":"XRPUSDT","c":"0.5123"}`,
	)
	s, err := NewStream(Config{Symbol: "xrpusdt", StreamURL: wsURL(srv)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		p, err := s.FetchPrice(context.Background())
		return err == nil && p == 0.5123
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStream_StalePrice(t *testing.T) {
	s, err := NewStream(Config{MaxAge: time.Minute})
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.handle([]byte(`{"s":"XRPUSDT","c":"0.6"}`))

	p, err := s.FetchPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.6, p)

	now = now.Add(2 * time.Minute)
	_, err = s.FetchPrice(context.Background())
	assert.ErrorIs(t, err, ErrStalePrice)
}

func TestStream_IgnoresNonPositivePrices(t *testing.T) {
	s, err := NewStream(Config{})
	require.NoError(t, err)
	s.handle([]byte(`{"s":"XRPUSDT","c":"0"}`))
	s.handle([]byte(`{"s":"XRPUSDT"}`))
	_, err = s.FetchPrice(context.Background())
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestNew_Stream(t *testing.T) {
	src, err := New(Config{Provider: ProviderStream})
	require.NoError(t, err)
	assert.Equal(t, ProviderStream, src.Name())
	assert.Equal(t, "wss://stream.binance.com:9443/ws/xrpusdt@ticker", src.(*Stream).url)
}

func TestStream_BackoffResetsAfterHealthyConnection(t *testing.T) {
	// Connections 1 and 2 drop before any message; connection 3 delivers a
	// price then drops; later connections drop again.
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if conns.Add(1) == 3 {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"s":"XRPUSDT","c":"0.5"}`))
		}
	}))
	t.Cleanup(srv.Close)

	s, err := NewStream(Config{StreamURL: wsURL(srv)})
	require.NoError(t, err)
	base := 10 * time.Millisecond
	s.reconnectDelay = base
	s.maxReconnectDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reconnects atomic.Int32
	s.OnReconnect = func() { reconnects.Add(1) }

	var mu sync.Mutex
	var delays []time.Duration
	s.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		delays = append(delays, d)
		if len(delays) == 4 {
			cancel()
		}
		mu.Unlock()
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []time.Duration{base, 2 * base, base, 2 * base}, delays)
	assert.Equal(t, int32(4), reconnects.Load())
}
