// cmd/pricefeed: Demo WebSocket ticker server.
// Broadcasts simulated 24hr ticker events so signalmon can run its stream
// provider without touching a real exchange.
//
// Message shape follows the Binance ticker stream:
//
//	{"e":"24hrTicker","E":1714560000000,"s":"XRPUSDT","c":"0.5123"}
//
// Config (env vars):
//
//	PRICEFEED_ADDR        : listen address (default: ":9001")
//	PRICEFEED_SYMBOL      : symbol to broadcast (default: "XRPUSDT")
//	PRICEFEED_INTERVAL_MS : broadcast interval milliseconds (default: "1000")
//	PRICEFEED_START_PRICE : initial price (default: "0.5")
//	PRICEFEED_SEED        : random walk seed (default: current time)
//
// Point signalmon at it with PRICE_PROVIDER=stream STREAM_URL=ws://localhost:9001/ws.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"signalmon/internal/marketdata/quote"
)

// ─── Hub ──────────────────────────────────────────────────────────────────────

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client, drop update
		}
	}
}

// ─── WebSocket handler ────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[pricefeed] upgrade error: %v", err)
			return
		}
		log.Printf("[pricefeed] client connected: %s", r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Printf("[pricefeed] client disconnected: %s", r.RemoteAddr)
		}()

		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ─── Ticker generator ────────────────────────────────────────────────────────

// tickerEvent builds one ticker message for price p.
func tickerEvent(symbol string, p float64, now time.Time) ([]byte, error) {
	return json.Marshal(quote.TickerMessage{
		Event:     "24hrTicker",
		EventTime: now.UnixMilli(),
		Symbol:    symbol,
		Close:     decimal.NewFromFloat(p).Round(6),
	})
}

func runGenerator(h *hub, src *quote.Sim, symbol string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for now := range ticker.C {
		p, err := src.FetchPrice(context.Background())
		if err != nil {
			continue
		}
		b, err := tickerEvent(symbol, p, now)
		if err != nil {
			continue
		}
		h.broadcast(b)
	}
}

// ─── main ─────────────────────────────────────────────────────────────────────

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[pricefeed] starting demo ticker server...")

	addr := envOrDefault("PRICEFEED_ADDR", ":9001")
	symbol := strings.ToUpper(envOrDefault("PRICEFEED_SYMBOL", "XRPUSDT"))
	intervalMs := envIntOrDefault("PRICEFEED_INTERVAL_MS", 1000)
	startPrice, _ := strconv.ParseFloat(envOrDefault("PRICEFEED_START_PRICE", "0.5"), 64)
	seed := int64(envIntOrDefault("PRICEFEED_SEED", int(time.Now().UnixNano())))

	src := quote.NewSim(quote.Config{Seed: seed, StartPrice: startPrice, Volatility: 0.002})
	log.Printf("[pricefeed] symbol %s, interval %dms, seed %d", symbol, intervalMs, seed)

	h := newHub()
	go runGenerator(h, src, symbol, time.Duration(intervalMs)*time.Millisecond)

	http.HandleFunc("/ws", wsHandler(h))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"pricefeed"}`)
	})

	log.Printf("[pricefeed] listening on %s  (WebSocket: ws://localhost%s/ws)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[pricefeed] server error: %v", err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
