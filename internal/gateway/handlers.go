package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"signalmon/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RecentSource returns stored records, newest first.
type RecentSource interface {
	RecentSignals(ctx context.Context, limit int) ([]model.SignalRecord, error)
}

// LatestSource returns the most recent stored record, or nil when there is none.
type LatestSource interface {
	Latest(ctx context.Context) (*model.SignalRecord, error)
}

// LatestFromRecent serves Latest from the head of a RecentSource.
func LatestFromRecent(src RecentSource) LatestSource {
	return latestFromRecent{src}
}

type latestFromRecent struct{ src RecentSource }

func (l latestFromRecent) Latest(ctx context.Context) (*model.SignalRecord, error) {
	records, err := l.src.RecentSignals(ctx, 1)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// ServeWS upgrades to WebSocket. ?since_seq=N limits the replay to newer envelopes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	lastSeq, _ := strconv.ParseInt(r.URL.Query().Get("since_seq"), 10, 64)
	h.HandleWSRequest(conn, lastSeq)
}

// SignalsHandler serves GET /api/signals?limit=N (default 50, max 1000).
func SignalsHandler(src RecentSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = min(v, 1000)
		}

		records, err := src.RecentSignals(r.Context(), limit)
		if err != nil {
			log.Printf("[gateway] recent signals: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "could not load signals"})
			return
		}
		if records == nil {
			records = []model.SignalRecord{}
		}
		json.NewEncoder(w).Encode(records)
	})
}

// LatestHandler serves GET /api/signals/latest. 404 until a record exists.
func LatestHandler(src LatestSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		rec, err := src.Latest(r.Context())
		if err != nil {
			log.Printf("[gateway] latest signal: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "could not load latest signal"})
			return
		}
		if rec == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "no signal recorded yet"})
			return
		}
		json.NewEncoder(w).Encode(rec)
	})
}
