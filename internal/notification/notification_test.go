package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signalmon/internal/model"
)

func TestConsole_CollectingData(t *testing.T) {
	var buf bytes.Buffer
	rec := model.NewSignalRecord(time.Now(), "ripple", 0.52345, model.SignalHold, "",
		model.IndicatorSnapshot{RSI14: model.Float(55.123), Momentum10: model.Float(-1.5)})

	NewConsole(&buf).Print(rec)
	out := buf.String()

	for _, want := range []string{
		"Price: $0.5235\n",
		"Signal: HOLD\n",
		"Reason: Initial price logging\n",
		"RSI: 55.12\n",
		"Momentum: -1.50%\n",
		"Collecting data... (2/4 indicators available)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SMA20") {
		t.Errorf("absent SMA20 must not be printed:\n%s", out)
	}
}

func TestConsole_CompleteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	snap := model.IndicatorSnapshot{
		SMA20: model.Float(1.1), SMA50: model.Float(1.0),
		RSI14: model.Float(50), Momentum10: model.Float(0),
	}
	NewConsole(&buf).Print(model.NewSignalRecord(time.Now(), "ripple", 1.2, model.SignalBuy, "SMA20 above SMA50", snap))

	out := buf.String()
	if !strings.Contains(out, "SMA20: $1.1000") || !strings.Contains(out, "SMA50: $1.0000") {
		t.Errorf("expected SMA lines:\n%s", out)
	}
	if strings.Contains(out, "Collecting data") {
		t.Errorf("complete snapshot should not report collection progress:\n%s", out)
	}
}

func TestSignalAlert(t *testing.T) {
	hold := model.NewSignalRecord(time.Now(), "ripple", 1, model.SignalHold, "", model.IndicatorSnapshot{})
	if _, ok := SignalAlert(hold); ok {
		t.Fatal("HOLD must not alert")
	}

	sell := model.NewSignalRecord(time.Now(), "ripple", 0.5, model.SignalSell, "RSI overbought: 75.00", model.IndicatorSnapshot{})
	alert, ok := SignalAlert(sell)
	if !ok {
		t.Fatal("SELL should alert")
	}
	if alert.Title != "SELL ripple" {
		t.Errorf("title: %q", alert.Title)
	}
	if !strings.Contains(alert.Message, "RSI overbought: 75.00") || !strings.Contains(alert.Message, "$0.5000") {
		t.Errorf("message: %q", alert.Message)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type: %s", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Level: AlertWarning, Title: "BUY ripple", Message: "m"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["title"] != "BUY ripple" || got["level"] != "WARNING" {
		t.Errorf("payload: %v", got)
	}
}

func TestWebhookNotifier_IncludesRecord(t *testing.T) {
	var got struct {
		TS     string             `json:"ts"`
		Record model.SignalRecord `json:"record"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := model.NewSignalRecord(ts, "ripple", 0.61, model.SignalSell, "RSI overbought: 75.00", model.IndicatorSnapshot{RSI14: model.Float(75)})
	alert, ok := SignalAlert(rec)
	if !ok {
		t.Fatal("SELL must alert")
	}
	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), alert); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Record.Signal != model.SignalSell || got.Record.RSI == nil || *got.Record.RSI != 75 {
		t.Errorf("record: %+v", got.Record)
	}
	if got.TS != "2024-05-01T12:00:00Z" {
		t.Errorf("ts = %q, want record timestamp", got.TS)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{}); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42").WithBaseURL(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertCritical, Title: "SELL ripple", Message: "x.y"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path: %s", path)
	}
	if body["chat_id"] != "42" || !strings.Contains(body["text"].(string), `x\.y`) {
		t.Errorf("body: %v", body)
	}
}

func TestTelegramText_SignalCard(t *testing.T) {
	rec := model.NewSignalRecord(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), "ripple", 0.51234,
		model.SignalBuy, "RSI oversold & SMA20 above SMA50",
		model.IndicatorSnapshot{RSI14: model.Float(28.4), Momentum10: model.Float(-3.1)})
	alert, ok := SignalAlert(rec)
	if !ok {
		t.Fatal("BUY should raise an alert")
	}

	got := telegramText(alert)
	want := "🟢 *BUY ripple*\n" +
		"Price: `$0.5123`\n" +
		"Reason: RSI oversold & SMA20 above SMA50\n" +
		"RSI 28\\.40 \\| Momentum \\-3\\.10%\n" +
		"_2024\\-05\\-01 12:00:00 UTC_"
	if got != want {
		t.Errorf("text:\n got %q\nwant %q", got, want)
	}
}

func TestTelegramText_PlainAlert(t *testing.T) {
	got := telegramText(Alert{Level: AlertCritical, Title: "redis down", Message: "retry in 10s."})
	if got != "🚨 *redis down*\n\nretry in 10s\\." {
		t.Errorf("text: %q", got)
	}
}

type failing struct{ err error }

func (f failing) Send(context.Context, Alert) error { return f.err }

func TestMulti_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := Multi{NewLogNotifier(), failing{boom}}
	if err := m.Send(context.Background(), Alert{}); !errors.Is(err, boom) {
		t.Fatalf("expected joined boom, got %v", err)
	}
	if err := (Multi{NewLogNotifier()}).Send(context.Background(), Alert{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
