package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"signalmon/internal/model"
)

// TelegramAPI is the default Bot API base URL.
const TelegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to one chat through the Bot API.
type TelegramNotifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates a notifier for the bot token issued by
// @BotFather and a chat, group or channel ID.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		baseURL:  TelegramAPI,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the notifier at a different Bot API host.
func (t *TelegramNotifier) WithBaseURL(u string) *TelegramNotifier {
	t.baseURL = u
	return t
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":    t.chatID,
		"text":       telegramText(alert),
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: encode: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[telegram] sent alert: %s", alert.Title)
	return nil
}

// telegramText renders an alert as MarkdownV2. Signal alerts get a compact
// card with the price, reason and whichever indicators were available:
//
//	🟢 *BUY ripple*
//	Price: `$0.5123`
//	Reason: RSI oversold & SMA20 above SMA50
//	RSI 28.40 | Momentum 3.10% | SMA20 $0.5010 | SMA50 $0.4950
//	_2024-05-01 12:00:00 UTC_
func telegramText(alert Alert) string {
	rec := alert.Record
	if rec == nil {
		return fmt.Sprintf("%s *%s*\n\n%s", levelEmoji(alert.Level), escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s %s*\n", signalEmoji(rec.Signal), rec.Signal, escapeMarkdown(rec.Asset))
	fmt.Fprintf(&b, "Price: `$%s`\n", formatPrice(rec.Price))
	fmt.Fprintf(&b, "Reason: %s\n", escapeMarkdown(rec.Reason))

	var ind []string
	if rec.RSI != nil {
		ind = append(ind, fmt.Sprintf("RSI %.2f", *rec.RSI))
	}
	if rec.Momentum != nil {
		ind = append(ind, fmt.Sprintf("Momentum %.2f%%", *rec.Momentum))
	}
	if rec.SMA20 != nil {
		ind = append(ind, "SMA20 $"+formatPrice(*rec.SMA20))
	}
	if rec.SMA50 != nil {
		ind = append(ind, "SMA50 $"+formatPrice(*rec.SMA50))
	}
	if len(ind) > 0 {
		b.WriteString(escapeMarkdown(strings.Join(ind, " | ")))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "_%s_", escapeMarkdown(rec.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")))
	return b.String()
}

func signalEmoji(s model.Signal) string {
	switch s {
	case model.SignalBuy:
		return "🟢"
	case model.SignalSell:
		return "🔴"
	}
	return "⚪"
}

func levelEmoji(l AlertLevel) string {
	switch l {
	case AlertWarning:
		return "⚠️"
	case AlertCritical:
		return "🚨"
	}
	return "ℹ️"
}

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(s string) string {
	const specials = "_*[]()~`>#+-=|{}.!\\"
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
