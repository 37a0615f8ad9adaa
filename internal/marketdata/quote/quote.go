// Package quote provides price sources for the monitored asset.
//
// Each source returns the latest price as a float64. Upstream payloads are
// decoded through shopspring/decimal so that string and numeric prices are
// parsed the same way before conversion.
package quote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"signalmon/internal/model"
)

// Provider names accepted by New.
const (
	ProviderCoinGecko = "coingecko"
	ProviderBinance   = "binance"
	ProviderSim       = "sim"
	ProviderStream    = "stream"
)

// ErrUnexpectedResponse is returned when the upstream payload does not carry
// the requested price.
var ErrUnexpectedResponse = errors.New("unexpected API response format")

// Config selects and configures a price source.
type Config struct {
	Provider string
	Timeout  time.Duration

	// CoinGecko
	CoinID     string // e.g. "ripple"
	VsCurrency string // e.g. "usd"
	Precision  int    // decimal places requested, 0 = API default
	BaseURL    string // override for tests / pro API

	// Binance
	Symbol    string // e.g. "XRPUSDT"
	APIKey    string
	SecretKey string

	// Stream
	StreamURL string        // e.g. "wss://stream.binance.com:9443/ws/xrpusdt@ticker"
	MaxAge    time.Duration // older stream prices are reported as stale

	// Sim
	Seed       int64
	StartPrice float64
	Volatility float64 // per-tick relative standard deviation
}

// New builds the source named by cfg.Provider. An empty provider selects CoinGecko.
func New(cfg Config) (model.PriceSource, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderCoinGecko:
		return NewCoinGecko(cfg), nil
	case ProviderBinance:
		return NewBinance(cfg), nil
	case ProviderSim:
		return NewSim(cfg), nil
	case ProviderStream:
		return NewStream(cfg)
	default:
		return nil, fmt.Errorf("unknown price provider %q", cfg.Provider)
	}
}
