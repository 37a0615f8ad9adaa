package quote

import (
	"context"
	"fmt"
	"strings"

	binance_connector "github.com/binance/binance-connector-go"
	"github.com/shopspring/decimal"
)

// Binance polls the spot ticker price endpoint.
type Binance struct {
	symbol string
	fetch  func(ctx context.Context, symbol string) (string, error)
}

// NewBinance creates a Binance source for cfg.Symbol (default XRPUSDT).
// cfg.BaseURL overrides the REST host.
func NewBinance(cfg Config) *Binance {
	symbol := strings.ToUpper(cfg.Symbol)
	if symbol == "" {
		symbol = "XRPUSDT"
	}
	var client *binance_connector.Client
	if cfg.BaseURL != "" {
		client = binance_connector.NewClient(cfg.APIKey, cfg.SecretKey, cfg.BaseURL)
	} else {
		client = binance_connector.NewClient(cfg.APIKey, cfg.SecretKey)
	}

	return &Binance{
		symbol: symbol,
		fetch: func(ctx context.Context, symbol string) (string, error) {
			res, err := client.NewTickerPriceService().Symbol(symbol).Do(ctx)
			if err != nil {
				return "", err
			}
			if res != nil && res.Symbol == symbol {
				return res.Price, nil
			}
			return "", ErrUnexpectedResponse
		},
	}
}

func (b *Binance) Name() string { return ProviderBinance }

func (b *Binance) FetchPrice(ctx context.Context) (float64, error) {
	raw, err := b.fetch(ctx, b.symbol)
	if err != nil {
		return 0, fmt.Errorf("binance %s: %w", b.symbol, err)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("binance %s: %w: price %q", b.symbol, ErrUnexpectedResponse, raw)
	}
	f, _ := d.Float64()
	return f, nil
}
