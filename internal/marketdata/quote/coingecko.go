package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// CoinGeckoAPI is the public API base URL.
const CoinGeckoAPI = "https://api.coingecko.com/api/v3"

// CoinGecko polls the /simple/price endpoint.
type CoinGecko struct {
	baseURL    string
	coinID     string
	vsCurrency string
	precision  int
	client     *http.Client
}

// NewCoinGecko creates a CoinGecko source. Defaults: ripple in usd, 4 decimals.
func NewCoinGecko(cfg Config) *CoinGecko {
	c := &CoinGecko{
		baseURL:    cfg.BaseURL,
		coinID:     cfg.CoinID,
		vsCurrency: cfg.VsCurrency,
		precision:  cfg.Precision,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
	if c.baseURL == "" {
		c.baseURL = CoinGeckoAPI
	}
	if c.coinID == "" {
		c.coinID = "ripple"
	}
	if c.vsCurrency == "" {
		c.vsCurrency = "usd"
	}
	if c.precision == 0 {
		c.precision = 4
	}
	return c
}

func (c *CoinGecko) Name() string { return ProviderCoinGecko }

// FetchPrice requests {coin}.{vs} and fails with ErrUnexpectedResponse if the
// payload does not contain it.
func (c *CoinGecko) FetchPrice(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("ids", c.coinID)
	q.Set("vs_currencies", c.vsCurrency)
	q.Set("precision", strconv.Itoa(c.precision))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("coingecko: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "signalmon/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coingecko: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("coingecko: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var data map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, fmt.Errorf("coingecko: %w: %s", ErrUnexpectedResponse, truncate(body, 200))
	}
	price, ok := data[c.coinID][c.vsCurrency]
	if !ok {
		return 0, fmt.Errorf("coingecko: %w: %s", ErrUnexpectedResponse, truncate(body, 200))
	}
	f, _ := price.Float64()
	return f, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
