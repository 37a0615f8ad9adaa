package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGecko_FetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ripple", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "4", r.URL.Query().Get("precision"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"ripple":{"usd":0.5234}}`))
	}))
	defer srv.Close()

	src, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, ProviderCoinGecko, src.Name())

	price, err := src.FetchPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.5234, price)
}

func TestCoinGecko_UnexpectedFormat(t *testing.T) {
	for name, body := range map[string]string{
		"missing coin":     `{"bitcoin":{"usd":60000}}`,
		"missing currency": `{"ripple":{"eur":0.48}}`,
		"not json":         `<html>rate limited</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewCoinGecko(Config{BaseURL: srv.URL}).FetchPrice(context.Background())
			assert.ErrorIs(t, err, ErrUnexpectedResponse)
		})
	}
}

func TestCoinGecko_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewCoinGecko(Config{BaseURL: srv.URL}).FetchPrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestBinance_ParsesDecimalString(t *testing.T) {
	b := NewBinance(Config{Symbol: "xrpusdt"})
	b.fetch = func(_ context.Context, symbol string) (string, error) {
		assert.Equal(t, "XRPUSDT", symbol)
		return "0.52340000", nil
	}
	price, err := b.FetchPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.5234, price)

	b.fetch = func(context.Context, string) (string, error) { return "n/a", nil }
	_, err = b.FetchPrice(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedResponse)

	boom := errors.New("timeout")
	b.fetch = func(context.Context, string) (string, error) { return "", boom }
	_, err = b.FetchPrice(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSim_Deterministic(t *testing.T) {
	a := NewSim(Config{Seed: 7})
	b := NewSim(Config{Seed: 7})
	ctx := context.Background()

	first, _ := a.FetchPrice(ctx)
	assert.Equal(t, 0.5, first)
	b.FetchPrice(ctx)
	for i := 0; i < 50; i++ {
		pa, err := a.FetchPrice(ctx)
		require.NoError(t, err)
		pb, _ := b.FetchPrice(ctx)
		require.Equal(t, pa, pb)
		require.Greater(t, pa, 0.0)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := a.FetchPrice(cancelled)
	assert.Error(t, err)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "kraken"})
	assert.Error(t, err)

	src, err := New(Config{Provider: "SIM"})
	require.NoError(t, err)
	assert.Equal(t, ProviderSim, src.Name())
}
