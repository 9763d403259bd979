package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/arb"
	"cross-arb/internal/config"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestBinance(baseURL string) *Binance {
	return NewBinance(config.ExchangeConfig{
		BaseURL:        baseURL,
		APIKey:         "key",
		APISecret:      "secret",
		RequestTimeout: time.Second,
	}, noopLogger())
}

func TestBinanceLoadMarketsFiltersHaltedSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbols":[
			{"symbol":"BTCUSD","status":"TRADING","baseAsset":"BTC","quoteAsset":"USD"},
			{"symbol":"LTCUSD","status":"BREAK","baseAsset":"LTC","quoteAsset":"USD"}
		]}`))
	}))
	defer srv.Close()

	pairs, err := newTestBinance(srv.URL).LoadMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pairs["BTC/USD"]; !ok {
		t.Fatal("expected BTC/USD to be listed")
	}
	if _, ok := pairs["LTC/USD"]; ok {
		t.Fatal("halted symbols must be excluded")
	}
}

func TestBinanceFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSD" {
			t.Fatalf("expected symbol BTCUSD, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bidPrice":"99.5","askPrice":"100.5","lastPrice":"100.0"}`))
	}))
	defer srv.Close()

	quote, ok, err := newTestBinance(srv.URL).FetchTicker(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected usable quote")
	}
	if !quote.Bid.Equal(decimal.NewFromFloat(99.5)) || !quote.Ask.Equal(decimal.NewFromFloat(100.5)) {
		t.Fatalf("wrong quote: bid %s ask %s", quote.Bid, quote.Ask)
	}
	if quote.Last == nil || !quote.Last.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected last 100, got %v", quote.Last)
	}
}

func TestBinanceFetchTickerUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, ok, err := newTestBinance(srv.URL).FetchTicker(context.Background(), "FOO/BAR")
	if err != nil {
		t.Fatalf("unknown symbol is unavailable, not an error: %v", err)
	}
	if ok {
		t.Fatal("unknown symbol must report unavailable")
	}
}

func TestBinanceFetchTickerAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"code":-1000,"msg":"unknown"}`))
	}))
	defer srv.Close()

	if _, _, err := newTestBinance(srv.URL).FetchTicker(context.Background(), "BTC/USD"); err == nil {
		t.Fatal("non-1121 API errors must be surfaced")
	}
}

func TestBinanceFetchBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != "key" {
			t.Fatal("missing API key header")
		}
		query := r.URL.Query()
		if query.Get("signature") == "" || query.Get("timestamp") == "" {
			t.Fatal("account request must be signed")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balances":[
			{"asset":"BTC","free":"1.5"},
			{"asset":"USD","free":"2500.00"},
			{"asset":"LTC","free":"0.00"}
		]}`))
	}))
	defer srv.Close()

	balances, err := newTestBinance(srv.URL).FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balances["BTC"].Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("expected BTC 1.5, got %s", balances["BTC"])
	}
	if _, ok := balances["LTC"]; ok {
		t.Fatal("zero balances must be dropped")
	}
}

func TestBinanceSignatureTrailsSignedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.RawQuery
		idx := strings.LastIndex(raw, "&signature=")
		if idx < 0 {
			t.Fatalf("signature must be appended after the signed payload, got %q", raw)
		}
		payload, got := raw[:idx], raw[idx+len("&signature="):]
		if strings.Contains(payload, "signature") {
			t.Fatalf("signature must not appear inside the signed payload: %q", payload)
		}

		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte(payload))
		if want := hex.EncodeToString(mac.Sum(nil)); got != want {
			t.Fatalf("signature does not cover the payload: got %s, want %s", got, want)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balances":[]}`))
	}))
	defer srv.Close()

	if _, err := newTestBinance(srv.URL).FetchBalance(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBinanceCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		query := r.URL.Query()
		if query.Get("side") != "BUY" || query.Get("type") != "LIMIT" || query.Get("timeInForce") != "GTC" {
			t.Fatalf("unexpected order params: %v", query)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orderId":12345,"status":"NEW"}`))
	}))
	defer srv.Close()

	conf, err := newTestBinance(srv.URL).CreateOrder(
		context.Background(), "BTC/USD", arb.SideBuy,
		decimal.NewFromInt(10), decimal.NewFromInt(100),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.ID != "12345" || conf.Venue != "binance" || conf.Side != arb.SideBuy {
		t.Fatalf("unexpected confirmation: %#v", conf)
	}
}
