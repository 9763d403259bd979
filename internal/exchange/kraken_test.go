package exchange

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cross-arb/internal/config"
)

func newTestKraken(baseURL string) *Kraken {
	return NewKraken(config.ExchangeConfig{
		BaseURL:        baseURL,
		APIKey:         "key",
		APISecret:      base64.StdEncoding.EncodeToString([]byte("secret")),
		RequestTimeout: time.Second,
	}, noopLogger())
}

func krakenMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/0/public/AssetPairs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":{"wsname":"XBT/USD","status":"online"},
			"XLTCZUSD":{"wsname":"LTC/USD","status":"online"},
			"DELISTED":{"wsname":"FOO/USD","status":"cancel_only"}
		}}`))
	})
	mux.HandleFunc("/0/public/Ticker", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pair"); got != "XXBTZUSD" {
			t.Fatalf("expected native pair XXBTZUSD, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":{"a":["100.5","1","1"],"b":["99.5","1","1"],"c":["100.0","0.1"]}
		}}`))
	})
	return mux
}

func TestKrakenLoadMarketsNormalisesNames(t *testing.T) {
	srv := httptest.NewServer(krakenMux(t))
	defer srv.Close()

	pairs, err := newTestKraken(srv.URL).LoadMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pairs["BTC/USD"]; !ok {
		t.Fatal("XBT/USD should normalise to BTC/USD")
	}
	if _, ok := pairs["LTC/USD"]; !ok {
		t.Fatal("expected LTC/USD to be listed")
	}
	if _, ok := pairs["FOO/USD"]; ok {
		t.Fatal("non-online pairs must be excluded")
	}
}

func TestKrakenFetchTicker(t *testing.T) {
	srv := httptest.NewServer(krakenMux(t))
	defer srv.Close()

	k := newTestKraken(srv.URL)
	if _, err := k.LoadMarkets(context.Background()); err != nil {
		t.Fatalf("load markets: %v", err)
	}

	quote, ok, err := k.FetchTicker(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected usable quote")
	}
	if !quote.Bid.Equal(decimal.NewFromFloat(99.5)) || !quote.Ask.Equal(decimal.NewFromFloat(100.5)) {
		t.Fatalf("wrong quote: bid %s ask %s", quote.Bid, quote.Ask)
	}
}

func TestKrakenFetchTickerUnlistedPair(t *testing.T) {
	srv := httptest.NewServer(krakenMux(t))
	defer srv.Close()

	k := newTestKraken(srv.URL)
	if _, err := k.LoadMarkets(context.Background()); err != nil {
		t.Fatalf("load markets: %v", err)
	}

	// DOGE/USD never appeared in AssetPairs, so there is no native name.
	_, ok, err := k.FetchTicker(context.Background(), "DOGE/USD")
	if err != nil {
		t.Fatalf("unlisted pair is unavailable, not an error: %v", err)
	}
	if ok {
		t.Fatal("unlisted pair must report unavailable")
	}
}

func TestKrakenFetchBalanceAliases(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/0/private/Balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("API-Key") != "key" || r.Header.Get("API-Sign") == "" {
			t.Fatal("private call must be signed")
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("nonce") == "" {
			t.Fatal("private call must carry a nonce")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":[],"result":{"XXBT":"1.5","ZUSD":"2500.0","XLTC":"0"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	balances, err := newTestKraken(srv.URL).FetchBalance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balances["BTC"].Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("XXBT should alias to BTC, got %v", balances)
	}
	if !balances["USD"].Equal(decimal.NewFromFloat(2500)) {
		t.Fatalf("ZUSD should alias to USD, got %v", balances)
	}
	if _, ok := balances["LTC"]; ok {
		t.Fatal("zero balances must be dropped")
	}
}

func TestKrakenEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":["EGeneral:Invalid arguments"],"result":null}`))
	}))
	defer srv.Close()

	if _, err := newTestKraken(srv.URL).LoadMarkets(context.Background()); err == nil {
		t.Fatal("envelope errors must be surfaced")
	}
}
