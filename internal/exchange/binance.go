package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/arb"
	"cross-arb/internal/config"
	"cross-arb/internal/market"
)

const defaultBinanceBaseURL = "https://api.binance.us"

// Binance implements Gateway against the Binance spot REST API.
type Binance struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
	logger    zerolog.Logger
}

// NewBinance constructs a Binance gateway.
func NewBinance(cfg config.ExchangeConfig, logger zerolog.Logger) *Binance {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBinanceBaseURL
	}

	return &Binance{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "exchange_binance").Logger(),
	}
}

// Name returns the venue id.
func (b *Binance) Name() string { return "binance" }

// LoadMarkets lists pairs currently open for trading.
func (b *Binance) LoadMarkets(ctx context.Context) (map[string]struct{}, error) {
	body, err := b.get(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}

	var info struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			Status     string `json:"status"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse exchange info: %w", err)
	}

	pairs := make(map[string]struct{}, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != "TRADING" {
			continue
		}
		pairs[sym.BaseAsset+"/"+sym.QuoteAsset] = struct{}{}
	}
	return pairs, nil
}

// FetchTicker retrieves bid/ask/last for a pair via the 24hr ticker.
func (b *Binance) FetchTicker(ctx context.Context, pair string) (market.Quote, bool, error) {
	params := url.Values{}
	params.Set("symbol", binanceSymbol(pair))

	body, err := b.get(ctx, "/api/v3/ticker/24hr", params)
	if err != nil {
		var apiErr *binanceError
		if errors.As(err, &apiErr) && apiErr.unknownSymbol() {
			return market.Quote{}, false, nil
		}
		return market.Quote{}, false, fmt.Errorf("binance ticker %s: %w", pair, err)
	}

	var ticker struct {
		BidPrice  string `json:"bidPrice"`
		AskPrice  string `json:"askPrice"`
		LastPrice string `json:"lastPrice"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return market.Quote{}, false, fmt.Errorf("parse ticker %s: %w", pair, err)
	}

	quote, ok := parseQuote(ticker.BidPrice, ticker.AskPrice, ticker.LastPrice)
	return quote, ok, nil
}

// FetchBalance returns free balances per asset.
func (b *Binance) FetchBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	body, err := b.signedRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("binance account: %w", err)
	}

	var account struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}

	balances := make(map[string]decimal.Decimal, len(account.Balances))
	for _, bal := range account.Balances {
		free, err := decimal.NewFromString(bal.Free)
		if err != nil || !free.IsPositive() {
			continue
		}
		balances[bal.Asset] = free
	}
	return balances, nil
}

// CreateOrder places a GTC limit order.
func (b *Binance) CreateOrder(ctx context.Context, pair string, side arb.Side, amount, price decimal.Decimal) (arb.OrderConfirmation, error) {
	params := url.Values{}
	params.Set("symbol", binanceSymbol(pair))
	params.Set("side", strings.ToUpper(string(side)))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", amount.String())
	params.Set("price", price.String())

	body, err := b.signedRequest(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return arb.OrderConfirmation{}, fmt.Errorf("binance create order %s %s: %w", side, pair, err)
	}

	var resp struct {
		OrderID int64  `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return arb.OrderConfirmation{}, fmt.Errorf("parse order response: %w", err)
	}

	b.logger.Info().
		Str("pair", pair).
		Str("side", string(side)).
		Int64("order_id", resp.OrderID).
		Str("status", resp.Status).
		Msg("order placed")

	return arb.OrderConfirmation{
		ID:     strconv.FormatInt(resp.OrderID, 10),
		Venue:  b.Name(),
		Pair:   pair,
		Side:   side,
		Amount: amount,
		Price:  price,
	}, nil
}

func (b *Binance) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := b.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return b.do(req)
}

func (b *Binance) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	payload := params.Encode()

	endpoint := b.baseURL + path + "?" + payload + "&signature=" + b.sign(payload)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)
	return b.do(req)
}

func (b *Binance) do(req *http.Request) ([]byte, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &binanceError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) == nil && apiErr.Msg != "" {
			return nil, apiErr
		}
		return nil, fmt.Errorf("binance api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// sign computes an HMAC-SHA256 signature over the encoded query payload.
// The signature goes after the signed parameters, never among them.
func (b *Binance) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func binanceSymbol(pair string) string {
	return strings.ReplaceAll(pair, "/", "")
}

type binanceError struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *binanceError) Error() string {
	return fmt.Sprintf("binance api error (%d): %s (code %d)", e.Status, e.Msg, e.Code)
}

// unknownSymbol reports the "invalid symbol" rejection, which means the pair
// is simply not listed.
func (e *binanceError) unknownSymbol() bool {
	return e.Code == -1121
}

// parseQuote builds a Quote from string prices, reporting ok=false when
// either side is missing or non-positive.
func parseQuote(bid, ask, last string) (market.Quote, bool) {
	bidDec, err := decimal.NewFromString(bid)
	if err != nil || !bidDec.IsPositive() {
		return market.Quote{}, false
	}
	askDec, err := decimal.NewFromString(ask)
	if err != nil || !askDec.IsPositive() {
		return market.Quote{}, false
	}

	quote := market.Quote{Bid: bidDec, Ask: askDec}
	if lastDec, err := decimal.NewFromString(last); err == nil && lastDec.IsPositive() {
		quote.Last = &lastDec
	}
	return quote, true
}

var _ Gateway = (*Binance)(nil)
