package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/arb"
	"cross-arb/internal/config"
	"cross-arb/internal/market"
)

const defaultKrakenBaseURL = "https://api.kraken.com"

// Kraken implements Gateway against the Kraken spot REST API. Kraken uses
// legacy asset codes (XBT, XXBT, ZUSD); the gateway normalises them so the
// rest of the system only sees plain symbols.
type Kraken struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
	logger    zerolog.Logger

	mu      sync.Mutex
	symbols map[string]string // normalised pair -> kraken pair name
}

// NewKraken constructs a Kraken gateway.
func NewKraken(cfg config.ExchangeConfig, logger zerolog.Logger) *Kraken {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultKrakenBaseURL
	}

	return &Kraken{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "exchange_kraken").Logger(),
		symbols:   make(map[string]string),
	}
}

// Name returns the venue id.
func (k *Kraken) Name() string { return "kraken" }

// LoadMarkets lists tradable pairs and caches the normalised-to-native name
// mapping used by the other calls.
func (k *Kraken) LoadMarkets(ctx context.Context) (map[string]struct{}, error) {
	body, err := k.public(ctx, "/0/public/AssetPairs", nil)
	if err != nil {
		return nil, fmt.Errorf("kraken asset pairs: %w", err)
	}

	var result map[string]struct {
		WSName string `json:"wsname"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse asset pairs: %w", err)
	}

	pairs := make(map[string]struct{}, len(result))
	symbols := make(map[string]string, len(result))
	for native, info := range result {
		if info.WSName == "" || (info.Status != "" && info.Status != "online") {
			continue
		}
		base, quote, ok := market.SplitPair(info.WSName)
		if !ok {
			continue
		}
		pair := krakenSymbol(base) + "/" + krakenSymbol(quote)
		pairs[pair] = struct{}{}
		symbols[pair] = native
	}

	k.mu.Lock()
	k.symbols = symbols
	k.mu.Unlock()

	return pairs, nil
}

// FetchTicker retrieves bid/ask/last for a pair. Pairs not listed on Kraken
// report unavailable rather than an error.
func (k *Kraken) FetchTicker(ctx context.Context, pair string) (market.Quote, bool, error) {
	native, ok := k.nativePair(pair)
	if !ok {
		return market.Quote{}, false, nil
	}

	params := url.Values{}
	params.Set("pair", native)

	body, err := k.public(ctx, "/0/public/Ticker", params)
	if err != nil {
		return market.Quote{}, false, fmt.Errorf("kraken ticker %s: %w", pair, err)
	}

	var result map[string]struct {
		Ask  []string `json:"a"`
		Bid  []string `json:"b"`
		Last []string `json:"c"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return market.Quote{}, false, fmt.Errorf("parse ticker %s: %w", pair, err)
	}

	for _, entry := range result {
		if len(entry.Bid) == 0 || len(entry.Ask) == 0 {
			return market.Quote{}, false, nil
		}
		last := ""
		if len(entry.Last) > 0 {
			last = entry.Last[0]
		}
		quote, ok := parseQuote(entry.Bid[0], entry.Ask[0], last)
		return quote, ok, nil
	}
	return market.Quote{}, false, nil
}

// FetchBalance returns balances per normalised asset.
func (k *Kraken) FetchBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	body, err := k.private(ctx, "/0/private/Balance", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("kraken balance: %w", err)
	}

	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}

	balances := make(map[string]decimal.Decimal, len(result))
	for asset, amount := range result {
		value, err := decimal.NewFromString(amount)
		if err != nil || !value.IsPositive() {
			continue
		}
		balances[krakenAsset(asset)] = value
	}
	return balances, nil
}

// CreateOrder places a limit order via AddOrder.
func (k *Kraken) CreateOrder(ctx context.Context, pair string, side arb.Side, amount, price decimal.Decimal) (arb.OrderConfirmation, error) {
	native, ok := k.nativePair(pair)
	if !ok {
		return arb.OrderConfirmation{}, fmt.Errorf("kraken: pair %s not listed", pair)
	}

	params := url.Values{}
	params.Set("pair", native)
	params.Set("type", string(side))
	params.Set("ordertype", "limit")
	params.Set("price", price.String())
	params.Set("volume", amount.String())

	body, err := k.private(ctx, "/0/private/AddOrder", params)
	if err != nil {
		return arb.OrderConfirmation{}, fmt.Errorf("kraken create order %s %s: %w", side, pair, err)
	}

	var result struct {
		TxID []string `json:"txid"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return arb.OrderConfirmation{}, fmt.Errorf("parse add order response: %w", err)
	}

	id := ""
	if len(result.TxID) > 0 {
		id = result.TxID[0]
	}

	k.logger.Info().
		Str("pair", pair).
		Str("side", string(side)).
		Str("txid", id).
		Msg("order placed")

	return arb.OrderConfirmation{
		ID:     id,
		Venue:  k.Name(),
		Pair:   pair,
		Side:   side,
		Amount: amount,
		Price:  price,
	}, nil
}

func (k *Kraken) nativePair(pair string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	native, ok := k.symbols[pair]
	return native, ok
}

func (k *Kraken) public(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := k.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return k.do(req)
}

func (k *Kraken) private(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("nonce", strconv.FormatInt(time.Now().UnixNano(), 10))

	signature, err := k.sign(path, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", k.apiKey)
	req.Header.Set("API-Sign", signature)
	return k.do(req)
}

// do executes the request and unwraps Kraken's {error:[], result:{}} envelope.
func (k *Kraken) do(req *http.Request) ([]byte, error) {
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse kraken envelope: %w", err)
	}
	if len(envelope.Error) > 0 {
		return nil, fmt.Errorf("kraken api error: %s", strings.Join(envelope.Error, "; "))
	}
	return envelope.Result, nil
}

// sign computes API-Sign: HMAC-SHA512 over path + SHA256(nonce + POST data)
// with the base64-decoded secret.
func (k *Kraken) sign(path string, params url.Values) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(k.apiSecret)
	if err != nil {
		return "", fmt.Errorf("decode kraken secret: %w", err)
	}

	digest := sha256.Sum256([]byte(params.Get("nonce") + params.Encode()))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

var krakenAssetAliases = map[string]string{
	"XBT":  "BTC",
	"XXBT": "BTC",
	"XETH": "ETH",
	"XLTC": "LTC",
	"XXDG": "DOGE",
	"ZUSD": "USD",
	"ZEUR": "EUR",
	"ZGBP": "GBP",
}

// krakenAsset maps a Kraken asset code to its common symbol.
func krakenAsset(code string) string {
	if alias, ok := krakenAssetAliases[code]; ok {
		return alias
	}
	return code
}

// krakenSymbol is krakenAsset for the short codes used in wsname pairs.
func krakenSymbol(code string) string {
	return krakenAsset(code)
}

var _ Gateway = (*Kraken)(nil)
