package exchange

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/arb"
	"cross-arb/internal/config"
	"cross-arb/internal/market"
)

// Gateway is the connectivity surface of one trading venue.
type Gateway interface {
	// Name returns the venue id.
	Name() string
	// LoadMarkets returns the set of tradable pair ids.
	LoadMarkets(ctx context.Context) (map[string]struct{}, error)
	// FetchTicker returns the venue quote for a pair. ok is false when the
	// pair has no usable quote this moment; that is not an error.
	FetchTicker(ctx context.Context, pair string) (market.Quote, bool, error)
	// FetchBalance returns available amounts keyed by asset id.
	FetchBalance(ctx context.Context) (map[string]decimal.Decimal, error)
	// CreateOrder places a limit order for one leg.
	CreateOrder(ctx context.Context, pair string, side arb.Side, amount, price decimal.Decimal) (arb.OrderConfirmation, error)
}

// Factory builds a gateway from venue configuration.
type Factory func(cfg config.ExchangeConfig, logger zerolog.Logger) Gateway

// factories is the static venue registry. Configured venue ids resolve here
// at startup; unknown ids are a fatal configuration error.
var factories = map[string]Factory{
	"binance": func(cfg config.ExchangeConfig, logger zerolog.Logger) Gateway {
		return NewBinance(cfg, logger)
	},
	"kraken": func(cfg config.ExchangeConfig, logger zerolog.Logger) Gateway {
		return NewKraken(cfg, logger)
	},
}

// New resolves a configured venue id to a concrete gateway.
func New(name string, cfg config.ExchangeConfig, logger zerolog.Logger) (Gateway, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", name)
	}
	return factory(cfg, logger), nil
}
