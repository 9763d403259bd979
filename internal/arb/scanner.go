package arb

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/market"
)

// Opportunity is a transient candidate trade produced from one snapshot:
// buy at the ask on one venue, sell at the bid on another.
type Opportunity struct {
	BuyVenue       string
	SellVenue      string
	Pair           string
	AskPrice       decimal.Decimal
	BidPrice       decimal.Decimal
	GrossProfitPct decimal.Decimal
	ObservedAt     time.Time
}

// Scanner walks every ordered venue pair and every pair quoted on both
// sides, emitting candidates with a strictly positive gross profit. The
// configured minimum-profit threshold is applied downstream by the
// coordinator, not here.
type Scanner struct {
	logger zerolog.Logger
}

// NewScanner constructs a Scanner.
func NewScanner(logger zerolog.Logger) *Scanner {
	return &Scanner{logger: logger.With().Str("component", "scanner").Logger()}
}

// Scan produces candidates from one snapshot. A venue with no usable quotes
// contributes nothing; unusable quotes never reach this point because the
// snapshot drops them on capture.
func (s *Scanner) Scan(snap market.Snapshot) []Opportunity {
	var candidates []Opportunity

	venues := snap.Venues()
	for _, buyVenue := range venues {
		for _, sellVenue := range venues {
			if buyVenue == sellVenue {
				continue
			}
			candidates = append(candidates, s.scanVenuePair(snap, buyVenue, sellVenue)...)
		}
	}

	return candidates
}

func (s *Scanner) scanVenuePair(snap market.Snapshot, buyVenue, sellVenue string) []Opportunity {
	var candidates []Opportunity

	for _, pair := range snap.Pairs(buyVenue) {
		buyQuote, _ := snap.Quote(buyVenue, pair)
		sellQuote, ok := snap.Quote(sellVenue, pair)
		if !ok {
			continue
		}

		gross, err := GrossProfitPct(buyQuote.Ask, sellQuote.Bid)
		if err != nil {
			s.logger.Debug().
				Str("pair", pair).
				Str("buy_venue", buyVenue).
				Msg("skipping pair with non-positive ask")
			continue
		}
		if !gross.IsPositive() {
			continue
		}

		candidates = append(candidates, Opportunity{
			BuyVenue:       buyVenue,
			SellVenue:      sellVenue,
			Pair:           pair,
			AskPrice:       buyQuote.Ask,
			BidPrice:       sellQuote.Bid,
			GrossProfitPct: gross,
			ObservedAt:     snap.CapturedAt(),
		})
	}

	return candidates
}
