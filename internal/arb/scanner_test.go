package arb

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/market"
)

func quote(bid, ask float64) market.Quote {
	return market.Quote{Bid: decimal.NewFromFloat(bid), Ask: decimal.NewFromFloat(ask)}
}

func TestScanFindsCrossVenueSpreads(t *testing.T) {
	snap := market.NewSnapshot(time.Now(), map[string]map[string]market.Quote{
		"v1": {"BTC/USD": quote(99, 100)},
		"v2": {"BTC/USD": quote(105, 95)},
	})

	candidates := NewScanner(zerolog.Nop()).Scan(snap)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	byDirection := make(map[string]Opportunity, len(candidates))
	for _, opp := range candidates {
		byDirection[opp.BuyVenue+"->"+opp.SellVenue] = opp
	}

	buyV2 := byDirection["v2->v1"]
	if !buyV2.GrossProfitPct.Round(2).Equal(decimal.NewFromFloat(4.21)) {
		t.Fatalf("buy v2/sell v1 gross profit: expected ~4.21, got %s", buyV2.GrossProfitPct)
	}
	if !buyV2.AskPrice.Equal(decimal.NewFromInt(95)) || !buyV2.BidPrice.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("buy v2/sell v1 prices wrong: ask %s bid %s", buyV2.AskPrice, buyV2.BidPrice)
	}

	buyV1 := byDirection["v1->v2"]
	if !buyV1.GrossProfitPct.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("buy v1/sell v2 gross profit: expected 5, got %s", buyV1.GrossProfitPct)
	}
}

func TestScanIdenticalQuotesYieldNothing(t *testing.T) {
	snap := market.NewSnapshot(time.Now(), map[string]map[string]market.Quote{
		"v1": {"BTC/USD": quote(100, 100)},
		"v2": {"BTC/USD": quote(100, 100)},
	})

	if candidates := NewScanner(zerolog.Nop()).Scan(snap); len(candidates) != 0 {
		t.Fatalf("expected no candidates for identical quotes, got %d", len(candidates))
	}
}

func TestScanSkipsPairsMissingOnOneSide(t *testing.T) {
	snap := market.NewSnapshot(time.Now(), map[string]map[string]market.Quote{
		"v1": {"BTC/USD": quote(99, 100), "LTC/USD": quote(50, 51)},
		"v2": {"BTC/USD": quote(105, 95)},
	})

	for _, opp := range NewScanner(zerolog.Nop()).Scan(snap) {
		if opp.Pair == "LTC/USD" {
			t.Fatalf("LTC/USD is quoted on one venue only and must not appear")
		}
	}
}

func TestScanStampsSnapshotTime(t *testing.T) {
	captured := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := market.NewSnapshot(captured, map[string]map[string]market.Quote{
		"v1": {"BTC/USD": quote(99, 100)},
		"v2": {"BTC/USD": quote(105, 95)},
	})

	for _, opp := range NewScanner(zerolog.Nop()).Scan(snap) {
		if !opp.ObservedAt.Equal(captured) {
			t.Fatalf("expected ObservedAt %s, got %s", captured, opp.ObservedAt)
		}
	}
}
