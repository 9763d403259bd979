package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cross-arb/internal/arb"
)

func TestStoreWithoutPool(t *testing.T) {
	store := NewStore(nil)

	if err := store.InsertTrade(context.Background(), TradeRecord{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := store.ListRecentTrades(context.Background(), 10); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTradeRecordFromEvent(t *testing.T) {
	opp := arb.Opportunity{
		BuyVenue:       "kraken",
		SellVenue:      "binance",
		Pair:           "BTC/USD",
		AskPrice:       decimal.NewFromInt(95),
		BidPrice:       decimal.NewFromInt(99),
		GrossProfitPct: decimal.NewFromFloat(4.21),
	}
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	event := arb.Event{
		Kind:        arb.EventTradeExecuted,
		Opportunity: opp,
		Profit:      arb.ProfitResult{NetProfit: decimal.NewFromFloat(30.516)},
		Amount:      decimal.NewFromInt(10),
		OccurredAt:  occurred,
	}

	record := tradeRecordFromEvent(event, TradeStatusExecuted)
	if record.Pair != "BTC/USD" || record.BuyVenue != "kraken" || record.SellVenue != "binance" {
		t.Fatalf("unexpected record: %#v", record)
	}
	if !record.ExecutedAt.Equal(occurred) {
		t.Fatalf("expected executed at %s, got %s", occurred, record.ExecutedAt)
	}
	if record.Status != TradeStatusExecuted || record.Error != nil {
		t.Fatalf("executed trades carry no error, got %#v", record)
	}

	event.Kind = arb.EventExecutionFailed
	event.Err = errors.New("sell leg rejected")
	record = tradeRecordFromEvent(event, TradeStatusPartial)
	if record.Status != TradeStatusPartial {
		t.Fatalf("expected partial status, got %s", record.Status)
	}
	if record.Error == nil || *record.Error != "sell leg rejected" {
		t.Fatalf("failure message must be captured, got %v", record.Error)
	}
}
