package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityRecord is an append-only row for an observed (but not
// executed) opportunity.
type OpportunityRecord struct {
	ID             int64
	ObservedAt     time.Time
	Pair           string
	BuyVenue       string
	SellVenue      string
	BuyPrice       decimal.Decimal
	SellPrice      decimal.Decimal
	GrossProfitPct decimal.Decimal
	NetProfit      decimal.Decimal
	Fees           decimal.Decimal
	Taxes          decimal.Decimal
	CreatedAt      time.Time
}

// TradeRecord is an append-only row for a trade attempt: executed, rejected
// by a venue, or partially filled.
type TradeRecord struct {
	ID             int64
	ExecutedAt     time.Time
	Pair           string
	BuyVenue       string
	SellVenue      string
	BuyPrice       decimal.Decimal
	SellPrice      decimal.Decimal
	Amount         decimal.Decimal
	GrossProfitPct decimal.Decimal
	GrossProfit    decimal.Decimal
	Fees           decimal.Decimal
	Taxes          decimal.Decimal
	NetProfit      decimal.Decimal
	Status         string
	Error          *string
	CreatedAt      time.Time
}

// Trade statuses.
const (
	TradeStatusExecuted = "executed"
	TradeStatusFailed   = "failed"
	TradeStatusPartial  = "partial"
)
