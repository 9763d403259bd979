package arb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind labels the structured events emitted by the coordinator.
type EventKind string

const (
	EventOpportunityObserved EventKind = "opportunity_observed"
	EventTradeExecuted       EventKind = "trade_executed"
	EventExecutionFailed     EventKind = "execution_failed"
)

// FailureReason classifies execution failures.
type FailureReason string

const (
	// ReasonVenueError covers auth, network, and rejected-order failures
	// on one or both legs before anything filled.
	ReasonVenueError FailureReason = "venue_error"
	// ReasonPartialLeg is the severest class: one leg filled while the
	// other failed, leaving real capital imbalance across venues.
	ReasonPartialLeg FailureReason = "partial_leg"
)

// Event is the structured record handed to the Notifier and Recorder
// collaborators.
type Event struct {
	Kind        EventKind
	Opportunity Opportunity
	Profit      ProfitResult
	Amount      decimal.Decimal
	Reason      FailureReason
	Err         error
	OccurredAt  time.Time
}

// Notifier delivers events to an external channel. Delivery failures are
// logged by the coordinator and never fail a cycle.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Recorder appends events to durable history.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Side labels an order leg.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderConfirmation is the venue's acknowledgement of a placed order.
type OrderConfirmation struct {
	ID     string
	Venue  string
	Pair   string
	Side   Side
	Amount decimal.Decimal
	Price  decimal.Decimal
}

// Trader is the slice of a venue gateway the coordinator needs: balance
// lookup and order placement.
type Trader interface {
	FetchBalance(ctx context.Context) (map[string]decimal.Decimal, error)
	CreateOrder(ctx context.Context, pair string, side Side, amount, price decimal.Decimal) (OrderConfirmation, error)
}

// PartialLegError reports a trade where one leg filled and the other did
// not. The coordinator does not attempt automatic reconciliation; the error
// carries enough detail for manual follow-up.
type PartialLegError struct {
	Opportunity Opportunity
	FilledSide  Side
	FailedSide  Side
	Err         error
}

func (e *PartialLegError) Error() string {
	return fmt.Sprintf(
		"partial trade on %s: %s leg filled (%s), %s leg failed (%s): %v",
		e.Opportunity.Pair,
		e.FilledSide, e.filledVenue(),
		e.FailedSide, e.failedVenue(),
		e.Err,
	)
}

func (e *PartialLegError) Unwrap() error {
	return e.Err
}

func (e *PartialLegError) filledVenue() string {
	if e.FilledSide == SideBuy {
		return e.Opportunity.BuyVenue
	}
	return e.Opportunity.SellVenue
}

func (e *PartialLegError) failedVenue() string {
	if e.FailedSide == SideBuy {
		return e.Opportunity.BuyVenue
	}
	return e.Opportunity.SellVenue
}
