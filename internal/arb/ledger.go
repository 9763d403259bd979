package arb

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger tracks the capital allocated to each venue. Rebalancing only
// redistributes value; the total changes solely through trade net profit.
// Single-owner: only the control loop mutates it.
type Ledger struct {
	venues  []string
	capital map[string]decimal.Decimal
}

// NewLedger splits the initial account value evenly across venues.
func NewLedger(initialValue decimal.Decimal, venues []string) *Ledger {
	sorted := append([]string(nil), venues...)
	sort.Strings(sorted)

	ledger := &Ledger{venues: sorted, capital: make(map[string]decimal.Decimal, len(sorted))}
	ledger.distribute(initialValue)
	return ledger
}

// Capital returns the capital currently allocated to a venue.
func (l *Ledger) Capital(venue string) decimal.Decimal {
	return l.capital[venue]
}

// Total sums capital across all venues.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, venue := range l.venues {
		total = total.Add(l.capital[venue])
	}
	return total
}

// ApplyTrade settles a confirmed trade: the buy venue pays the trade value,
// the sell venue receives it back plus net profit, then capital is
// rebalanced so no venue is structurally favoured on the next scan.
func (l *Ledger) ApplyTrade(buyVenue, sellVenue string, tradeValue, netProfit decimal.Decimal) {
	l.capital[buyVenue] = l.capital[buyVenue].Sub(tradeValue)
	l.capital[sellVenue] = l.capital[sellVenue].Add(tradeValue).Add(netProfit)
	l.Rebalance()
}

// Rebalance redistributes the total evenly across venues. The total is
// conserved exactly: division rounding lands on the last venue, never
// created or destroyed.
func (l *Ledger) Rebalance() {
	l.distribute(l.Total())
}

func (l *Ledger) distribute(total decimal.Decimal) {
	if len(l.venues) == 0 {
		return
	}

	share := total.Div(decimal.NewFromInt(int64(len(l.venues))))
	last := len(l.venues) - 1
	for _, venue := range l.venues[:last] {
		l.capital[venue] = share
	}
	l.capital[l.venues[last]] = total.Sub(share.Mul(decimal.NewFromInt(int64(last))))
}

// Balances returns a copy of the per-venue capital for logging.
func (l *Ledger) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.capital))
	for venue, value := range l.capital {
		out[venue] = value
	}
	return out
}
