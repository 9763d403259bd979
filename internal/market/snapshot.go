package market

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Quote holds the bid/ask for one pair on one venue. Last is optional:
// illiquid markets report bid/ask without a last trade.
type Quote struct {
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Last *decimal.Decimal
}

// Usable reports whether the quote can participate in a scan. Both sides
// must be present and strictly positive.
func (q Quote) Usable() bool {
	return q.Bid.IsPositive() && q.Ask.IsPositive()
}

// Snapshot is an immutable per-cycle capture of quotes keyed by venue and
// pair. Venues or pairs without usable data are simply absent.
type Snapshot struct {
	capturedAt time.Time
	quotes     map[string]map[string]Quote
}

// NewSnapshot builds a snapshot from per-venue quote maps, dropping any
// quote that is not usable. The input maps are copied.
func NewSnapshot(capturedAt time.Time, quotes map[string]map[string]Quote) Snapshot {
	copied := make(map[string]map[string]Quote, len(quotes))
	for venue, pairs := range quotes {
		kept := make(map[string]Quote, len(pairs))
		for pair, quote := range pairs {
			if !quote.Usable() {
				continue
			}
			kept[pair] = quote
		}
		if len(kept) > 0 {
			copied[venue] = kept
		}
	}
	return Snapshot{capturedAt: capturedAt, quotes: copied}
}

// CapturedAt returns the capture timestamp.
func (s Snapshot) CapturedAt() time.Time {
	return s.capturedAt
}

// Venues lists venues with at least one usable quote, sorted for
// deterministic iteration.
func (s Snapshot) Venues() []string {
	venues := make([]string, 0, len(s.quotes))
	for venue := range s.quotes {
		venues = append(venues, venue)
	}
	sort.Strings(venues)
	return venues
}

// Pairs lists pairs quoted on the given venue, sorted.
func (s Snapshot) Pairs(venue string) []string {
	pairs := make([]string, 0, len(s.quotes[venue]))
	for pair := range s.quotes[venue] {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	return pairs
}

// Quote returns the quote for (venue, pair) if present.
func (s Snapshot) Quote(venue, pair string) (Quote, bool) {
	quote, ok := s.quotes[venue][pair]
	return quote, ok
}

// Empty reports whether the snapshot holds no usable quotes at all.
func (s Snapshot) Empty() bool {
	return len(s.quotes) == 0
}
