package arb

import (
	"time"

	"cross-arb/internal/market"
)

// KeyFunc derives the cooldown key for an opportunity. Which identity a
// trade throttles on is a policy choice, not a constant.
type KeyFunc func(opp Opportunity) string

// VenueKey throttles the venue being bought on.
func VenueKey(opp Opportunity) string {
	return opp.BuyVenue
}

// AssetKey throttles the traded base asset regardless of venue.
func AssetKey(opp Opportunity) string {
	base, _, ok := market.SplitPair(opp.Pair)
	if !ok {
		return opp.Pair
	}
	return base
}

// KeyFuncFor maps a configured policy name to its key derivation.
func KeyFuncFor(policy string) (KeyFunc, bool) {
	switch policy {
	case "venue":
		return VenueKey, true
	case "asset":
		return AssetKey, true
	default:
		return nil, false
	}
}

// Tracker holds per-key cooldown expiries in memory. A key is Cooling while
// its expiry is in the future and Idle otherwise; entries are never deleted,
// expiry lapses on its own. State does not survive a restart on purpose.
// Single-owner: only the control loop touches it.
type Tracker struct {
	expiries map[string]time.Time
	now      func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{expiries: make(map[string]time.Time), now: time.Now}
}

// Cooling reports whether the key is still inside its cooldown window.
func (t *Tracker) Cooling(key string) bool {
	expiry, ok := t.expiries[key]
	return ok && expiry.After(t.now())
}

// Start begins (or refreshes) the cooldown for a key.
func (t *Tracker) Start(key string, d time.Duration) {
	t.expiries[key] = t.now().Add(d)
}
