package arb

import (
	"testing"
	"time"
)

func TestTrackerCoolingAndExpiry(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker()
	tracker.now = func() time.Time { return clock }

	if tracker.Cooling("binance") {
		t.Fatal("fresh tracker must not be cooling")
	}

	tracker.Start("binance", 5*time.Minute)
	if !tracker.Cooling("binance") {
		t.Fatal("key should be cooling right after Start")
	}
	if tracker.Cooling("kraken") {
		t.Fatal("other keys are unaffected")
	}

	clock = clock.Add(5*time.Minute - time.Second)
	if !tracker.Cooling("binance") {
		t.Fatal("key should still be cooling just before expiry")
	}

	clock = clock.Add(2 * time.Second)
	if tracker.Cooling("binance") {
		t.Fatal("key should be idle after expiry lapses")
	}
}

func TestTrackerStartRefreshes(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker()
	tracker.now = func() time.Time { return clock }

	tracker.Start("btc", 5*time.Minute)
	clock = clock.Add(4 * time.Minute)
	tracker.Start("btc", 5*time.Minute)

	clock = clock.Add(4 * time.Minute)
	if !tracker.Cooling("btc") {
		t.Fatal("refreshed cooldown should still be active")
	}
}

func TestKeyFuncFor(t *testing.T) {
	opp := Opportunity{BuyVenue: "binance", SellVenue: "kraken", Pair: "BTC/ETH"}

	venueFn, ok := KeyFuncFor("venue")
	if !ok || venueFn(opp) != "binance" {
		t.Fatalf("venue policy should key on the buy venue")
	}

	assetFn, ok := KeyFuncFor("asset")
	if !ok || assetFn(opp) != "BTC" {
		t.Fatalf("asset policy should key on the base asset")
	}

	if _, ok := KeyFuncFor("both"); ok {
		t.Fatal("unknown policy must be rejected")
	}
}
