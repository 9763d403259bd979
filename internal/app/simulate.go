package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cross-arb/internal/market"
)

// Simulate feeds a hand-built two-venue snapshot through one dry-run cycle,
// exercising the scan/filter/rank path and the configured notifier without
// touching any venue.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.VenueA == opts.VenueB {
		return errors.New("simulate requires two distinct venues")
	}

	quotes := map[string]map[string]market.Quote{
		opts.VenueA: {
			opts.Pair: {
				Bid: decimal.NewFromFloat(opts.BidA),
				Ask: decimal.NewFromFloat(opts.AskA),
			},
		},
		opts.VenueB: {
			opts.Pair: {
				Bid: decimal.NewFromFloat(opts.BidB),
				Ask: decimal.NewFromFloat(opts.AskB),
			},
		},
	}
	snap := market.NewSnapshot(time.Now().UTC(), quotes)
	if snap.Empty() {
		return errors.New("simulated quotes are unusable; bid and ask must be positive")
	}

	coordinator, err := a.newCoordinator(nil, a.newNotifier(), nil, false)
	if err != nil {
		return err
	}

	result, err := coordinator.RunCycle(ctx, snap)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("scanned", result.Scanned).
		Int("viable", result.Viable).
		Msg("simulation complete")
	return nil
}
