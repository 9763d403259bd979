package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"cross-arb/internal/market"
)

// Snapshotter captures a price snapshot across all venues. Venues are
// fetched concurrently; a venue that fails its fetch window is simply
// absent from the snapshot, never a cycle failure.
type Snapshotter struct {
	gateways map[string]Gateway
	pairs    []string
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	markets map[string]map[string]struct{}
}

// NewSnapshotter builds a snapshotter over the given gateways and pair
// universe. timeout bounds each venue's work per cycle.
func NewSnapshotter(gateways map[string]Gateway, pairs []string, timeout time.Duration, logger zerolog.Logger) *Snapshotter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Snapshotter{
		gateways: gateways,
		pairs:    pairs,
		timeout:  timeout,
		logger:   logger.With().Str("component", "snapshotter").Logger(),
		markets:  make(map[string]map[string]struct{}),
	}
}

// Capture fetches quotes from every venue and joins them into one
// snapshot. Workers only collect; the snapshot is assembled after all of
// them finish.
func (s *Snapshotter) Capture(ctx context.Context) market.Snapshot {
	var (
		mu     sync.Mutex
		quotes = make(map[string]map[string]market.Quote, len(s.gateways))
	)

	g, gctx := errgroup.WithContext(ctx)
	for name, gateway := range s.gateways {
		g.Go(func() error {
			venueQuotes := s.fetchVenue(gctx, name, gateway)
			if len(venueQuotes) == 0 {
				return nil
			}
			mu.Lock()
			quotes[name] = venueQuotes
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return market.NewSnapshot(time.Now().UTC(), quotes)
}

func (s *Snapshotter) fetchVenue(ctx context.Context, name string, gateway Gateway) map[string]market.Quote {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	listed := s.ensureMarkets(ctx, name, gateway)
	if listed == nil {
		return nil
	}

	venueQuotes := make(map[string]market.Quote, len(s.pairs))
	for _, pair := range s.pairs {
		if _, ok := listed[pair]; !ok {
			s.logger.Debug().Str("venue", name).Str("pair", pair).Msg("pair not listed")
			continue
		}

		quote, ok, err := gateway.FetchTicker(ctx, pair)
		if err != nil {
			s.logger.Error().Err(err).Str("venue", name).Str("pair", pair).Msg("ticker fetch failed")
			continue
		}
		if !ok {
			s.logger.Debug().Str("venue", name).Str("pair", pair).Msg("no bid/ask for pair")
			continue
		}
		venueQuotes[pair] = quote
	}
	return venueQuotes
}

// ensureMarkets loads the venue's listed pairs on first use and retries on
// later cycles after a failure.
func (s *Snapshotter) ensureMarkets(ctx context.Context, name string, gateway Gateway) map[string]struct{} {
	s.mu.Lock()
	listed, ok := s.markets[name]
	s.mu.Unlock()
	if ok {
		return listed
	}

	listed, err := gateway.LoadMarkets(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("venue", name).Msg("load markets failed; venue skipped this cycle")
		return nil
	}

	s.mu.Lock()
	s.markets[name] = listed
	s.mu.Unlock()

	s.logger.Info().Str("venue", name).Int("pairs", len(listed)).Msg("markets loaded")
	return listed
}
