package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cross-arb/internal/arb"
	"cross-arb/internal/exchange"
	"cross-arb/internal/market"
	"cross-arb/internal/scheduler"
)

// summaryInterval paces the still-alive snapshot summaries.
const summaryInterval = 15 * time.Minute

// Service binds the control loop together: capture a snapshot, hand it to
// the coordinator, surface the outcome.
type Service struct {
	scheduler   *scheduler.Scheduler
	snapshotter *exchange.Snapshotter
	coordinator *arb.Coordinator
	gateways    map[string]exchange.Gateway
	logger      zerolog.Logger

	lastSummary time.Time
}

// New constructs the arbitrage service.
func New(sched *scheduler.Scheduler, snapshotter *exchange.Snapshotter, coordinator *arb.Coordinator, gateways map[string]exchange.Gateway, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:   sched,
		snapshotter: snapshotter,
		coordinator: coordinator,
		gateways:    gateways,
		logger:      logger.With().Str("component", "service").Logger(),
	}
}

// Run logs startup balances and begins the cycle loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	s.logStartupBalances(ctx)
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes one full scan/execute cycle.
func (s *Service) ProcessCycle(ctx context.Context, cycleStart time.Time) error {
	snap := s.snapshotter.Capture(ctx)
	if snap.Empty() {
		s.logger.Warn().Time("cycle", cycleStart).Msg("no venue returned usable prices this cycle")
		return nil
	}

	result, err := s.coordinator.RunCycle(ctx, snap)
	s.maybeLogSummary(snap)
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}

	event := s.logger.Debug().
		Int("scanned", result.Scanned).
		Int("viable", result.Viable)
	if result.Executed != nil {
		event = s.logger.Info().
			Int("scanned", result.Scanned).
			Int("viable", result.Viable).
			Str("pair", result.Executed.Opportunity.Pair).
			Str("net_profit", result.Executed.Profit.NetProfit.StringFixed(4))
	}
	event.Time("cycle", cycleStart).Msg("cycle complete")

	return nil
}

// logStartupBalances reports each venue's available balances once at boot.
// A venue that cannot report is logged and skipped; it may recover later.
func (s *Service) logStartupBalances(ctx context.Context) {
	for name, gateway := range s.gateways {
		balances, err := gateway.FetchBalance(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("venue", name).Msg("failed to fetch startup balances")
			continue
		}
		for asset, amount := range balances {
			s.logger.Info().
				Str("venue", name).
				Str("asset", asset).
				Str("available", amount.String()).
				Msg("startup balance")
		}
	}
}

// maybeLogSummary emits a coarse still-alive summary of the latest snapshot.
func (s *Service) maybeLogSummary(snap market.Snapshot) {
	now := time.Now()
	if now.Sub(s.lastSummary) < summaryInterval {
		return
	}
	s.lastSummary = now

	for _, venue := range snap.Venues() {
		s.logger.Info().
			Str("venue", venue).
			Int("pairs", len(snap.Pairs(venue))).
			Msg("still running; venue quoting")
	}
}
