package arb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/market"
)

// CoordinatorConfig tunes the per-cycle execution policy.
type CoordinatorConfig struct {
	MinProfitPct   decimal.Decimal
	TradeValue     decimal.Decimal
	Cooldown       time.Duration
	MinBalances    map[string]decimal.Decimal
	TradingEnabled bool
}

// Coordinator drives one cycle: scan, filter, rank, attempt, settle. It is
// the single owner of the ledger, cooldown tracker, and profit tallies; all
// mutation happens on the control-loop goroutine.
type Coordinator struct {
	cfg      CoordinatorConfig
	scanner  *Scanner
	profit   *ProfitModel
	cooldown *Tracker
	keyFn    KeyFunc
	ledger   *Ledger
	traders  map[string]Trader
	notifier Notifier
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCoordinator wires the execution engine. notifier and recorder may be
// nil; traders may be nil in dry-run mode.
func NewCoordinator(
	cfg CoordinatorConfig,
	scanner *Scanner,
	profit *ProfitModel,
	cooldown *Tracker,
	keyFn KeyFunc,
	ledger *Ledger,
	traders map[string]Trader,
	notifier Notifier,
	recorder Recorder,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		scanner:  scanner,
		profit:   profit,
		cooldown: cooldown,
		keyFn:    keyFn,
		ledger:   ledger,
		traders:  traders,
		notifier: notifier,
		recorder: recorder,
		logger:   logger.With().Str("component", "coordinator").Logger(),
		now:      time.Now,
	}
}

// TradeOutcome describes the single trade executed in a cycle.
type TradeOutcome struct {
	Opportunity Opportunity
	Profit      ProfitResult
	Amount      decimal.Decimal
}

// CycleResult summarises one cycle.
type CycleResult struct {
	Scanned  int
	Viable   int
	Executed *TradeOutcome
}

// RunCycle turns one snapshot into at most one executed trade. Candidates
// are attempted in rank order until one succeeds or none remain; a partial
// leg failure aborts the cycle and is returned as a *PartialLegError.
func (c *Coordinator) RunCycle(ctx context.Context, snap market.Snapshot) (CycleResult, error) {
	candidates := c.scanner.Scan(snap)
	viable := c.filter(candidates)
	rank(viable)

	result := CycleResult{Scanned: len(candidates), Viable: len(viable)}
	if len(viable) == 0 {
		c.logger.Debug().Int("scanned", len(candidates)).Msg("no viable opportunities")
		return result, nil
	}

	if !c.cfg.TradingEnabled {
		c.observeAll(ctx, viable)
		return result, nil
	}

	for _, opp := range viable {
		outcome, err := c.attempt(ctx, opp)
		if err != nil {
			if partial, ok := err.(*PartialLegError); ok {
				return result, partial
			}
			// Clean venue error: fall through to the next candidate.
			continue
		}
		if outcome == nil {
			// Insufficient balance: discard and fall through.
			continue
		}
		result.Executed = outcome
		return result, nil
	}

	return result, nil
}

// filter keeps candidates above the profit threshold whose cooldown key is
// not cooling.
func (c *Coordinator) filter(candidates []Opportunity) []Opportunity {
	viable := make([]Opportunity, 0, len(candidates))
	for _, opp := range candidates {
		if opp.GrossProfitPct.LessThanOrEqual(c.cfg.MinProfitPct) {
			continue
		}
		if key := c.keyFn(opp); c.cooldown.Cooling(key) {
			c.logger.Debug().
				Str("key", key).
				Str("pair", opp.Pair).
				Msg("candidate suppressed by cooldown")
			continue
		}
		viable = append(viable, opp)
	}
	return viable
}

// rank sorts by descending gross profit percentage; ties break
// lexicographically by pair, then buy venue, then sell venue.
func rank(opps []Opportunity) {
	sort.Slice(opps, func(i, j int) bool {
		if cmp := opps[i].GrossProfitPct.Cmp(opps[j].GrossProfitPct); cmp != 0 {
			return cmp > 0
		}
		if opps[i].Pair != opps[j].Pair {
			return opps[i].Pair < opps[j].Pair
		}
		if opps[i].BuyVenue != opps[j].BuyVenue {
			return opps[i].BuyVenue < opps[j].BuyVenue
		}
		return opps[i].SellVenue < opps[j].SellVenue
	})
}

// observeAll emits an observation event per viable candidate in dry-run
// mode. Tallies are left untouched.
func (c *Coordinator) observeAll(ctx context.Context, viable []Opportunity) {
	for _, opp := range viable {
		profit := c.previewProfit(opp)
		c.logger.Info().
			Str("pair", opp.Pair).
			Str("buy_venue", opp.BuyVenue).
			Str("sell_venue", opp.SellVenue).
			Str("ask", opp.AskPrice.String()).
			Str("bid", opp.BidPrice.String()).
			Str("gross_profit_pct", opp.GrossProfitPct.StringFixed(4)).
			Str("net_profit", profit.NetProfit.StringFixed(4)).
			Msg("opportunity observed")
		c.emit(ctx, Event{
			Kind:        EventOpportunityObserved,
			Opportunity: opp,
			Profit:      profit,
			OccurredAt:  c.now(),
		})
	}
}

func (c *Coordinator) previewProfit(opp Opportunity) ProfitResult {
	gross := c.cfg.TradeValue.Mul(opp.GrossProfitPct).Div(decHundred)
	return c.profit.Preview(gross, c.cfg.TradeValue)
}

// attempt runs the balance check and two-leg submission for one candidate.
// A nil outcome with nil error means the candidate was discarded for
// insufficient balance.
func (c *Coordinator) attempt(ctx context.Context, opp Opportunity) (*TradeOutcome, error) {
	buyTrader, ok := c.traders[opp.BuyVenue]
	if !ok {
		return nil, c.failVenue(ctx, opp, fmt.Errorf("no gateway for venue %s", opp.BuyVenue))
	}
	sellTrader, ok := c.traders[opp.SellVenue]
	if !ok {
		return nil, c.failVenue(ctx, opp, fmt.Errorf("no gateway for venue %s", opp.SellVenue))
	}

	amount := c.cfg.TradeValue.Div(opp.AskPrice)

	sufficient, err := c.checkBalances(ctx, opp, buyTrader, sellTrader, amount)
	if err != nil {
		return nil, c.failVenue(ctx, opp, err)
	}
	if !sufficient {
		return nil, nil
	}

	buyConf, sellConf, err := c.submitLegs(ctx, opp, buyTrader, sellTrader, amount)
	if err != nil {
		if partial, ok := err.(*PartialLegError); ok {
			// Settlement is all-or-nothing: ledger and cooldown stay
			// untouched so the imbalance is reconciled by hand, not
			// papered over by throttling.
			c.emit(ctx, Event{
				Kind:        EventExecutionFailed,
				Opportunity: opp,
				Amount:      amount,
				Reason:      ReasonPartialLeg,
				Err:         partial,
				OccurredAt:  c.now(),
			})
			c.logger.Error().
				Err(partial).
				Str("pair", opp.Pair).
				Str("buy_venue", opp.BuyVenue).
				Str("sell_venue", opp.SellVenue).
				Str("amount", amount.String()).
				Msg("PARTIAL TRADE: one leg filled, manual reconciliation required")
			return nil, partial
		}
		return nil, c.failVenue(ctx, opp, err)
	}

	return c.settle(ctx, opp, amount, buyConf, sellConf), nil
}

// checkBalances verifies both legs against live balances and the configured
// per-asset minimums. The buy leg spends quote currency, the sell leg
// delivers base.
func (c *Coordinator) checkBalances(ctx context.Context, opp Opportunity, buyTrader, sellTrader Trader, amount decimal.Decimal) (bool, error) {
	base, quote, ok := market.SplitPair(opp.Pair)
	if !ok {
		return false, fmt.Errorf("malformed pair %q", opp.Pair)
	}

	buyBalances, err := buyTrader.FetchBalance(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch balance on %s: %w", opp.BuyVenue, err)
	}
	sellBalances, err := sellTrader.FetchBalance(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch balance on %s: %w", opp.SellVenue, err)
	}

	buyNeed := decimal.Max(c.cfg.TradeValue, c.cfg.MinBalances[quote])
	if buyBalances[quote].LessThan(buyNeed) {
		c.logger.Debug().
			Str("venue", opp.BuyVenue).
			Str("asset", quote).
			Str("available", buyBalances[quote].String()).
			Str("required", buyNeed.String()).
			Msg("insufficient balance on buy leg")
		return false, nil
	}

	sellNeed := decimal.Max(amount, c.cfg.MinBalances[base])
	if sellBalances[base].LessThan(sellNeed) {
		c.logger.Debug().
			Str("venue", opp.SellVenue).
			Str("asset", base).
			Str("available", sellBalances[base].String()).
			Str("required", sellNeed.String()).
			Msg("insufficient balance on sell leg")
		return false, nil
	}

	return true, nil
}

// submitLegs issues both orders concurrently and waits for both outcomes.
// The legs are independent; there is no two-phase commit.
func (c *Coordinator) submitLegs(ctx context.Context, opp Opportunity, buyTrader, sellTrader Trader, amount decimal.Decimal) (OrderConfirmation, OrderConfirmation, error) {
	var (
		wg       sync.WaitGroup
		buyConf  OrderConfirmation
		sellConf OrderConfirmation
		buyErr   error
		sellErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		buyConf, buyErr = buyTrader.CreateOrder(ctx, opp.Pair, SideBuy, amount, opp.AskPrice)
	}()
	go func() {
		defer wg.Done()
		sellConf, sellErr = sellTrader.CreateOrder(ctx, opp.Pair, SideSell, amount, opp.BidPrice)
	}()
	wg.Wait()

	switch {
	case buyErr == nil && sellErr == nil:
		return buyConf, sellConf, nil
	case buyErr != nil && sellErr != nil:
		return OrderConfirmation{}, OrderConfirmation{}, fmt.Errorf("both legs rejected: buy: %v; sell: %w", buyErr, sellErr)
	case buyErr != nil:
		return OrderConfirmation{}, OrderConfirmation{}, &PartialLegError{
			Opportunity: opp,
			FilledSide:  SideSell,
			FailedSide:  SideBuy,
			Err:         buyErr,
		}
	default:
		return OrderConfirmation{}, OrderConfirmation{}, &PartialLegError{
			Opportunity: opp,
			FilledSide:  SideBuy,
			FailedSide:  SideSell,
			Err:         sellErr,
		}
	}
}

// settle applies a confirmed two-leg trade: ledger, cooldown, tallies,
// events. Runs only after both legs succeeded.
func (c *Coordinator) settle(ctx context.Context, opp Opportunity, amount decimal.Decimal, buyConf, sellConf OrderConfirmation) *TradeOutcome {
	gross := c.cfg.TradeValue.Mul(opp.GrossProfitPct).Div(decHundred)
	profit := c.profit.NetProfit(gross, c.cfg.TradeValue)

	c.ledger.ApplyTrade(opp.BuyVenue, opp.SellVenue, c.cfg.TradeValue, profit.NetProfit)
	c.cooldown.Start(c.keyFn(opp), c.cfg.Cooldown)

	c.logger.Info().
		Str("pair", opp.Pair).
		Str("buy_venue", opp.BuyVenue).
		Str("sell_venue", opp.SellVenue).
		Str("buy_order", buyConf.ID).
		Str("sell_order", sellConf.ID).
		Str("amount", amount.String()).
		Str("net_profit", profit.NetProfit.StringFixed(4)).
		Str("fees_tally", c.profit.FeesTally().StringFixed(4)).
		Str("tax_tally", c.profit.TaxTally().StringFixed(4)).
		Msg("trade executed")

	c.emit(ctx, Event{
		Kind:        EventTradeExecuted,
		Opportunity: opp,
		Profit:      profit,
		Amount:      amount,
		OccurredAt:  c.now(),
	})

	return &TradeOutcome{Opportunity: opp, Profit: profit, Amount: amount}
}

// failVenue reports a clean venue failure and returns the original error so
// the caller advances to the next candidate.
func (c *Coordinator) failVenue(ctx context.Context, opp Opportunity, err error) error {
	c.logger.Error().
		Err(err).
		Str("pair", opp.Pair).
		Str("buy_venue", opp.BuyVenue).
		Str("sell_venue", opp.SellVenue).
		Msg("execution failed")
	c.emit(ctx, Event{
		Kind:        EventExecutionFailed,
		Opportunity: opp,
		Reason:      ReasonVenueError,
		Err:         err,
		OccurredAt:  c.now(),
	})
	return err
}

// emit fans an event out to the notifier and recorder. Failures there must
// never fail a cycle.
func (c *Coordinator) emit(ctx context.Context, event Event) {
	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, event); err != nil {
			c.logger.Error().Err(err).Str("kind", string(event.Kind)).Msg("failed to dispatch event")
		}
	}
	if c.recorder != nil {
		if err := c.recorder.Record(ctx, event); err != nil {
			c.logger.Error().Err(err).Str("kind", string(event.Kind)).Msg("failed to record event")
		}
	}
}
