package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cross-arb/internal/alerting"
	"cross-arb/internal/arb"
	"cross-arb/internal/config"
	"cross-arb/internal/exchange"
	"cross-arb/internal/scheduler"
	"cross-arb/internal/service"
	"cross-arb/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newGateways resolves every configured venue through the static registry.
// Unknown venue ids fail here, before any cycle runs.
func (a *App) newGateways() (map[string]exchange.Gateway, error) {
	gateways := make(map[string]exchange.Gateway, len(a.Config.Exchanges))
	for name, cfg := range a.Config.Exchanges {
		gateway, err := exchange.New(name, cfg, a.Logger)
		if err != nil {
			return nil, err
		}
		gateways[name] = gateway
	}
	return gateways, nil
}

func (a *App) newNotifier() arb.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newCoordinator assembles the execution engine around the given gateways
// and optional recorder/notifier.
func (a *App) newCoordinator(gateways map[string]exchange.Gateway, notifier arb.Notifier, recorder arb.Recorder, tradingEnabled bool) (*arb.Coordinator, error) {
	cfg := a.Config.Arbitrage

	keyFn, ok := arb.KeyFuncFor(cfg.CooldownKey)
	if !ok {
		return nil, errors.New("unknown cooldown key policy: " + cfg.CooldownKey)
	}

	minBalances := make(map[string]decimal.Decimal, len(cfg.MinBalances))
	for asset, amount := range cfg.MinBalances {
		minBalances[asset] = decimal.NewFromFloat(amount)
	}

	venues := make([]string, 0, len(gateways))
	traders := make(map[string]arb.Trader, len(gateways))
	for name, gateway := range gateways {
		venues = append(venues, name)
		traders[name] = gateway
	}

	coordinator := arb.NewCoordinator(
		arb.CoordinatorConfig{
			MinProfitPct:   decimal.NewFromFloat(cfg.MinProfitPct),
			TradeValue:     decimal.NewFromFloat(cfg.TradeValue),
			Cooldown:       cfg.Cooldown,
			MinBalances:    minBalances,
			TradingEnabled: tradingEnabled,
		},
		arb.NewScanner(a.Logger),
		arb.NewProfitModel(decimal.NewFromFloat(cfg.FeeRate), decimal.NewFromFloat(cfg.TaxRate)),
		arb.NewTracker(),
		keyFn,
		arb.NewLedger(decimal.NewFromFloat(cfg.InitialAccountValue), venues),
		traders,
		notifier,
		recorder,
		a.Logger,
	)
	return coordinator, nil
}

// Run executes the long-running arbitrage service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	gateways, err := a.newGateways()
	if err != nil {
		return err
	}

	var recorder arb.Recorder
	if store != nil {
		recorder = store
	}

	coordinator, err := a.newCoordinator(gateways, a.newNotifier(), recorder, a.Config.Arbitrage.TradingEnabled)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	snapshotter := exchange.NewSnapshotter(gateways, a.Config.Pairs(), a.requestTimeout(), a.Logger)

	svc := service.New(sched, snapshotter, coordinator, gateways, a.Logger)

	if a.Config.Arbitrage.TradingEnabled {
		a.Logger.Info().Msg("starting arbitrage service (LIVE TRADING)")
	} else {
		a.Logger.Info().Msg("starting arbitrage service (dry run)")
	}

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("arbitrage service stopped")
	return nil
}

// requestTimeout bounds each venue's per-cycle work: the largest configured
// venue timeout, floored at a sane default.
func (a *App) requestTimeout() time.Duration {
	timeout := 10 * time.Second
	for _, cfg := range a.Config.Exchanges {
		if cfg.RequestTimeout > timeout {
			timeout = cfg.RequestTimeout
		}
	}
	return timeout
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit         int
	Opportunities bool
}

// ExportOptions hold parameters for exporting trade history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions feed a hand-built two-venue snapshot through a dry-run
// cycle.
type SimulateOptions struct {
	Pair   string
	VenueA string
	VenueB string
	BidA   float64
	AskA   float64
	BidB   float64
	AskB   float64
}
