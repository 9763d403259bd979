package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"cross-arb/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig                 `mapstructure:"app"`
	Logging   logging.Config            `mapstructure:"logging"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Scheduler SchedulerConfig           `mapstructure:"scheduler"`
	Exchanges map[string]ExchangeConfig `mapstructure:"exchanges"`
	Arbitrage ArbitrageConfig           `mapstructure:"arbitrage"`
	Alerting  AlertingConfig            `mapstructure:"alerting"`
	Export    ExportConfig              `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs scan cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// ExchangeConfig holds per-venue connectivity and credentials.
type ExchangeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ArbitrageConfig tunes the opportunity filter and execution policy.
type ArbitrageConfig struct {
	MinProfitPct        float64            `mapstructure:"min_profit_pct"`
	FeeRate             float64            `mapstructure:"fee_rate"`
	TaxRate             float64            `mapstructure:"tax_rate"`
	TradeValue          float64            `mapstructure:"trade_value"`
	InitialAccountValue float64            `mapstructure:"initial_account_value"`
	Cooldown            time.Duration      `mapstructure:"cooldown"`
	CooldownKey         string             `mapstructure:"cooldown_key"`
	TradingEnabled      bool               `mapstructure:"trading_enabled"`
	Assets              []string           `mapstructure:"assets"`
	Denominators        []string           `mapstructure:"denominators"`
	MinBalances         map[string]float64 `mapstructure:"min_balances"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CROSSARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "crossarb")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "15s")
	v.SetDefault("scheduler.align_to_bucket", false)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("arbitrage.min_profit_pct", 1.35)
	v.SetDefault("arbitrage.fee_rate", 0.002867)
	v.SetDefault("arbitrage.tax_rate", 0.275)
	v.SetDefault("arbitrage.trade_value", 1000.0)
	v.SetDefault("arbitrage.initial_account_value", 10000.0)
	v.SetDefault("arbitrage.cooldown", "5m")
	v.SetDefault("arbitrage.cooldown_key", "venue")
	v.SetDefault("arbitrage.trading_enabled", false)
	v.SetDefault("arbitrage.assets", []string{"BTC", "LTC", "ETH"})
	v.SetDefault("arbitrage.denominators", []string{"BTC", "ETH"})

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs startup sanity checks. Configuration errors are fatal
// here rather than handled per-cycle.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Arbitrage.MinProfitPct < 0 {
		return fmt.Errorf("arbitrage.min_profit_pct cannot be negative")
	}
	if c.Arbitrage.FeeRate < 0 || c.Arbitrage.FeeRate >= 1 {
		return fmt.Errorf("arbitrage.fee_rate must be in [0, 1)")
	}
	if c.Arbitrage.TaxRate < 0 || c.Arbitrage.TaxRate >= 1 {
		return fmt.Errorf("arbitrage.tax_rate must be in [0, 1)")
	}
	if c.Arbitrage.TradeValue <= 0 {
		return fmt.Errorf("arbitrage.trade_value must be greater than zero")
	}
	if c.Arbitrage.InitialAccountValue <= 0 {
		return fmt.Errorf("arbitrage.initial_account_value must be greater than zero")
	}
	if c.Arbitrage.Cooldown < 0 {
		return fmt.Errorf("arbitrage.cooldown cannot be negative")
	}
	switch c.Arbitrage.CooldownKey {
	case "venue", "asset":
	default:
		return fmt.Errorf("arbitrage.cooldown_key must be %q or %q, got %q", "venue", "asset", c.Arbitrage.CooldownKey)
	}
	if len(c.Arbitrage.Assets) == 0 {
		return fmt.Errorf("arbitrage.assets cannot be empty")
	}
	if len(c.Arbitrage.Denominators) == 0 {
		return fmt.Errorf("arbitrage.denominators cannot be empty")
	}
	for _, sym := range append(append([]string{}, c.Arbitrage.Assets...), c.Arbitrage.Denominators...) {
		if err := validateSymbol(sym); err != nil {
			return err
		}
	}
	for sym := range c.Arbitrage.MinBalances {
		if err := validateSymbol(sym); err != nil {
			return err
		}
	}
	if len(c.Exchanges) < 2 && c.Arbitrage.TradingEnabled {
		return fmt.Errorf("at least two exchanges are required for live trading, got %d", len(c.Exchanges))
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

func validateSymbol(sym string) error {
	if sym == "" {
		return fmt.Errorf("asset symbol cannot be empty")
	}
	if strings.ContainsAny(sym, "/ ") {
		return fmt.Errorf("malformed asset symbol %q", sym)
	}
	if sym != strings.ToUpper(sym) {
		return fmt.Errorf("asset symbol %q must be upper case", sym)
	}
	return nil
}

// Pairs expands assets x denominators into the tradable pair universe,
// skipping self pairs such as BTC/BTC.
func (c *Config) Pairs() []string {
	pairs := make([]string, 0, len(c.Arbitrage.Assets)*len(c.Arbitrage.Denominators))
	for _, asset := range c.Arbitrage.Assets {
		for _, denom := range c.Arbitrage.Denominators {
			if asset == denom {
				continue
			}
			pairs = append(pairs, asset+"/"+denom)
		}
	}
	return pairs
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
