package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cross-arb/internal/arb"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	insertOpportunitySQL = `INSERT INTO opportunities (
        observed_at,
        pair,
        buy_venue,
        sell_venue,
        buy_price,
        sell_price,
        gross_profit_pct,
        net_profit,
        fees,
        taxes
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	insertTradeSQL = `INSERT INTO trades (
        executed_at,
        pair,
        buy_venue,
        sell_venue,
        buy_price,
        sell_price,
        amount,
        gross_profit_pct,
        gross_profit,
        fees,
        taxes,
        net_profit,
        status,
        error
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`

	listRecentTradesSQL = `SELECT
        id, executed_at, pair, buy_venue, sell_venue,
        buy_price, sell_price, amount,
        gross_profit_pct, gross_profit, fees, taxes, net_profit,
        status, error, created_at
    FROM trades
    ORDER BY executed_at DESC
    LIMIT $1;`

	listTradesBetweenSQL = `SELECT
        id, executed_at, pair, buy_venue, sell_venue,
        buy_price, sell_price, amount,
        gross_profit_pct, gross_profit, fees, taxes, net_profit,
        status, error, created_at
    FROM trades
    WHERE executed_at >= $1 AND executed_at < $2
    ORDER BY executed_at ASC;`

	listRecentOpportunitiesSQL = `SELECT
        id, observed_at, pair, buy_venue, sell_venue,
        buy_price, sell_price, gross_profit_pct, net_profit, fees, taxes,
        created_at
    FROM opportunities
    ORDER BY observed_at DESC
    LIMIT $1;`

	countTradesSQL = `SELECT COUNT(*) FROM trades;`
)

// Store persists opportunity and trade history in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an initialised pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Record appends a coordinator event to history. Observation events become
// opportunity rows; execution events become trade rows.
func (s *Store) Record(ctx context.Context, event arb.Event) error {
	switch event.Kind {
	case arb.EventOpportunityObserved:
		return s.InsertOpportunity(ctx, OpportunityRecord{
			ObservedAt:     event.Opportunity.ObservedAt,
			Pair:           event.Opportunity.Pair,
			BuyVenue:       event.Opportunity.BuyVenue,
			SellVenue:      event.Opportunity.SellVenue,
			BuyPrice:       event.Opportunity.AskPrice,
			SellPrice:      event.Opportunity.BidPrice,
			GrossProfitPct: event.Opportunity.GrossProfitPct,
			NetProfit:      event.Profit.NetProfit,
			Fees:           event.Profit.Fees,
			Taxes:          event.Profit.Taxes,
		})
	case arb.EventTradeExecuted:
		return s.InsertTrade(ctx, tradeRecordFromEvent(event, TradeStatusExecuted))
	case arb.EventExecutionFailed:
		status := TradeStatusFailed
		if event.Reason == arb.ReasonPartialLeg {
			status = TradeStatusPartial
		}
		return s.InsertTrade(ctx, tradeRecordFromEvent(event, status))
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

func tradeRecordFromEvent(event arb.Event, status string) TradeRecord {
	record := TradeRecord{
		ExecutedAt:     event.OccurredAt,
		Pair:           event.Opportunity.Pair,
		BuyVenue:       event.Opportunity.BuyVenue,
		SellVenue:      event.Opportunity.SellVenue,
		BuyPrice:       event.Opportunity.AskPrice,
		SellPrice:      event.Opportunity.BidPrice,
		Amount:         event.Amount,
		GrossProfitPct: event.Opportunity.GrossProfitPct,
		GrossProfit:    event.Profit.GrossProfit,
		Fees:           event.Profit.Fees,
		Taxes:          event.Profit.Taxes,
		NetProfit:      event.Profit.NetProfit,
		Status:         status,
	}
	if event.Err != nil {
		msg := event.Err.Error()
		record.Error = &msg
	}
	return record
}

// InsertOpportunity appends an opportunity row.
func (s *Store) InsertOpportunity(ctx context.Context, record OpportunityRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, insertOpportunitySQL,
		record.ObservedAt,
		record.Pair,
		record.BuyVenue,
		record.SellVenue,
		record.BuyPrice.String(),
		record.SellPrice.String(),
		record.GrossProfitPct.String(),
		record.NetProfit.String(),
		record.Fees.String(),
		record.Taxes.String(),
	); execErr != nil {
		return fmt.Errorf("insert opportunity: %w", execErr)
	}
	return nil
}

// InsertTrade appends a trade row.
func (s *Store) InsertTrade(ctx context.Context, record TradeRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, insertTradeSQL,
		record.ExecutedAt,
		record.Pair,
		record.BuyVenue,
		record.SellVenue,
		record.BuyPrice.String(),
		record.SellPrice.String(),
		record.Amount.String(),
		record.GrossProfitPct.String(),
		record.GrossProfit.String(),
		record.Fees.String(),
		record.Taxes.String(),
		record.NetProfit.String(),
		record.Status,
		record.Error,
	); execErr != nil {
		return fmt.Errorf("insert trade: %w", execErr)
	}
	return nil
}

// ListRecentTrades lists the most recent trades ordered by descending time.
func (s *Store) ListRecentTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTradesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent trades: %w", queryErr)
	}
	defer rows.Close()

	return collectTrades(rows, limit)
}

// ListTradesBetween lists trades inside [from, to) ordered by ascending time.
func (s *Store) ListTradesBetween(ctx context.Context, from, to time.Time) ([]TradeRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTradesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list trades between: %w", queryErr)
	}
	defer rows.Close()

	return collectTrades(rows, 0)
}

// ListRecentOpportunities lists the most recent observed opportunities.
func (s *Store) ListRecentOpportunities(ctx context.Context, limit int) ([]OpportunityRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentOpportunitiesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent opportunities: %w", queryErr)
	}
	defer rows.Close()

	records := make([]OpportunityRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanOpportunity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountTrades counts stored trade rows.
func (s *Store) CountTrades(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countTradesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count trades: %w", scanErr)
	}
	return count, nil
}

func collectTrades(rows pgx.Rows, capacity int) ([]TradeRecord, error) {
	records := make([]TradeRecord, 0, capacity)
	for rows.Next() {
		record, scanErr := scanTrade(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanTrade(rows pgx.Rows) (TradeRecord, error) {
	var (
		record    TradeRecord
		buyPrice  string
		sellPrice string
		amount    string
		grossPct  string
		gross     string
		fees      string
		taxes     string
		net       string
		errMsg    sql.NullString
	)

	if err := rows.Scan(
		&record.ID,
		&record.ExecutedAt,
		&record.Pair,
		&record.BuyVenue,
		&record.SellVenue,
		&buyPrice,
		&sellPrice,
		&amount,
		&grossPct,
		&gross,
		&fees,
		&taxes,
		&net,
		&record.Status,
		&errMsg,
		&record.CreatedAt,
	); err != nil {
		return TradeRecord{}, err
	}

	fields := []struct {
		raw    string
		target *decimal.Decimal
	}{
		{buyPrice, &record.BuyPrice},
		{sellPrice, &record.SellPrice},
		{amount, &record.Amount},
		{grossPct, &record.GrossProfitPct},
		{gross, &record.GrossProfit},
		{fees, &record.Fees},
		{taxes, &record.Taxes},
		{net, &record.NetProfit},
	}
	for _, field := range fields {
		value, err := decimal.NewFromString(field.raw)
		if err != nil {
			return TradeRecord{}, fmt.Errorf("parse trade decimal: %w", err)
		}
		*field.target = value
	}

	if errMsg.Valid {
		msg := errMsg.String
		record.Error = &msg
	}
	return record, nil
}

func scanOpportunity(rows pgx.Rows) (OpportunityRecord, error) {
	var (
		record    OpportunityRecord
		buyPrice  string
		sellPrice string
		grossPct  string
		net       string
		fees      string
		taxes     string
	)

	if err := rows.Scan(
		&record.ID,
		&record.ObservedAt,
		&record.Pair,
		&record.BuyVenue,
		&record.SellVenue,
		&buyPrice,
		&sellPrice,
		&grossPct,
		&net,
		&fees,
		&taxes,
		&record.CreatedAt,
	); err != nil {
		return OpportunityRecord{}, err
	}

	fields := []struct {
		raw    string
		target *decimal.Decimal
	}{
		{buyPrice, &record.BuyPrice},
		{sellPrice, &record.SellPrice},
		{grossPct, &record.GrossProfitPct},
		{net, &record.NetProfit},
		{fees, &record.Fees},
		{taxes, &record.Taxes},
	}
	for _, field := range fields {
		value, err := decimal.NewFromString(field.raw)
		if err != nil {
			return OpportunityRecord{}, fmt.Errorf("parse opportunity decimal: %w", err)
		}
		*field.target = value
	}

	return record, nil
}

var _ arb.Recorder = (*Store)(nil)
