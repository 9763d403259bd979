package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"cross-arb/internal/storage"
)

// Export renders trade history as CSV and/or a PNG profit chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-30 * 24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	trades, err := store.ListTradesBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		a.Logger.Info().Msg("no trades found for export window")
		return nil
	}

	downsampled := downsampleTrades(trades, opts.MaxPoints)
	a.Logger.Info().Int("total", len(trades)).Int("exported", len(downsampled)).Msg("exporting trades")

	if opts.CSVPath != "" {
		if err := writeTradesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeTradesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleTrades(trades []storage.TradeRecord, max int) []storage.TradeRecord {
	if max <= 0 || len(trades) <= max {
		return trades
	}

	result := make([]storage.TradeRecord, 0, max)
	step := float64(len(trades)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(trades) {
			idx = len(trades) - 1
		}
		result = append(result, trades[idx])
	}
	return result
}

func writeTradesCSV(path string, trades []storage.TradeRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"executed_at", "pair", "buy_venue", "sell_venue",
		"buy_price", "sell_price", "amount",
		"gross_profit_pct", "gross_profit", "fees", "taxes", "net_profit",
		"status", "error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, trade := range trades {
		errMsg := ""
		if trade.Error != nil {
			errMsg = *trade.Error
		}
		record := []string{
			trade.ExecutedAt.Format(time.RFC3339),
			trade.Pair,
			trade.BuyVenue,
			trade.SellVenue,
			trade.BuyPrice.String(),
			trade.SellPrice.String(),
			trade.Amount.String(),
			trade.GrossProfitPct.String(),
			trade.GrossProfit.String(),
			trade.Fees.String(),
			trade.Taxes.String(),
			trade.NetProfit.String(),
			trade.Status,
			errMsg,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeTradesPNG(path string, trades []storage.TradeRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(trades))
	cumulative := make([]float64, len(trades))
	grossPct := make([]float64, len(trades))

	running := 0.0
	for i, trade := range trades {
		x[i] = trade.ExecutedAt
		if trade.Status == storage.TradeStatusExecuted {
			running += trade.NetProfit.InexactFloat64()
		}
		cumulative[i] = running
		grossPct[i] = trade.GrossProfitPct.InexactFloat64()
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Cumulative net profit",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Gross profit (%)",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Cumulative net profit",
				XValues: x,
				YValues: cumulative,
			},
			chart.TimeSeries{
				Name:    "Gross %",
				XValues: x,
				YValues: grossPct,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
