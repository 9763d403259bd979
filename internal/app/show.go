package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent trades or observed opportunities.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer writer.Flush()

	if opts.Opportunities {
		records, err := store.ListRecentOpportunities(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stdout, "no opportunities found")
			return nil
		}

		fmt.Fprintln(writer, "Time (UTC)\tPair\tBuy\tSell\tAsk\tBid\tGross%\tNet")
		for _, record := range records {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				record.ObservedAt.UTC().Format(time.RFC3339),
				record.Pair,
				record.BuyVenue,
				record.SellVenue,
				record.BuyPrice.StringFixed(6),
				record.SellPrice.StringFixed(6),
				record.GrossProfitPct.StringFixed(4),
				record.NetProfit.StringFixed(4),
			)
		}
		return nil
	}

	records, err := store.ListRecentTrades(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no trades found")
		return nil
	}

	fmt.Fprintln(writer, "Time (UTC)\tPair\tBuy\tSell\tAmount\tNet\tStatus\tError")
	for _, record := range records {
		errMsg := ""
		if record.Error != nil {
			errMsg = sanitizeInline(*record.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			record.ExecutedAt.UTC().Format(time.RFC3339),
			record.Pair,
			record.BuyVenue,
			record.SellVenue,
			record.Amount.StringFixed(6),
			record.NetProfit.StringFixed(4),
			record.Status,
			errMsg,
		)
	}
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
