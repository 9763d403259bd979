package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cross-arb/internal/app"
)

var (
	simulatePair   string
	simulateVenueA string
	simulateVenueB string
	simulateBidA   float64
	simulateAskA   float64
	simulateBidB   float64
	simulateAskB   float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one dry-run cycle over hand-fed quotes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateBidA <= 0 || simulateAskA <= 0 || simulateBidB <= 0 || simulateAskB <= 0 {
			return errors.New("all bid/ask values must be greater than 0")
		}

		opts := app.SimulateOptions{
			Pair:   simulatePair,
			VenueA: simulateVenueA,
			VenueB: simulateVenueB,
			BidA:   simulateBidA,
			AskA:   simulateAskA,
			BidB:   simulateBidB,
			AskB:   simulateAskB,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePair, "pair", "BTC/USD", "Pair to simulate")
	simulateCmd.Flags().StringVar(&simulateVenueA, "venue-a", "kraken", "First venue id")
	simulateCmd.Flags().StringVar(&simulateVenueB, "venue-b", "binance", "Second venue id")
	simulateCmd.Flags().Float64Var(&simulateBidA, "bid-a", 0, "Bid on the first venue")
	simulateCmd.Flags().Float64Var(&simulateAskA, "ask-a", 0, "Ask on the first venue")
	simulateCmd.Flags().Float64Var(&simulateBidB, "bid-b", 0, "Bid on the second venue")
	simulateCmd.Flags().Float64Var(&simulateAskB, "ask-b", 0, "Ask on the second venue")
}
