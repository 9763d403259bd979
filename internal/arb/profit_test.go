package arb

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGrossProfitPct(t *testing.T) {
	pct, err := GrossProfitPct(decimal.NewFromInt(100), decimal.NewFromInt(105))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pct.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5, got %s", pct)
	}

	pct, err = GrossProfitPct(decimal.NewFromInt(100), decimal.NewFromInt(95))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pct.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("expected -5, got %s", pct)
	}
}

func TestGrossProfitPctRejectsNonPositiveBuy(t *testing.T) {
	if _, err := GrossProfitPct(decimal.Zero, decimal.NewFromInt(100)); err != ErrNonPositivePrice {
		t.Fatalf("expected ErrNonPositivePrice, got %v", err)
	}
	if _, err := GrossProfitPct(decimal.NewFromInt(-1), decimal.NewFromInt(100)); err != ErrNonPositivePrice {
		t.Fatalf("expected ErrNonPositivePrice, got %v", err)
	}
}

func TestNetProfitDeductsFeesAndTaxes(t *testing.T) {
	model := NewProfitModel(decimal.NewFromFloat(0.002867), decimal.NewFromFloat(0.275))

	result := model.NetProfit(decimal.NewFromInt(50), decimal.NewFromInt(1000))

	if !result.Fees.Equal(decimal.NewFromFloat(5.734)) {
		t.Fatalf("expected fees 5.734, got %s", result.Fees)
	}
	if !result.Taxes.Equal(decimal.NewFromFloat(13.75)) {
		t.Fatalf("expected taxes 13.75, got %s", result.Taxes)
	}
	if !result.NetProfit.Equal(decimal.NewFromFloat(30.516)) {
		t.Fatalf("expected net profit 30.516, got %s", result.NetProfit)
	}
	if !result.GrossProfit.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected gross profit 50, got %s", result.GrossProfit)
	}
}

func TestNetProfitAccumulatesTallies(t *testing.T) {
	model := NewProfitModel(decimal.NewFromFloat(0.002867), decimal.NewFromFloat(0.275))

	model.NetProfit(decimal.NewFromInt(50), decimal.NewFromInt(1000))
	model.NetProfit(decimal.NewFromInt(50), decimal.NewFromInt(1000))

	if !model.FeesTally().Equal(decimal.NewFromFloat(11.468)) {
		t.Fatalf("expected fees tally 11.468, got %s", model.FeesTally())
	}
	if !model.TaxTally().Equal(decimal.NewFromFloat(27.5)) {
		t.Fatalf("expected tax tally 27.5, got %s", model.TaxTally())
	}
}

func TestPreviewLeavesTalliesUntouched(t *testing.T) {
	model := NewProfitModel(decimal.NewFromFloat(0.002867), decimal.NewFromFloat(0.275))

	preview := model.Preview(decimal.NewFromInt(50), decimal.NewFromInt(1000))
	settled := model.NetProfit(decimal.NewFromInt(50), decimal.NewFromInt(1000))

	if !preview.NetProfit.Equal(settled.NetProfit) {
		t.Fatalf("preview and settlement disagree: %s vs %s", preview.NetProfit, settled.NetProfit)
	}
	if !model.FeesTally().Equal(settled.Fees) {
		t.Fatalf("preview must not accumulate fees: tally %s", model.FeesTally())
	}
	if !model.TaxTally().Equal(settled.Taxes) {
		t.Fatalf("preview must not accumulate taxes: tally %s", model.TaxTally())
	}
}
