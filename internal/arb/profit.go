package arb

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNonPositivePrice is returned when a gross profit is requested against a
// zero or negative buy price.
var ErrNonPositivePrice = errors.New("arb: buy price must be positive")

var (
	decTwo     = decimal.NewFromInt(2)
	decHundred = decimal.NewFromInt(100)
)

// GrossProfitPct returns (sellPrice - buyPrice) / buyPrice * 100.
func GrossProfitPct(buyPrice, sellPrice decimal.Decimal) (decimal.Decimal, error) {
	if !buyPrice.IsPositive() {
		return decimal.Decimal{}, ErrNonPositivePrice
	}
	return sellPrice.Sub(buyPrice).Div(buyPrice).Mul(decHundred), nil
}

// ProfitResult is the outcome of netting fees and taxes out of a gross
// profit. It is a computed value, never stored state.
type ProfitResult struct {
	GrossProfit decimal.Decimal
	Fees        decimal.Decimal
	Taxes       decimal.Decimal
	NetProfit   decimal.Decimal
}

// ProfitModel nets fees and taxes out of gross profits and keeps running
// fee/tax tallies for reporting. The tallies never feed back into trading
// decisions. A model instance is owned by the control loop and must not be
// shared across goroutines.
type ProfitModel struct {
	feeRate decimal.Decimal
	taxRate decimal.Decimal

	feesTally decimal.Decimal
	taxTally  decimal.Decimal
}

// NewProfitModel builds a model with the configured per-leg fee rate and tax
// rate. Rates are configuration constants, not live fee schedules.
func NewProfitModel(feeRate, taxRate decimal.Decimal) *ProfitModel {
	return &ProfitModel{feeRate: feeRate, taxRate: taxRate}
}

// NetProfit deducts fees (charged on both legs) and taxes on the gross
// profit, and accumulates both into the running tallies.
func (m *ProfitModel) NetProfit(grossProfit, tradeValue decimal.Decimal) ProfitResult {
	result := m.Preview(grossProfit, tradeValue)
	m.feesTally = m.feesTally.Add(result.Fees)
	m.taxTally = m.taxTally.Add(result.Taxes)
	return result
}

// Preview computes the same result as NetProfit without touching the
// tallies. Used for dry-run observation events.
func (m *ProfitModel) Preview(grossProfit, tradeValue decimal.Decimal) ProfitResult {
	fees := tradeValue.Mul(m.feeRate).Mul(decTwo)
	taxes := grossProfit.Mul(m.taxRate)
	return ProfitResult{
		GrossProfit: grossProfit,
		Fees:        fees,
		Taxes:       taxes,
		NetProfit:   grossProfit.Sub(fees).Sub(taxes),
	}
}

// FeesTally returns total fees accumulated since process start.
func (m *ProfitModel) FeesTally() decimal.Decimal {
	return m.feesTally
}

// TaxTally returns total taxes accumulated since process start.
func (m *ProfitModel) TaxTally() decimal.Decimal {
	return m.taxTally
}
