// Package risk provides position sizing and trade risk arithmetic.
package risk

import "github.com/shopspring/decimal"

// PlannedLoss is the loss realized if the stop is hit, in the quote
// asset: |entry - stop| * volume * lotUnits.
func PlannedLoss(volume, entry, stop, lotUnits decimal.Decimal) decimal.Decimal {
	return entry.Sub(stop).Abs().Mul(volume).Mul(lotUnits)
}

// RR is the reward-to-risk ratio of an entry with a stop and a take
// profit, zero when the stop sits on the entry.
func RR(entry, stop, takeProfit decimal.Decimal) decimal.Decimal {
	planned := entry.Sub(stop).Abs()
	if planned.IsZero() {
		return decimal.Zero
	}
	return takeProfit.Sub(entry).Abs().Div(planned)
}

// SizeInputs parameterizes Size.
type SizeInputs struct {
	Equity       decimal.Decimal
	RiskPct      decimal.Decimal // fraction, e.g. 0.005 for 0.5%
	EntryPrice   decimal.Decimal
	StopPrice    decimal.Decimal
	LotUnits     decimal.Decimal // 1 when unset
	VolumeDigits int32           // rounding precision for the result
}

// Size computes the volume that puts RiskPct of equity at risk between
// entry and stop. Degenerate inputs (no stop distance, non-positive
// equity or risk) yield zero volume.
func Size(in SizeInputs) decimal.Decimal {
	distance := in.EntryPrice.Sub(in.StopPrice).Abs()
	if distance.IsZero() || !in.Equity.IsPositive() || !in.RiskPct.IsPositive() {
		return decimal.Zero
	}

	lotUnits := in.LotUnits
	if lotUnits.IsZero() {
		lotUnits = decimal.NewFromInt(1)
	}

	riskAmount := in.Equity.Mul(in.RiskPct)
	volume := riskAmount.Div(distance.Mul(lotUnits))
	return volume.RoundDown(in.VolumeDigits)
}
