// Package stats aggregates executed trades into performance metrics.
package stats

import (
	"github.com/shopspring/decimal"

	"github.com/tradeworks/playback/sim"
)

// Summary is the aggregate view of a set of closing trades. Monetary
// fields are expressed in whatever asset the trades realized profit in;
// mixing assets is the caller's mistake.
type Summary struct {
	Trades        int
	WinningTrades int
	LosingTrades  int

	GrossProfit decimal.Decimal
	GrossLoss   decimal.Decimal
	// NetProfit is GrossProfit + GrossLoss + Commission, so transaction
	// costs are already folded in.
	NetProfit decimal.Decimal
	// Commission is the total transaction cost, sign-flipped: charged
	// commissions report as a negative amount.
	Commission decimal.Decimal
	// CommissionPerVolume is Commission over the total volume of all
	// trades, opening ones included. Zero when nothing traded.
	CommissionPerVolume decimal.Decimal

	// TotalPositions counts the distinct positions the trades touched.
	TotalPositions int

	// ProfitFactor is GrossProfit / |GrossLoss| rounded to two decimal
	// places, zero when there are no losses.
	ProfitFactor decimal.Decimal
	// WinRate is WinningTrades / Trades rounded to four decimal places.
	WinRate decimal.Decimal

	AverageWin  decimal.Decimal
	AverageLoss decimal.Decimal
	LargestWin  decimal.Decimal
	LargestLoss decimal.Decimal

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
}

// Compute summarizes the closing trades in the given slice, in execution
// order. Opening trades contribute commission, volume and position
// identity but no profit outcome. A closing trade with non-negative gross
// profit counts as a win.
func Compute(trades []*sim.Trade) Summary {
	var s Summary
	var winStreak, lossStreak int
	var totalVolume decimal.Decimal
	positions := make(map[string]struct{})

	for _, t := range trades {
		s.Commission = s.Commission.Add(t.Commission)
		totalVolume = totalVolume.Add(t.Volume)
		if t.PositionID != "" {
			positions[t.PositionID] = struct{}{}
		}

		if t.Purpose != sim.TradePurposeClose {
			continue
		}

		s.Trades++
		profit := t.GrossProfit
		s.NetProfit = s.NetProfit.Add(profit)

		if profit.IsNegative() {
			s.LosingTrades++
			s.GrossLoss = s.GrossLoss.Add(profit)
			if s.LosingTrades == 1 || profit.LessThan(s.LargestLoss) {
				s.LargestLoss = profit
			}
			lossStreak++
			winStreak = 0
			if lossStreak > s.MaxConsecutiveLosses {
				s.MaxConsecutiveLosses = lossStreak
			}
			continue
		}

		s.WinningTrades++
		s.GrossProfit = s.GrossProfit.Add(profit)
		if s.WinningTrades == 1 || profit.GreaterThan(s.LargestWin) {
			s.LargestWin = profit
		}
		winStreak++
		lossStreak = 0
		if winStreak > s.MaxConsecutiveWins {
			s.MaxConsecutiveWins = winStreak
		}
	}

	if s.WinningTrades > 0 {
		s.AverageWin = s.GrossProfit.Div(decimal.NewFromInt(int64(s.WinningTrades)))
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = s.GrossLoss.Div(decimal.NewFromInt(int64(s.LosingTrades)))
	}
	if !s.GrossLoss.IsZero() {
		s.ProfitFactor = s.GrossProfit.Div(s.GrossLoss.Abs()).Round(2)
	}
	if s.Trades > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.WinningTrades)).
			Div(decimal.NewFromInt(int64(s.Trades))).Round(4)
	}

	s.Commission = s.Commission.Neg()
	if !totalVolume.IsZero() {
		s.CommissionPerVolume = s.Commission.Div(totalVolume)
	}
	s.NetProfit = s.NetProfit.Add(s.Commission)
	s.TotalPositions = len(positions)

	return s
}
