package strategies

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/playback/indicators"
	"github.com/tradeworks/playback/market"
	"github.com/tradeworks/playback/risk"
	"github.com/tradeworks/playback/sim"
)

// EMACross trades a single symbol on a fast/slow EMA crossover over the
// mid price:
//   - enters on a cross,
//   - reverses on the opposite cross (close then open),
//   - optionally attaches stop-loss/take-profit at a fixed distance from
//     the entry quote.
type EMACross struct {
	EMACrossConfig

	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA

	lastDiff     decimal.Decimal
	haveLastDiff bool

	open *sim.Position
}

type EMACrossConfig struct {
	Symbol     string
	FastPeriod int // 10
	SlowPeriod int // 30
	Volume     decimal.Decimal

	// RiskPct, when positive and StopDistance is set, sizes each entry so
	// that hitting the stop loses RiskPct of current equity. Volume is the
	// fallback when sizing is not possible.
	RiskPct decimal.Decimal

	// Zero distance means no protection on that side.
	StopDistance decimal.Decimal
	TakeDistance decimal.Decimal
}

func NewEMACross(cfg EMACrossConfig) *EMACross {
	return &EMACross{
		EMACrossConfig: cfg,
		fast:           indicators.NewEMA(cfg.FastPeriod),
		slow:           indicators.NewEMA(cfg.SlowPeriod),
	}
}

// syncOpenState drops the tracked position if the engine already closed
// it (stop-loss, take-profit, liquidation).
func (s *EMACross) syncOpenState() {
	if s.open != nil && s.open.Status == sim.PositionStatusClosed {
		s.open = nil
	}
}

func (s *EMACross) OnTick(ctx context.Context, acct *sim.Account, tick market.Tick) error {
	if tick.Symbol != s.Symbol {
		return nil
	}

	s.syncOpenState()

	s.fast.Update(tick.Mid())
	s.slow.Update(tick.Mid())
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value().Sub(s.slow.Value())

	// Need a previous diff to detect a cross.
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}

	crossedUp := s.lastDiff.LessThanOrEqual(decimal.Zero) && diff.GreaterThan(decimal.Zero)
	crossedDown := s.lastDiff.GreaterThanOrEqual(decimal.Zero) && diff.LessThan(decimal.Zero)
	s.lastDiff = diff

	switch {
	case crossedUp:
		return s.reverse(ctx, acct, tick, sim.OrderDirectionBuy)
	case crossedDown:
		return s.reverse(ctx, acct, tick, sim.OrderDirectionSell)
	default:
		return nil
	}
}

func (s *EMACross) reverse(ctx context.Context, acct *sim.Account, tick market.Tick, direction sim.OrderDirection) error {
	if s.open != nil {
		if _, err := s.open.Close(ctx); err != nil {
			return fmt.Errorf("close %s position: %w", s.open.Direction, err)
		}
		s.open = nil
	}

	order, err := acct.PlaceOrder(ctx, sim.OrderDirectives{
		Symbol:     s.Symbol,
		Direction:  direction,
		Volume:     s.entryVolume(acct, tick, direction),
		Protection: s.protection(tick, direction),
	})
	if err != nil {
		return err
	}
	if order.Status != sim.OrderStatusExecuted {
		return fmt.Errorf("entry order %s: %s %s", order.ID, order.Status, order.Rejection)
	}

	s.open = acct.Engine().OpenPositionByID(order.PositionID)
	return nil
}

// entryVolume sizes the entry from RiskPct of equity and the stop
// distance, falling back to the fixed Volume when sizing is disabled or
// the inputs are unusable.
func (s *EMACross) entryVolume(acct *sim.Account, tick market.Tick, direction sim.OrderDirection) decimal.Decimal {
	if !s.RiskPct.IsPositive() || s.StopDistance.IsZero() {
		return s.Volume
	}

	equity, err := acct.Equity()
	if err != nil {
		return s.Volume
	}
	sym, ok := acct.Symbol(s.Symbol)
	if !ok {
		return s.Volume
	}

	entry := tick.Ask
	if direction == sim.OrderDirectionSell {
		entry = tick.Bid
	}
	sized := risk.Size(risk.SizeInputs{
		Equity:       equity,
		RiskPct:      s.RiskPct,
		EntryPrice:   entry,
		StopPrice:    entry.Sub(s.StopDistance),
		LotUnits:     sym.LotUnits,
		VolumeDigits: 2,
	})
	if !sized.IsPositive() {
		return s.Volume
	}
	return sized
}

func (s *EMACross) protection(tick market.Tick, direction sim.OrderDirection) *sim.Protection {
	if s.StopDistance.IsZero() && s.TakeDistance.IsZero() {
		return nil
	}

	// Levels are measured from the side the close-out would price at.
	ref := tick.Bid
	away := decimal.NewFromInt(1)
	if direction == sim.OrderDirectionSell {
		ref = tick.Ask
		away = decimal.NewFromInt(-1)
	}

	p := &sim.Protection{}
	if !s.StopDistance.IsZero() {
		sl := ref.Sub(s.StopDistance.Mul(away))
		p.StopLoss = &sl
	}
	if !s.TakeDistance.IsZero() {
		tp := ref.Add(s.TakeDistance.Mul(away))
		p.TakeProfit = &tp
	}
	return p
}
