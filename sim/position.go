package sim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type PositionDirection string

const (
	PositionDirectionLong  PositionDirection = "long"
	PositionDirectionShort PositionDirection = "short"
)

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Protection holds a position's attached stop-loss and take-profit levels.
// A nil field means no level is set.
type Protection struct {
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

type ProtectionChangeStatus string

const (
	ProtectionChangeSucceeded ProtectionChangeStatus = "succeeded"
	ProtectionChangeRejected  ProtectionChangeStatus = "rejected"
)

// ProtectionChange reports the outcome of a protection update request.
// Like order failures, an invalid level is data, not an error.
type ProtectionChange struct {
	Status    ProtectionChangeStatus
	Requested Protection
}

// Position is net open exposure in a symbol, owned by one account. It is
// closed permanently once its volume returns to zero.
type Position struct {
	ID        string
	Symbol    string
	Direction PositionDirection
	Status    PositionStatus

	Volume decimal.Decimal
	// EntryPrice is the volume-weighted average of opening trades, capped
	// at the current volume. Nil while the volume is zero.
	EntryPrice *decimal.Decimal
	Protection Protection

	RealizedCommission decimal.Decimal
	RealizedProfit     decimal.Decimal

	openingTrades []*Trade
	closingTrades []*Trade

	account *Account
}

func (p *Position) Account() *Account { return p.account }

func (p *Position) OpeningTrades() []*Trade {
	return append([]*Trade(nil), p.openingTrades...)
}

func (p *Position) ClosingTrades() []*Trade {
	return append([]*Trade(nil), p.closingTrades...)
}

func (p *Position) Trades() []*Trade {
	trades := make([]*Trade, 0, len(p.openingTrades)+len(p.closingTrades))
	trades = append(trades, p.openingTrades...)
	trades = append(trades, p.closingTrades...)
	return trades
}

// UsedMargin is always zero: leverage is not modelled.
func (p *Position) UsedMargin() decimal.Decimal {
	return decimal.Zero
}

// UnrealizedGrossProfit is the profit the position would realize if closed
// at the current quote, expressed in the account's primary asset.
func (p *Position) UnrealizedGrossProfit() (decimal.Decimal, error) {
	if p.Status == PositionStatusClosed {
		return decimal.Zero, nil
	}

	sym, ok := p.account.Symbol(p.Symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("position %s: unknown symbol %s", p.ID, p.Symbol)
	}

	bid, ask, err := p.account.engine.symbolQuote(p.Symbol)
	if err != nil {
		return decimal.Zero, err
	}

	var perUnit decimal.Decimal
	if p.Direction == PositionDirectionLong {
		perUnit = bid.Sub(*p.EntryPrice)
	} else {
		perUnit = p.EntryPrice.Sub(ask)
	}

	return perUnit.Mul(p.Volume).Mul(sym.LotUnits), nil
}

// AddVolume places a market order increasing the position's exposure.
func (p *Position) AddVolume(ctx context.Context, volume decimal.Decimal) (*Order, error) {
	return p.account.PlaceOrder(ctx, OrderDirectives{
		PositionID: p.ID,
		Direction:  p.openDirection(),
		Volume:     volume,
	})
}

// SubtractVolume places a market order reducing the position's exposure.
func (p *Position) SubtractVolume(ctx context.Context, volume decimal.Decimal) (*Order, error) {
	return p.account.PlaceOrder(ctx, OrderDirectives{
		PositionID: p.ID,
		Direction:  p.openDirection().opposite(),
		Volume:     volume,
	})
}

// Close closes the full remaining volume at market.
func (p *Position) Close(ctx context.Context) (*Order, error) {
	return p.SubtractVolume(ctx, p.Volume)
}

// ChangeProtection validates the requested levels against the current
// quote using the same rules as order placement, then applies them.
// Only non-nil fields are touched.
func (p *Position) ChangeProtection(requested Protection) (ProtectionChange, error) {
	bid, ask, err := p.account.engine.symbolQuote(p.Symbol)
	if err != nil {
		return ProtectionChange{}, err
	}

	rejected := false
	if p.Direction == PositionDirectionLong {
		if requested.StopLoss != nil && requested.StopLoss.GreaterThanOrEqual(bid) {
			rejected = true
		}
		if requested.TakeProfit != nil && requested.TakeProfit.LessThanOrEqual(bid) {
			rejected = true
		}
	} else {
		if requested.StopLoss != nil && requested.StopLoss.LessThanOrEqual(ask) {
			rejected = true
		}
		if requested.TakeProfit != nil && requested.TakeProfit.GreaterThanOrEqual(ask) {
			rejected = true
		}
	}

	if rejected {
		return ProtectionChange{Status: ProtectionChangeRejected, Requested: requested}, nil
	}

	if requested.StopLoss != nil {
		p.Protection.StopLoss = requested.StopLoss
	}
	if requested.TakeProfit != nil {
		p.Protection.TakeProfit = requested.TakeProfit
	}

	return ProtectionChange{Status: ProtectionChangeSucceeded, Requested: requested}, nil
}

func (p *Position) openDirection() OrderDirection {
	if p.Direction == PositionDirectionLong {
		return OrderDirectionBuy
	}
	return OrderDirectionSell
}

// applyTrade settles an executed trade against the position. grossProfit
// is the realized portion sampled before this mutation; it only matters
// for closing trades.
func (p *Position) applyTrade(t *Trade, grossProfit decimal.Decimal) {
	p.RealizedCommission = p.RealizedCommission.Add(t.Commission)

	if t.Purpose == TradePurposeOpen {
		p.openingTrades = append(p.openingTrades, t)
		p.Volume = p.Volume.Add(t.Volume)
	} else {
		p.RealizedProfit = p.RealizedProfit.Add(grossProfit)
		p.closingTrades = append(p.closingTrades, t)
		p.Volume = p.Volume.Sub(t.Volume)
	}

	if p.Volume.IsZero() {
		p.Status = PositionStatusClosed
		p.EntryPrice = nil
		return
	}

	p.updateEntryPrice()
}

// updateEntryPrice recomputes the entry price as the volume-weighted
// average of opening trades, oldest first, counting volumes only up to the
// position's current volume (the last contributing trade is capped at the
// remainder). The counted volumes sum to the current volume exactly.
func (p *Position) updateEntryPrice() {
	remaining := p.Volume
	weighted := decimal.Zero

	for _, t := range p.openingTrades {
		if remaining.IsZero() {
			break
		}
		counted := t.Volume
		if counted.GreaterThan(remaining) {
			counted = remaining
		}
		weighted = weighted.Add(counted.Mul(t.ExecutionPrice))
		remaining = remaining.Sub(counted)
	}

	entry := weighted.Div(p.Volume)
	p.EntryPrice = &entry
}
