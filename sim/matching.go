package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradeworks/playback/internal/id"
	"github.com/tradeworks/playback/market"
)

// placeOrder validates directives, registers the order and either
// executes it (market) or parks it as pending (limit/stop). Placement is
// atomic within the current simulation step.
func (e *Engine) placeOrder(acct *Account, d OrderDirectives, stopOut bool) (*Order, error) {
	if err := validateDirectives(d); err != nil {
		return nil, err
	}

	symbol := d.Symbol
	purpose := OrderPurposeOpen

	if d.PositionID != "" {
		pos := e.OpenPositionByID(d.PositionID)
		if pos == nil {
			return nil, fmt.Errorf("place order: position %s not found", d.PositionID)
		}
		symbol = pos.Symbol
		if d.Direction != pos.openDirection() {
			purpose = OrderPurposeClose
		}
	}

	tif := d.TimeInForce
	if tif == "" {
		tif = GoodTillCancel
	}

	order := &Order{
		ID:              id.New(),
		Symbol:          symbol,
		Direction:       d.Direction,
		Purpose:         purpose,
		RequestedVolume: d.Volume,
		LimitPrice:      d.Limit,
		StopPrice:       d.Stop,
		PositionID:      d.PositionID,
		Protection:      d.Protection,
		TimeInForce:     tif,
		Status:          OrderStatusRequested,
		CreationTime:    e.clock,
		LastUpdateTime:  e.clock,
		account:         acct,
		stopOut:         stopOut,
	}

	e.orders[order.ID] = order
	e.orderSeq = append(e.orderSeq, order)
	e.emitter.emit(Event{Type: EventOrder, Time: e.clock, Order: order})

	e.acceptOrder(order)

	if order.ExecutionType() == OrderExecutionMarket {
		if err := e.tryExecute(order, nil); err != nil {
			return order, err
		}
		return order, nil
	}

	e.moveOrderToPending(order)

	// The pending order may already be executable at the current quote.
	if last, ok := e.lastTicks[symbol]; ok {
		if err := e.evaluatePendingOrder(order, last); err != nil {
			return order, err
		}
	}

	return order, nil
}

func validateDirectives(d OrderDirectives) error {
	if d.Symbol == "" && d.PositionID == "" {
		return fmt.Errorf("order directives: symbol or position id is required")
	}
	if d.Direction != OrderDirectionBuy && d.Direction != OrderDirectionSell {
		return fmt.Errorf("order directives: invalid direction %q", d.Direction)
	}
	if !d.Volume.IsPositive() {
		return fmt.Errorf("order directives: volume must be positive")
	}
	if d.Limit != nil && d.Stop != nil {
		return fmt.Errorf("order directives: limit and stop are mutually exclusive")
	}
	return nil
}

// tryExecute turns an order into a settled trade or a rejection against
// the current quote. priceOverride carries a limit order's configured
// price; market and stop orders execute at the quote itself. Execution is
// logically atomic: it runs to completion within one step of the single
// timeline.
func (e *Engine) tryExecute(o *Order, priceOverride *decimal.Decimal) error {
	acct := o.account

	sym, ok := acct.Symbol(o.Symbol)
	if !ok {
		e.rejectOrder(o, RejectionSymbolNotFound)
		return nil
	}

	var pos *Position
	if o.PositionID != "" {
		pos = e.OpenPositionByID(o.PositionID)
		if pos == nil {
			e.rejectOrder(o, RejectionPositionNotFound)
			return nil
		}
	}

	bid, ask, err := e.symbolQuote(o.Symbol)
	if err != nil {
		return fmt.Errorf("execute order %s: %w", o.ID, err)
	}

	// The spread is the modelled transaction cost: buys lift the ask,
	// sells hit the bid.
	price := ask
	if o.Direction == OrderDirectionSell {
		price = bid
	}
	if priceOverride != nil {
		price = *priceOverride
	}

	// Requested protection is validated against the quote before the
	// fill, so a fill never creates a position already beyond its levels.
	if o.Protection != nil {
		if o.Direction == OrderDirectionBuy {
			if o.Protection.StopLoss != nil && o.Protection.StopLoss.GreaterThanOrEqual(bid) {
				e.rejectOrder(o, RejectionInvalidStopLoss)
				return nil
			}
			if o.Protection.TakeProfit != nil && o.Protection.TakeProfit.LessThanOrEqual(bid) {
				e.rejectOrder(o, RejectionInvalidTakeProfit)
				return nil
			}
		} else {
			if o.Protection.StopLoss != nil && o.Protection.StopLoss.LessThanOrEqual(ask) {
				e.rejectOrder(o, RejectionInvalidStopLoss)
				return nil
			}
			if o.Protection.TakeProfit != nil && o.Protection.TakeProfit.GreaterThanOrEqual(ask) {
				e.rejectOrder(o, RejectionInvalidTakeProfit)
				return nil
			}
		}
	}

	volume := o.RequestedVolume

	// Settlement legs: a buy swaps quote asset for base asset, a sell the
	// reverse. No partial fills.
	withdrawAsset, depositAsset := sym.QuoteAsset, sym.BaseAsset
	withdrawVolume, depositVolume := volume.Mul(price), volume
	if o.Direction == OrderDirectionSell {
		withdrawAsset, depositAsset = sym.BaseAsset, sym.QuoteAsset
		withdrawVolume, depositVolume = volume, volume.Mul(price)
	}

	if o.stopOut {
		// Forced liquidation must always settle; the ledger may go
		// negative here.
		acct.ledger.Debit(withdrawAsset, withdrawVolume)
	} else {
		if !acct.ledger.HasFunds(withdrawAsset, withdrawVolume) {
			e.rejectOrder(o, RejectionNotEnoughMoney)
			return nil
		}
		if err := acct.ledger.Withdraw(withdrawAsset, withdrawVolume); err != nil {
			return fmt.Errorf("execute order %s: %w", o.ID, err)
		}
	}
	if err := acct.ledger.Deposit(depositAsset, depositVolume); err != nil {
		return fmt.Errorf("execute order %s: %w", o.ID, err)
	}

	commissionAsset, commission := acct.primaryAsset, decimal.Zero
	if e.commission != nil {
		commissionAsset, commission = e.commission(o, TradeSnapshot{
			Volume:         volume,
			ExecutionPrice: price,
			ExecutionTime:  e.clock,
		})
	}
	// Commission is charged unconditionally and may push the balance
	// negative.
	acct.ledger.Debit(commissionAsset, commission)

	// Swap is an extension point, currently always zero.
	swap := decimal.Zero
	if err := acct.ledger.Deposit(acct.primaryAsset, swap); err != nil {
		return fmt.Errorf("execute order %s: %w", o.ID, err)
	}

	if pos == nil {
		direction := PositionDirectionLong
		if o.Direction == OrderDirectionSell {
			direction = PositionDirectionShort
		}
		protection := Protection{}
		if o.Protection != nil {
			protection = *o.Protection
		}
		pos = &Position{
			ID:         id.New(),
			Symbol:     o.Symbol,
			Direction:  direction,
			Status:     PositionStatusOpen,
			Protection: protection,
			account:    acct,
		}
		e.positions[pos.ID] = pos
		e.positionSeq = append(e.positionSeq, pos)
	}
	o.PositionID = pos.ID

	// The realized contribution of a closing trade is sampled before the
	// position is mutated.
	grossProfit := decimal.Zero
	if o.Purpose == OrderPurposeClose {
		unrealized, err := pos.UnrealizedGrossProfit()
		if err != nil {
			return fmt.Errorf("execute order %s: %w", o.ID, err)
		}
		grossProfit = volume.Div(pos.Volume).Mul(unrealized)
	}

	purpose := TradePurposeOpen
	if o.Purpose == OrderPurposeClose {
		purpose = TradePurposeClose
	}

	trade := &Trade{
		ID:              id.New(),
		OrderID:         o.ID,
		PositionID:      pos.ID,
		Symbol:          o.Symbol,
		Volume:          volume,
		Direction:       o.Direction,
		Purpose:         purpose,
		ExecutionPrice:  price,
		ExecutionTime:   e.clock,
		Commission:      commission,
		CommissionAsset: commissionAsset,
		GrossProfit:     grossProfit,
		Swap:            swap,
	}

	e.trades[trade.ID] = trade
	e.tradeSeq = append(e.tradeSeq, trade)

	pos.applyTrade(trade, grossProfit)

	o.Trades = append(o.Trades, trade)
	o.Status = OrderStatusExecuted
	o.LastUpdateTime = e.clock

	e.emitter.emit(Event{Type: EventTrade, Time: e.clock, Trade: trade})
	e.emitter.emit(Event{Type: EventOrderExecute, Time: e.clock, Order: o, Trade: trade})

	return nil
}

// updatePendingOrders re-evaluates every pending order against a new
// quote. Only orders in the tick's symbol are affected.
func (e *Engine) updatePendingOrders(t market.Tick) error {
	for _, o := range e.PendingOrders() {
		if err := e.evaluatePendingOrder(o, t); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) evaluatePendingOrder(o *Order, t market.Tick) error {
	if o.Status != OrderStatusPending || o.Symbol != t.Symbol {
		return nil
	}

	if o.LimitPrice != nil {
		fired := o.Direction == OrderDirectionSell && t.Bid.GreaterThanOrEqual(*o.LimitPrice) ||
			o.Direction == OrderDirectionBuy && t.Ask.LessThanOrEqual(*o.LimitPrice)
		if fired {
			e.log.Info("pending order hit limit", zap.String("order", o.ID))
			// Limit orders fill at their configured price, not the
			// crossing quote.
			return e.tryExecute(o, o.LimitPrice)
		}
	}

	if o.StopPrice != nil {
		fired := o.Direction == OrderDirectionSell && t.Bid.LessThanOrEqual(*o.StopPrice) ||
			o.Direction == OrderDirectionBuy && t.Ask.GreaterThanOrEqual(*o.StopPrice)
		if fired {
			e.log.Info("pending order hit stop", zap.String("order", o.ID))
			// Stop orders fill at the crossing quote itself.
			return e.tryExecute(o, nil)
		}
	}

	return nil
}

// updateOpenPositions evaluates protection triggers and the
// negative-balance condition for every open position on a new quote.
func (e *Engine) updateOpenPositions(t market.Tick) error {
	for _, pos := range e.OpenPositions() {
		if err := e.updateOpenPosition(pos, t); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) updateOpenPosition(pos *Position, t market.Tick) error {
	if pos.Symbol == t.Symbol {
		if sl := pos.Protection.StopLoss; sl != nil && pos.Status == PositionStatusOpen {
			hit := pos.Direction == PositionDirectionShort && t.Ask.GreaterThanOrEqual(*sl) ||
				pos.Direction == PositionDirectionLong && t.Bid.LessThanOrEqual(*sl)
			if hit {
				e.log.Info("position hit stop loss", zap.String("position", pos.ID))
				if err := e.forceClose(pos); err != nil {
					return err
				}
			}
		}

		if tp := pos.Protection.TakeProfit; tp != nil && pos.Status == PositionStatusOpen {
			hit := pos.Direction == PositionDirectionShort && t.Ask.LessThanOrEqual(*tp) ||
				pos.Direction == PositionDirectionLong && t.Bid.GreaterThanOrEqual(*tp)
			if hit {
				e.log.Info("position hit take profit", zap.String("position", pos.ID))
				if err := e.forceClose(pos); err != nil {
					return err
				}
			}
		}
	}

	// Negative-balance protection: a quote on any symbol can push the
	// account's equity under water.
	if pos.Status == PositionStatusOpen {
		equity, err := pos.account.Equity()
		if err != nil {
			return err
		}
		if equity.LessThanOrEqual(decimal.Zero) {
			e.log.Warn("negative balance protection triggered",
				zap.String("position", pos.ID),
				zap.String("account", pos.account.id),
			)
			if err := e.forceClose(pos); err != nil {
				return err
			}
		}
	}

	return nil
}

// forceClose liquidates a position's full remaining volume. Forced closes
// are the model's equivalent of liquidation: they cannot be rejected.
func (e *Engine) forceClose(pos *Position) error {
	_, err := e.placeOrder(pos.account, OrderDirectives{
		PositionID: pos.ID,
		Direction:  pos.openDirection().opposite(),
		Volume:     pos.Volume,
	}, true)
	return err
}

// CancelOrder cancels a pending order. Cancelling a non-pending order is
// a caller error.
func (e *Engine) CancelOrder(orderID string) error {
	o, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("cancel order: %s not found", orderID)
	}
	if o.Status != OrderStatusPending {
		return fmt.Errorf("cancel order: %s is %s, only pending orders can be cancelled", orderID, o.Status)
	}

	o.Status = OrderStatusCancelled
	o.LastUpdateTime = e.clock
	e.log.Warn("order cancelled", zap.String("order", orderID))
	e.emitter.emit(Event{Type: EventOrderCancel, Time: e.clock, Order: o})

	return nil
}

func (e *Engine) acceptOrder(o *Order) {
	o.Status = OrderStatusAccepted
	o.LastUpdateTime = e.clock
	e.emitter.emit(Event{Type: EventOrderAccept, Time: e.clock, Order: o})
}

func (e *Engine) moveOrderToPending(o *Order) {
	o.Status = OrderStatusPending
	o.LastUpdateTime = e.clock
	e.emitter.emit(Event{Type: EventOrderPending, Time: e.clock, Order: o})
}

// rejectOrder records a trading failure as data: status, reason, event.
// No ledger mutation has happened when an order is rejected.
func (e *Engine) rejectOrder(o *Order, rejection OrderRejection) {
	o.Status = OrderStatusRejected
	o.Rejection = rejection
	o.LastUpdateTime = e.clock
	e.log.Warn("order rejected",
		zap.String("order", o.ID),
		zap.String("rejection", string(rejection)),
	)
	e.emitter.emit(Event{Type: EventOrderReject, Time: e.clock, Order: o, Rejection: rejection})
}
