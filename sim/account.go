package sim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/playback/ledger"
	"github.com/tradeworks/playback/market"
)

// AccountConfig parameterizes CreateAccount. The balance sheet seeds the
// account's ledger with initial deposits.
type AccountConfig struct {
	ID           string
	OwnerName    string
	PrimaryAsset string
	BalanceSheet map[string]decimal.Decimal
}

// Account is a virtual trading account owned by one engine. It exposes the
// same contract a live broker connection would: order placement, balance
// and equity queries, market data lookups.
//
// The account is bound to the engine's single logical timeline and must be
// driven from one goroutine at a time.
type Account struct {
	id           string
	ownerName    string
	primaryAsset string

	engine  *Engine
	ledger  *ledger.Ledger
	symbols map[string]market.Symbol
}

func (a *Account) ID() string           { return a.id }
func (a *Account) Engine() *Engine      { return a.engine }
func (a *Account) OwnerName() string    { return a.ownerName }
func (a *Account) PrimaryAsset() string { return a.primaryAsset }

// AddSymbol registers an instrument the account can trade.
func (a *Account) AddSymbol(sym market.Symbol) error {
	normalized, err := sym.Normalized()
	if err != nil {
		return fmt.Errorf("add symbol: %w", err)
	}
	a.symbols[normalized.Symbol] = normalized
	return nil
}

func (a *Account) Symbol(name string) (market.Symbol, bool) {
	sym, ok := a.symbols[name]
	return sym, ok
}

func (a *Account) Deposit(asset string, volume decimal.Decimal) error {
	return a.ledger.Deposit(asset, volume)
}

func (a *Account) Withdraw(asset string, volume decimal.Decimal) error {
	return a.ledger.Withdraw(asset, volume)
}

func (a *Account) AssetBalance(asset string) ledger.Balance {
	return a.ledger.Balance(asset)
}

// Balance is the total (free + locked + borrowed) held volume of the
// primary asset.
func (a *Account) Balance() decimal.Decimal {
	return a.ledger.Balance(a.primaryAsset).Total()
}

// Equity is the balance plus the unrealized gross profit of all open
// positions. Profit is assumed already expressed in the primary asset; a
// cross-asset conversion chain is out of scope for this ledger.
func (a *Account) Equity() (decimal.Decimal, error) {
	equity := a.Balance()
	for _, pos := range a.OpenPositions() {
		profit, err := pos.UnrealizedGrossProfit()
		if err != nil {
			return decimal.Zero, err
		}
		equity = equity.Add(profit)
	}
	return equity, nil
}

// UsedMargin is always zero: leverage is not modelled.
func (a *Account) UsedMargin() decimal.Decimal {
	return decimal.Zero
}

func (a *Account) FreeMargin() (decimal.Decimal, error) {
	equity, err := a.Equity()
	if err != nil {
		return decimal.Zero, err
	}
	return equity.Sub(a.UsedMargin()), nil
}

// PlaceOrder submits an order described by directives. Malformed
// directives fail fast with an error; trading failures (unknown symbol,
// insufficient funds, invalid protection) surface as a Rejected order.
func (a *Account) PlaceOrder(ctx context.Context, directives OrderDirectives) (*Order, error) {
	_ = ctx // reserved; placement is synchronous on the engine timeline
	return a.engine.placeOrder(a, directives, false)
}

func (a *Account) CancelOrder(orderID string) error {
	return a.engine.CancelOrder(orderID)
}

// ClosePosition closes the full remaining volume of an open position owned
// by this account.
func (a *Account) ClosePosition(ctx context.Context, positionID string) (*Order, error) {
	pos := a.engine.OpenPositionByID(positionID)
	if pos == nil || pos.account != a {
		return nil, fmt.Errorf("close position: %s not found", positionID)
	}
	return pos.Close(ctx)
}

func (a *Account) OpenPositions() []*Position {
	var positions []*Position
	for _, pos := range a.engine.OpenPositions() {
		if pos.account == a {
			positions = append(positions, pos)
		}
	}
	return positions
}

func (a *Account) PendingOrders() []*Order {
	var orders []*Order
	for _, o := range a.engine.PendingOrders() {
		if o.account == a {
			orders = append(orders, o)
		}
	}
	return orders
}

func (a *Account) Orders() []*Order {
	var orders []*Order
	for _, o := range a.engine.Orders() {
		if o.account == a {
			orders = append(orders, o)
		}
	}
	return orders
}

func (a *Account) Trades() []*Trade {
	var trades []*Trade
	for _, t := range a.engine.Trades() {
		if o, ok := a.engine.orders[t.OrderID]; ok && o.account == a {
			trades = append(trades, t)
		}
	}
	return trades
}

func (a *Account) SymbolBid(symbol string) (decimal.Decimal, error) {
	bid, _, err := a.engine.symbolQuote(symbol)
	return bid, err
}

func (a *Account) SymbolAsk(symbol string) (decimal.Decimal, error) {
	_, ask, err := a.engine.symbolQuote(symbol)
	return ask, err
}

func (a *Account) SymbolPeriods(symbol string, tf market.Timeframe) []market.Period {
	return a.engine.SymbolPeriods(symbol, tf)
}
