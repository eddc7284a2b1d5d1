package sim

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketBuySettlesBothLegs(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusExecuted, order.Status)

	// Buys lift the ask: 100 * 1.1002 leaves the quote asset, 100 base
	// units arrive.
	assert.True(t, acct.Balance().Equal(d("889.98")), "got %s", acct.Balance())
	assert.True(t, acct.AssetBalance("EUR").Total().Equal(d("100")))

	require.Len(t, order.Trades, 1)
	trade := order.Trades[0]
	assert.True(t, trade.ExecutionPrice.Equal(d("1.1002")))
	assert.Equal(t, TradePurposeOpen, trade.Purpose)

	positions := acct.OpenPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, PositionDirectionLong, positions[0].Direction)
	assert.True(t, positions[0].Volume.Equal(d("100")))
	require.NotNil(t, positions[0].EntryPrice)
	assert.True(t, positions[0].EntryPrice.Equal(d("1.1002")))
}

func TestBuyThenCloseRealizesSpreadCost(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	_, err = acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
	})
	require.NoError(t, err)

	pos := acct.OpenPositions()[0]
	closeOrder, err := pos.Close(context.Background())
	require.NoError(t, err)
	require.Equal(t, OrderStatusExecuted, closeOrder.Status)

	// Entering at the ask and exiting at the bid costs exactly the
	// spread.
	assert.True(t, acct.Balance().Equal(d("999.98")), "got %s", acct.Balance())
	assert.True(t, acct.AssetBalance("EUR").Total().IsZero())
	assert.Equal(t, PositionStatusClosed, pos.Status)
	assert.Nil(t, pos.EntryPrice)
	assert.True(t, pos.RealizedProfit.Equal(d("-0.02")), "got %s", pos.RealizedProfit)
}

func TestInsufficientFundsRejectionLeavesLedgerUntouched(t *testing.T) {
	engine, acct := newTestAccount(t, "50")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
	})
	require.NoError(t, err)

	assert.Equal(t, OrderStatusRejected, order.Status)
	assert.Equal(t, RejectionNotEnoughMoney, order.Rejection)
	assert.True(t, acct.Balance().Equal(d("50")))
	assert.Empty(t, acct.OpenPositions())
	assert.Empty(t, engine.Trades())
}

func TestUnknownSymbolRejection(t *testing.T) {
	_, acct := newTestAccount(t, "1000")

	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "GBPUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusRejected, order.Status)
	assert.Equal(t, RejectionSymbolNotFound, order.Rejection)
}

func TestInvalidProtectionRejections(t *testing.T) {
	tests := []struct {
		name       string
		direction  OrderDirection
		protection Protection
		rejection  OrderRejection
	}{
		{"buy stop loss above bid", OrderDirectionBuy, Protection{StopLoss: dp("1.2000")}, RejectionInvalidStopLoss},
		{"buy take profit below bid", OrderDirectionBuy, Protection{TakeProfit: dp("1.0500")}, RejectionInvalidTakeProfit},
		{"sell stop loss below ask", OrderDirectionSell, Protection{StopLoss: dp("1.0500")}, RejectionInvalidStopLoss},
		{"sell take profit above ask", OrderDirectionSell, Protection{TakeProfit: dp("1.2000")}, RejectionInvalidTakeProfit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, acct := newTestAccount(t, "1000")
			require.NoError(t, acct.Deposit("EUR", d("1000")))
			feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
			_, err := engine.ElapseTicks(1)
			require.NoError(t, err)

			order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
				Symbol:     "EURUSD",
				Direction:  tt.direction,
				Volume:     d("1"),
				Protection: &tt.protection,
			})
			require.NoError(t, err)
			assert.Equal(t, OrderStatusRejected, order.Status)
			assert.Equal(t, tt.rejection, order.Rejection)
		})
	}
}

func TestLimitOrderExecutesAtLimitPrice(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.0983", "1.0985"),
	)
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
		Limit:     dp("1.0990"),
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusPending, order.Status)

	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	// The ask crossed below the limit; the fill happens at the configured
	// limit price, not the crossing quote.
	require.Equal(t, OrderStatusExecuted, order.Status)
	require.Len(t, order.Trades, 1)
	assert.True(t, order.Trades[0].ExecutionPrice.Equal(d("1.0990")))
}

func TestStopOrderExecutesAtCrossingQuote(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.1010", "1.1012"),
	)
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
		Stop:      dp("1.1008"),
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusPending, order.Status)

	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	require.Equal(t, OrderStatusExecuted, order.Status)
	require.Len(t, order.Trades, 1)
	assert.True(t, order.Trades[0].ExecutionPrice.Equal(d("1.1012")))
}

func TestPendingOrderEvaluatedImmediatelyAtPlacement(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	// A buy limit above the current ask is already marketable.
	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
		Limit:     dp("1.1005"),
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusExecuted, order.Status)
}

func TestTakeProfitClosesAtFirstTriggeringTick(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.1030", "1.1032"),
		tickAt("EURUSD", 3*time.Second, "1.1050", "1.1052"),
		tickAt("EURUSD", 4*time.Second, "1.1080", "1.1082"),
	)
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	_, err = acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:     "EURUSD",
		Direction:  OrderDirectionBuy,
		Volume:     d("100"),
		Protection: &Protection{TakeProfit: dp("1.1050")},
	})
	require.NoError(t, err)
	pos := acct.OpenPositions()[0]

	_, err = engine.ElapseTicks(3)
	require.NoError(t, err)

	// The close fired on the first tick whose bid reached the level, not
	// at the later, better price.
	require.Equal(t, PositionStatusClosed, pos.Status)
	closing := pos.ClosingTrades()
	require.Len(t, closing, 1)
	assert.True(t, closing[0].ExecutionPrice.Equal(d("1.1050")))
	assert.True(t, pos.RealizedProfit.Equal(d("0.48")), "got %s", pos.RealizedProfit)
	assert.True(t, acct.Balance().Equal(d("1000.48")), "got %s", acct.Balance())
}

func TestStopLossClosesLongPosition(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.0950", "1.0952"),
	)
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	_, err = acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:     "EURUSD",
		Direction:  OrderDirectionBuy,
		Volume:     d("100"),
		Protection: &Protection{StopLoss: dp("1.0950")},
	})
	require.NoError(t, err)
	pos := acct.OpenPositions()[0]

	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	require.Equal(t, PositionStatusClosed, pos.Status)
	closing := pos.ClosingTrades()
	require.Len(t, closing, 1)
	assert.True(t, closing[0].ExecutionPrice.Equal(d("1.0950")))
}

func TestNegativeBalanceProtectionForceCloses(t *testing.T) {
	engine, acct := newTestAccount(t, "120")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.0004", "1.0006"),
	)
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	_, err = acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
	})
	require.NoError(t, err)
	pos := acct.OpenPositions()[0]

	// The crash tick pushes equity to zero, which liquidates the
	// position even without protection levels.
	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	require.Equal(t, PositionStatusClosed, pos.Status)
	assert.True(t, acct.AssetBalance("EUR").Total().IsZero())
	assert.True(t, acct.Balance().Equal(d("110.02")), "got %s", acct.Balance())
}

func TestCommissionMayPushBalanceNegative(t *testing.T) {
	engine, acct := newTestAccount(t, "110.02")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	engine.SetCommissionCustomizer(func(o *Order, snapshot TradeSnapshot) (string, decimal.Decimal) {
		return o.Account().PrimaryAsset(), d("10")
	})

	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusExecuted, order.Status)

	// The settlement consumed the whole balance; the commission still
	// settles and leaves it negative.
	assert.True(t, acct.Balance().Equal(d("-10")), "got %s", acct.Balance())
	assert.True(t, order.Trades[0].Commission.Equal(d("10")))
	assert.True(t, acct.OpenPositions()[0].RealizedCommission.Equal(d("10")))
}

func TestCancelOrder(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	order, err := acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("100"),
		Limit:     dp("1.0900"),
	})
	require.NoError(t, err)
	require.Equal(t, OrderStatusPending, order.Status)

	require.NoError(t, acct.CancelOrder(order.ID))
	assert.Equal(t, OrderStatusCancelled, order.Status)

	assert.Error(t, acct.CancelOrder(order.ID), "cancelling twice")
	assert.Error(t, acct.CancelOrder("missing"))
}

func TestPlaceOrderFastFailures(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	tests := []struct {
		name       string
		directives OrderDirectives
	}{
		{"no symbol or position", OrderDirectives{Direction: OrderDirectionBuy, Volume: d("1")}},
		{"zero volume", OrderDirectives{Symbol: "EURUSD", Direction: OrderDirectionBuy}},
		{"negative volume", OrderDirectives{Symbol: "EURUSD", Direction: OrderDirectionBuy, Volume: d("-1")}},
		{"bad direction", OrderDirectives{Symbol: "EURUSD", Direction: "sideways", Volume: d("1")}},
		{"limit and stop together", OrderDirectives{Symbol: "EURUSD", Direction: OrderDirectionBuy, Volume: d("1"), Limit: dp("1.09"), Stop: dp("1.11")}},
		{"unknown position", OrderDirectives{PositionID: "missing", Direction: OrderDirectionSell, Volume: d("1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := acct.PlaceOrder(context.Background(), tt.directives)
			assert.Error(t, err)
		})
	}
}

func TestOrderEventSequenceForMarketOrder(t *testing.T) {
	engine, acct := newTestAccount(t, "1000")
	feedTicks(engine, tickAt("EURUSD", time.Second, "1.1000", "1.1002"))
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	var sequence []string
	engine.On("*", func(ev Event) {
		if ev.Type != EventTick {
			sequence = append(sequence, ev.Type)
		}
	})

	_, err = acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionBuy,
		Volume:    d("1"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{EventOrder, EventOrderAccept, EventTrade, EventOrderExecute}, sequence)
}
