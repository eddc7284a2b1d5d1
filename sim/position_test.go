package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryPriceIsVolumeWeightedAverage(t *testing.T) {
	engine, acct := newTestAccount(t, "10000")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.1010", "1.1012"),
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

	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	_, err = pos.AddVolume(context.Background(), d("100"))
	require.NoError(t, err)

	// 100 @ 1.1002 and 100 @ 1.1012 average to 1.1007.
	require.True(t, pos.Volume.Equal(d("200")))
	require.NotNil(t, pos.EntryPrice)
	assert.True(t, pos.EntryPrice.Equal(d("1.1007")), "got %s", pos.EntryPrice)
}

func TestEntryPriceCapsOldestTradesAtCurrentVolume(t *testing.T) {
	engine, acct := newTestAccount(t, "10000")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.1010", "1.1012"),
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

	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	_, err = pos.AddVolume(context.Background(), d("50"))
	require.NoError(t, err)
	_, err = pos.SubtractVolume(context.Background(), d("120"))
	require.NoError(t, err)

	// 30 units remain; counted volumes are the oldest trades capped at
	// the remaining volume: 30 @ 1.1002.
	require.True(t, pos.Volume.Equal(d("30")))
	require.NotNil(t, pos.EntryPrice)
	assert.True(t, pos.EntryPrice.Equal(d("1.1002")), "got %s", pos.EntryPrice)
}

func TestPartialCloseRealizesProportionalProfit(t *testing.T) {
	engine, acct := newTestAccount(t, "10000")
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.1052", "1.1054"),
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

	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	// Unrealized at bid 1.1052 is (1.1052 - 1.1002) * 100 = 0.50;
	// closing half realizes half of it.
	_, err = pos.SubtractVolume(context.Background(), d("50"))
	require.NoError(t, err)

	assert.Equal(t, PositionStatusOpen, pos.Status)
	assert.True(t, pos.Volume.Equal(d("50")))
	assert.True(t, pos.RealizedProfit.Equal(d("0.25")), "got %s", pos.RealizedProfit)

	unrealized, err := pos.UnrealizedGrossProfit()
	require.NoError(t, err)
	assert.True(t, unrealized.Equal(d("0.25")), "got %s", unrealized)
}

func TestClosedPositionStaysClosed(t *testing.T) {
	engine, acct := newTestAccount(t, "10000")
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

	_, err = pos.Close(context.Background())
	require.NoError(t, err)
	require.Equal(t, PositionStatusClosed, pos.Status)

	// A closed position never reopens: orders referencing it fail at
	// placement.
	_, err = pos.AddVolume(context.Background(), d("10"))
	assert.Error(t, err)

	unrealized, err := pos.UnrealizedGrossProfit()
	require.NoError(t, err)
	assert.True(t, unrealized.IsZero())
}

func TestShortPositionUnrealizedProfitUsesAsk(t *testing.T) {
	engine, acct := newTestAccount(t, "10000")
	require.NoError(t, acct.Deposit("EUR", d("100")))
	feedTicks(engine,
		tickAt("EURUSD", time.Second, "1.1000", "1.1002"),
		tickAt("EURUSD", 2*time.Second, "1.0950", "1.0952"),
	)
	_, err := engine.ElapseTicks(1)
	require.NoError(t, err)

	_, err = acct.PlaceOrder(context.Background(), OrderDirectives{
		Symbol:    "EURUSD",
		Direction: OrderDirectionSell,
		Volume:    d("100"),
	})
	require.NoError(t, err)
	pos := acct.OpenPositions()[0]
	require.Equal(t, PositionDirectionShort, pos.Direction)

	_, err = engine.ElapseTicks(1)
	require.NoError(t, err)

	// Short entry at bid 1.1000, buy-back priced at ask 1.0952.
	unrealized, err := pos.UnrealizedGrossProfit()
	require.NoError(t, err)
	assert.True(t, unrealized.Equal(d("0.48")), "got %s", unrealized)
}

func TestChangeProtection(t *testing.T) {
	engine, acct := newTestAccount(t, "10000")
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

	change, err := pos.ChangeProtection(Protection{
		StopLoss:   dp("1.0900"),
		TakeProfit: dp("1.1100"),
	})
	require.NoError(t, err)
	require.Equal(t, ProtectionChangeSucceeded, change.Status)
	require.NotNil(t, pos.Protection.StopLoss)
	assert.True(t, pos.Protection.StopLoss.Equal(d("1.0900")))
	require.NotNil(t, pos.Protection.TakeProfit)
	assert.True(t, pos.Protection.TakeProfit.Equal(d("1.1100")))

	// An invalid level is rejected as a whole and leaves the previous
	// protection in place.
	change, err = pos.ChangeProtection(Protection{StopLoss: dp("1.2000")})
	require.NoError(t, err)
	assert.Equal(t, ProtectionChangeRejected, change.Status)
	assert.True(t, pos.Protection.StopLoss.Equal(d("1.0900")))

	// Updating one level leaves the other untouched.
	change, err = pos.ChangeProtection(Protection{TakeProfit: dp("1.1200")})
	require.NoError(t, err)
	require.Equal(t, ProtectionChangeSucceeded, change.Status)
	assert.True(t, pos.Protection.StopLoss.Equal(d("1.0900")))
	assert.True(t, pos.Protection.TakeProfit.Equal(d("1.1200")))
}

func TestPositionTradeAccessors(t *testing.T) {
	engine, acct := newTestAccount(t, "10000")
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

	_, err = pos.SubtractVolume(context.Background(), d("40"))
	require.NoError(t, err)

	assert.Len(t, pos.OpeningTrades(), 1)
	assert.Len(t, pos.ClosingTrades(), 1)
	assert.Len(t, pos.Trades(), 2)
	assert.True(t, pos.UsedMargin().IsZero())
}
