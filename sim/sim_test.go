package sim

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradeworks/playback/market"
)

var testStart = time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// sliceTicks is a TickSource backed by an in-memory slice.
type sliceTicks struct {
	ticks []market.Tick
	i     int
}

func (s *sliceTicks) Next() (market.Tick, bool, error) {
	if s.i >= len(s.ticks) {
		return market.Tick{}, false, nil
	}
	t := s.ticks[s.i]
	s.i++
	return t, true, nil
}

type slicePeriods struct {
	periods []market.Period
	i       int
}

func (s *slicePeriods) Next() (market.Period, bool, error) {
	if s.i >= len(s.periods) {
		return market.Period{}, false, nil
	}
	p := s.periods[s.i]
	s.i++
	return p, true, nil
}

func tickAt(symbol string, offset time.Duration, bid, ask string) market.Tick {
	return market.Tick{
		Symbol:   symbol,
		Bid:      d(bid),
		Ask:      d(ask),
		Time:     testStart.Add(offset),
		Movement: market.MovementBidAsk,
	}
}

func eurusd() market.Symbol {
	return market.Symbol{
		Symbol:     "EURUSD",
		BaseAsset:  "EUR",
		QuoteAsset: "USD",
		Digits:     5,
	}
}

// newTestAccount builds an engine starting at testStart and an account
// holding the given USD balance, with EURUSD registered.
func newTestAccount(t *testing.T, usd string) (*Engine, *Account) {
	t.Helper()

	engine := NewEngine(EngineConfig{StartTime: testStart})
	acct, err := engine.CreateAccount(AccountConfig{
		OwnerName: "tester",
		BalanceSheet: map[string]decimal.Decimal{
			"USD": d(usd),
		},
	})
	require.NoError(t, err)
	require.NoError(t, acct.AddSymbol(eurusd()))

	return engine, acct
}

func feedTicks(e *Engine, ticks ...market.Tick) {
	e.SetTickSource(ticks[0].Symbol, &sliceTicks{ticks: ticks})
}
