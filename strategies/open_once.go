package strategies

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/playback/market"
	"github.com/tradeworks/playback/sim"
)

// OpenOnce opens a single market buy on the first tick of its symbol and
// then stays idle. Useful as a pipeline smoke test.
type OpenOnce struct {
	Symbol string
	Volume decimal.Decimal

	opened bool
}

func (s *OpenOnce) OnTick(ctx context.Context, acct *sim.Account, tick market.Tick) error {
	if s.opened || tick.Symbol != s.Symbol {
		return nil
	}
	s.opened = true

	order, err := acct.PlaceOrder(ctx, sim.OrderDirectives{
		Symbol:    s.Symbol,
		Direction: sim.OrderDirectionBuy,
		Volume:    s.Volume,
	})
	if err != nil {
		return err
	}
	if order.Status == sim.OrderStatusRejected {
		return fmt.Errorf("open-once order rejected: %s", order.Rejection)
	}
	return nil
}
