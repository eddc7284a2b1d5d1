package strategies

import (
	"context"

	"github.com/tradeworks/playback/market"
	"github.com/tradeworks/playback/sim"
)

// Noop does nothing.
type Noop struct{}

func (Noop) OnTick(context.Context, *sim.Account, market.Tick) error {
	return nil
}
