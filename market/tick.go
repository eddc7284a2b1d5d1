package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement describes which side of the quote a tick updated. A partial tick
// carries only one side; the simulation completes the missing side from the
// previous quote before the tick is processed.
type Movement int

const (
	MovementUnknown Movement = iota
	MovementBid
	MovementAsk
	MovementBidAsk
)

func (m Movement) String() string {
	switch m {
	case MovementBid:
		return "bid"
	case MovementAsk:
		return "ask"
	case MovementBidAsk:
		return "bid-ask"
	default:
		return "unknown"
	}
}

// Tick is a bid/ask quote update for a symbol at a point in time.
// On a partial update (Movement == MovementBid or MovementAsk) the absent
// side is the zero decimal; both sides absent is invalid.
type Tick struct {
	Symbol   string
	Bid      decimal.Decimal
	Ask      decimal.Decimal
	Time     time.Time
	Movement Movement
}

func (t Tick) Mid() decimal.Decimal {
	return t.Bid.Add(t.Ask).Div(decimal.NewFromInt(2))
}

func (t Tick) Spread() decimal.Decimal {
	return t.Ask.Sub(t.Bid)
}

// TickSource is a forward-only, possibly-finite sequence of ticks with
// non-decreasing timestamps. It is not restartable; returning ok == false
// means the sequence ended, which is not an error.
type TickSource interface {
	Next() (t Tick, ok bool, err error)
}
