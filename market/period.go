package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is an OHLCV candle for a symbol and timeframe. Only closed periods
// carry settlement-relevant semantics; an open period is a running preview.
type Period struct {
	Symbol    string
	Timeframe Timeframe
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	StartTime time.Time
	EndTime   time.Time
	IsClosed  bool
}

// PeriodSource is a forward-only, possibly-finite sequence of periods
// emitted in increasing EndTime order. Same contract as TickSource.
type PeriodSource interface {
	Next() (p Period, ok bool, err error)
}
