// Package journal persists executed trades and equity snapshots, to CSV
// files or a SQLite database.
package journal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/playback/sim"
)

type TradeRecord struct {
	TradeID     string
	OrderID     string
	PositionID  string
	Symbol      string
	Direction   string
	Purpose     string
	Volume      decimal.Decimal
	Price       decimal.Decimal
	Commission  decimal.Decimal
	GrossProfit decimal.Decimal
	Time        time.Time
}

// FromTrade flattens an executed trade into its journal record.
func FromTrade(t *sim.Trade) TradeRecord {
	return TradeRecord{
		TradeID:     t.ID,
		OrderID:     t.OrderID,
		PositionID:  t.PositionID,
		Symbol:      t.Symbol,
		Direction:   string(t.Direction),
		Purpose:     string(t.Purpose),
		Volume:      t.Volume,
		Price:       t.ExecutionPrice,
		Commission:  t.Commission,
		GrossProfit: t.GrossProfit,
		Time:        t.ExecutionTime,
	}
}

type EquitySnapshot struct {
	Time    time.Time
	Balance decimal.Decimal
	Equity  decimal.Decimal
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Discard drops everything, for runs that don't need persistence.
var Discard Journal = discard{}

type discard struct{}

func (discard) RecordTrade(TradeRecord) error     { return nil }
func (discard) RecordEquity(EquitySnapshot) error { return nil }
func (discard) Close() error                      { return nil }
