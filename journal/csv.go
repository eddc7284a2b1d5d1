package journal

import (
	"encoding/csv"
	"os"
	"time"
)

type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	writeHeaders := func() error {
		if err := tw.Write([]string{"trade_id", "order_id", "position_id", "symbol", "direction", "purpose", "volume", "price", "commission", "gross_profit", "time"}); err != nil {
			return err
		}
		if err := ew.Write([]string{"time", "balance", "equity"}); err != nil {
			return err
		}
		tw.Flush()
		if err := tw.Error(); err != nil {
			return err
		}
		ew.Flush()
		return ew.Error()
	}
	if err := writeHeaders(); err != nil {
		tf.Close()
		ef.Close()
		return nil, err
	}

	return &CSV{tw, ew, tf, ef}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.OrderID,
		t.PositionID,
		t.Symbol,
		t.Direction,
		t.Purpose,
		t.Volume.String(),
		t.Price.String(),
		t.Commission.String(),
		t.GrossProfit.String(),
		t.Time.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		e.Balance.String(),
		e.Equity.String(),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}
