// Package feed provides tick and period sources backed by files and
// in-memory slices.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/playback/market"
)

// CSVTicks reads canonical tick CSV rows:
//
//	time,symbol,bid,ask[,movement]
//
// where time is RFC3339 or RFC3339Nano and movement is one of "bid",
// "ask", "bid-ask" (absent means both sides updated).
//
// Rows for other symbols are skipped, so one file can carry a whole
// session and each source picks out its own symbol. Ticks are optionally
// filtered to [From, To). A header row ("time,...") is allowed.
type CSVTicks struct {
	f      *os.File
	r      *csv.Reader
	symbol string
	from   time.Time
	to     time.Time

	sawFirst bool
}

func NewCSVTicks(path, symbol string, from, to time.Time) (*CSVTicks, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	return &CSVTicks{f: f, r: r, symbol: symbol, from: from, to: to}, nil
}

func (s *CSVTicks) Close() error {
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

func (s *CSVTicks) Next() (market.Tick, bool, error) {
	for {
		row, err := s.r.Read()
		if err == io.EOF {
			return market.Tick{}, false, nil
		}
		if err != nil {
			return market.Tick{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !s.sawFirst {
			s.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		t, ok, err := parseTickRow(row)
		if err != nil {
			return market.Tick{}, false, err
		}
		if !ok {
			continue
		}
		if s.symbol != "" && t.Symbol != s.symbol {
			continue
		}
		if !inRange(t.Time, s.from, s.to) {
			continue
		}
		return t, true, nil
	}
}

func parseTickRow(row []string) (market.Tick, bool, error) {
	// Need at least: time,symbol,bid,ask
	if len(row) < 4 {
		return market.Tick{}, false, nil
	}

	if strings.TrimSpace(row[0]) == "" {
		return market.Tick{}, false, nil
	}
	ts, err := parseTime(row[0])
	if err != nil {
		return market.Tick{}, false, err
	}

	symbol := strings.TrimSpace(row[1])
	if symbol == "" {
		return market.Tick{}, false, nil
	}

	bid, err := parsePrice(row[2], "bid")
	if err != nil {
		return market.Tick{}, false, err
	}
	ask, err := parsePrice(row[3], "ask")
	if err != nil {
		return market.Tick{}, false, err
	}

	movement := market.MovementBidAsk
	if len(row) > 4 {
		switch strings.TrimSpace(row[4]) {
		case "bid":
			movement = market.MovementBid
		case "ask":
			movement = market.MovementAsk
		case "", "bid-ask":
		default:
			return market.Tick{}, false, fmt.Errorf("bad movement %q", row[4])
		}
	}

	return market.Tick{
		Symbol:   symbol,
		Bid:      bid,
		Ask:      ask,
		Time:     ts,
		Movement: movement,
	}, true, nil
}

// CSVPeriods reads candle CSV rows for a single symbol and timeframe:
//
//	time,open,high,low,close[,volume]
//
// where time is the period start; the end is derived from the timeframe.
// All periods read from file are closed.
type CSVPeriods struct {
	f         *os.File
	r         *csv.Reader
	symbol    string
	timeframe market.Timeframe
	from      time.Time
	to        time.Time

	sawFirst bool
}

func NewCSVPeriods(path, symbol string, tf market.Timeframe, from, to time.Time) (*CSVPeriods, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	return &CSVPeriods{f: f, r: r, symbol: symbol, timeframe: tf, from: from, to: to}, nil
}

func (s *CSVPeriods) Close() error {
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

func (s *CSVPeriods) Next() (market.Period, bool, error) {
	for {
		row, err := s.r.Read()
		if err == io.EOF {
			return market.Period{}, false, nil
		}
		if err != nil {
			return market.Period{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		if !s.sawFirst {
			s.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		p, ok, err := s.parsePeriodRow(row)
		if err != nil {
			return market.Period{}, false, err
		}
		if !ok {
			continue
		}
		if !inRange(p.StartTime, s.from, s.to) {
			continue
		}
		return p, true, nil
	}
}

func (s *CSVPeriods) parsePeriodRow(row []string) (market.Period, bool, error) {
	// Need at least: time,open,high,low,close
	if len(row) < 5 {
		return market.Period{}, false, nil
	}

	if strings.TrimSpace(row[0]) == "" {
		return market.Period{}, false, nil
	}
	start, err := parseTime(row[0])
	if err != nil {
		return market.Period{}, false, err
	}

	open, err := parsePrice(row[1], "open")
	if err != nil {
		return market.Period{}, false, err
	}
	high, err := parsePrice(row[2], "high")
	if err != nil {
		return market.Period{}, false, err
	}
	low, err := parsePrice(row[3], "low")
	if err != nil {
		return market.Period{}, false, err
	}
	closePrice, err := parsePrice(row[4], "close")
	if err != nil {
		return market.Period{}, false, err
	}

	volume := decimal.Zero
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		volume, err = parsePrice(row[5], "volume")
		if err != nil {
			return market.Period{}, false, err
		}
	}

	return market.Period{
		Symbol:    s.symbol,
		Timeframe: s.timeframe,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		StartTime: start,
		EndTime:   start.Add(s.timeframe.Duration()),
		IsClosed:  true,
	}, true, nil
}

func parseTime(field string) (time.Time, error) {
	ts := strings.TrimSpace(field)
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty time field")
	}
	// Accept RFC3339 or RFC3339Nano.
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}
	return t, nil
}

func parsePrice(field, name string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(field))
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad %s %q: %w", name, field, err)
	}
	return v, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
