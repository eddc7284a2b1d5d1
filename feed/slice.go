package feed

import "github.com/tradeworks/playback/market"

// Ticks is an in-memory tick source, mainly for tests and synthetic
// scenarios. It is forward-only like any other source.
type Ticks struct {
	ticks []market.Tick
	i     int
}

func NewTicks(ticks []market.Tick) *Ticks {
	return &Ticks{ticks: ticks}
}

func (s *Ticks) Next() (market.Tick, bool, error) {
	if s.i >= len(s.ticks) {
		return market.Tick{}, false, nil
	}
	t := s.ticks[s.i]
	s.i++
	return t, true, nil
}

// Periods is an in-memory period source.
type Periods struct {
	periods []market.Period
	i       int
}

func NewPeriods(periods []market.Period) *Periods {
	return &Periods{periods: periods}
}

func (s *Periods) Next() (market.Period, bool, error) {
	if s.i >= len(s.periods) {
		return market.Period{}, false, nil
	}
	p := s.periods[s.i]
	s.i++
	return p, true, nil
}
