package sim

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tradeworks/playback/market"
)

// tickCursor wraps a TickSource with single-event pushback: peek reads
// ahead without consuming, so an event beyond the elapse horizon stays
// buffered for the next window. Exhaustion is terminal and not an error.
type tickCursor struct {
	src       market.TickSource
	peeked    *market.Tick
	done      bool
	loggedEnd bool
}

func (c *tickCursor) peek() (market.Tick, bool, error) {
	if c.peeked != nil {
		return *c.peeked, true, nil
	}
	if c.done {
		return market.Tick{}, false, nil
	}
	t, ok, err := c.src.Next()
	if err != nil {
		return market.Tick{}, false, err
	}
	if !ok {
		c.done = true
		return market.Tick{}, false, nil
	}
	c.peeked = &t
	return t, true, nil
}

func (c *tickCursor) advance() {
	c.peeked = nil
}

type periodCursor struct {
	src       market.PeriodSource
	peeked    *market.Period
	done      bool
	loggedEnd bool
}

func (c *periodCursor) peek() (market.Period, bool, error) {
	if c.peeked != nil {
		return *c.peeked, true, nil
	}
	if c.done {
		return market.Period{}, false, nil
	}
	p, ok, err := c.src.Next()
	if err != nil {
		return market.Period{}, false, err
	}
	if !ok {
		c.done = true
		return market.Period{}, false, nil
	}
	c.peeked = &p
	return p, true, nil
}

func (c *periodCursor) advance() {
	c.peeked = nil
}

// ElapseTime advances the virtual clock by d, draining every source of the
// events falling inside (clock, clock+d] and delivering them in effective
// timestamp order (tick time, period end time). Equal timestamps keep
// ticks before periods, preserving collection order; this tie-break is
// definitional, not incidental.
func (e *Engine) ElapseTime(d time.Duration) (Elapsed, error) {
	if d <= 0 {
		return Elapsed{}, nil
	}

	target := e.clock.Add(d)

	ticks, err := e.collectTicks(target)
	if err != nil {
		return Elapsed{}, err
	}
	periods, err := e.collectPeriods(target)
	if err != nil {
		return Elapsed{}, err
	}

	events := make([]market.Event, 0, len(ticks)+len(periods))
	for _, t := range ticks {
		events = append(events, market.TickEvent(t))
	}
	for _, p := range periods {
		events = append(events, market.PeriodEvent(p))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time().Before(events[j].Time())
	})

	e.log.Debug("elapsing",
		zap.Int("ticks", len(ticks)),
		zap.Int("periods", len(periods)),
		zap.Time("target", target),
	)

	for _, ev := range events {
		switch ev.Kind {
		case market.EventTick:
			if err := e.processTick(ev.Tick); err != nil {
				return Elapsed{}, err
			}
		case market.EventPeriod:
			e.processPeriod(ev.Period)
		}
	}

	e.clock = target

	return Elapsed{Ticks: ticks, Periods: periods}, nil
}

// ElapseTicks drains ticks only, across all symbols in registration
// order, until count ticks strictly newer than the clock have been
// collected, then delivers them in timestamp order. The clock ends at the
// last delivered tick's timestamp rather than a fixed horizon.
func (e *Engine) ElapseTicks(count int) (Elapsed, error) {
	if count <= 0 {
		return Elapsed{}, nil
	}

	var collected []market.Tick
	for _, symbol := range e.tickOrder {
		cur := e.tickSources[symbol]
		for len(collected) < count {
			t, ok, err := cur.peek()
			if err != nil {
				return Elapsed{}, fmt.Errorf("ticks source %s: %w", symbol, err)
			}
			if !ok {
				e.logSourceEnd(cur, symbol)
				break
			}
			cur.advance()
			if t.Time.After(e.clock) {
				collected = append(collected, t)
			}
		}
		if len(collected) >= count {
			break
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Time.Before(collected[j].Time)
	})

	for _, t := range collected {
		if err := e.processTick(t); err != nil {
			return Elapsed{}, err
		}
	}

	return Elapsed{Ticks: collected}, nil
}

func (e *Engine) collectTicks(target time.Time) ([]market.Tick, error) {
	var ticks []market.Tick
	for _, symbol := range e.tickOrder {
		cur := e.tickSources[symbol]
		for {
			t, ok, err := cur.peek()
			if err != nil {
				return nil, fmt.Errorf("ticks source %s: %w", symbol, err)
			}
			if !ok {
				e.logSourceEnd(cur, symbol)
				break
			}
			if t.Time.After(target) {
				break // of the future; stays buffered
			}
			cur.advance()
			if t.Time.After(e.clock) {
				ticks = append(ticks, t)
			}
		}
	}
	return ticks, nil
}

func (e *Engine) collectPeriods(target time.Time) ([]market.Period, error) {
	var periods []market.Period
	for _, key := range e.periodOrder {
		cur := e.periodSources[key]
		for {
			p, ok, err := cur.peek()
			if err != nil {
				return nil, fmt.Errorf("periods source %s %s: %w", key.symbol, key.timeframe, err)
			}
			if !ok {
				if !cur.loggedEnd {
					cur.loggedEnd = true
					e.log.Info("periods source reached its end",
						zap.String("symbol", key.symbol),
						zap.Stringer("timeframe", key.timeframe),
					)
				}
				break
			}
			if p.EndTime.After(target) {
				break
			}
			cur.advance()
			if p.EndTime.After(e.clock) {
				periods = append(periods, p)
			}
		}
	}
	return periods, nil
}

func (e *Engine) logSourceEnd(cur *tickCursor, symbol string) {
	if !cur.loggedEnd {
		cur.loggedEnd = true
		e.log.Info("ticks source reached its end", zap.String("symbol", symbol))
	}
}

// processTick delivers one tick: advance the clock, refresh the last
// quote, re-evaluate pending orders and open positions, then notify.
func (e *Engine) processTick(t market.Tick) error {
	t = e.completeTick(t)
	e.clock = t.Time
	e.lastTicks[t.Symbol] = t
	e.saveTick(t)

	if err := e.updatePendingOrders(t); err != nil {
		return err
	}
	if err := e.updateOpenPositions(t); err != nil {
		return err
	}

	e.notifyGated(Event{Type: EventTick, Time: t.Time, Tick: &t})

	return nil
}

func (e *Engine) processPeriod(p market.Period) {
	e.savePeriod(p)
	e.notifyGated(Event{Type: EventPeriodUpdate, Time: p.EndTime, Period: &p})
	if p.IsClosed {
		e.notifyGated(Event{Type: EventPeriodClose, Time: p.EndTime, Period: &p})
	}
}

// notifyGated emits an event and, when feed confirmation is enabled,
// suspends until the consumer acknowledges via NextFeed.
func (e *Engine) notifyGated(ev Event) {
	if e.waitFeedConfirmation {
		e.gate.arm()
	}
	e.emitter.emit(ev)
	if e.waitFeedConfirmation {
		e.gate.wait()
	}
}

// completeTick fills the absent side of a partial tick from the previous
// quote, when one exists.
func (e *Engine) completeTick(t market.Tick) market.Tick {
	last, ok := e.lastTicks[t.Symbol]
	if !ok {
		return t
	}
	switch t.Movement {
	case market.MovementBid:
		t.Ask = last.Ask
	case market.MovementAsk:
		t.Bid = last.Bid
	}
	return t
}

func sortTicksByTime(ticks []market.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Time.Before(ticks[j].Time)
	})
}

func sortPeriodsByStart(periods []market.Period) {
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].StartTime.Before(periods[j].StartTime)
	})
}
