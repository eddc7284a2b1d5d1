package market

import "time"

// EventKind discriminates the variants of a feed Event.
type EventKind int

const (
	EventTick EventKind = iota
	EventPeriod
)

// Event is a tagged variant over the two kinds of market data the feed
// merger produces. Exactly one of Tick or Period is meaningful, selected
// by Kind.
type Event struct {
	Kind   EventKind
	Tick   Tick
	Period Period
}

func TickEvent(t Tick) Event {
	return Event{Kind: EventTick, Tick: t}
}

func PeriodEvent(p Period) Event {
	return Event{Kind: EventPeriod, Period: p}
}

// Time is the effective timestamp used for merge ordering: the tick time,
// or the period end time.
func (e Event) Time() time.Time {
	if e.Kind == EventTick {
		return e.Tick.Time
	}
	return e.Period.EndTime
}
