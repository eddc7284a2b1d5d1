package sim

import (
	"sync"
	"time"

	"github.com/tradeworks/playback/market"
)

// Event types emitted by the engine.
const (
	EventTick         = "tick"
	EventPeriodUpdate = "period-update"
	EventPeriodClose  = "period-close"
	EventOrder        = "order"
	EventOrderAccept  = "order-accept"
	EventOrderPending = "order-pending"
	EventOrderExecute = "order-execute"
	EventOrderReject  = "order-reject"
	EventOrderCancel  = "order-cancel"
	EventTrade        = "trade"
)

// Event is the descriptor delivered to listeners. Only the fields relevant
// to the event type are set.
type Event struct {
	Type      string
	Time      time.Time
	Tick      *market.Tick
	Period    *market.Period
	Order     *Order
	Trade     *Trade
	Rejection OrderRejection
}

// Handler receives engine events. Handlers run synchronously on the
// engine's goroutine; a handler that needs to block must hand off to
// another goroutine and acknowledge the feed gate from there.
type Handler func(Event)

type listener struct {
	eventType string
	handler   Handler
}

type emitter struct {
	mu        sync.Mutex
	nextToken int
	listeners map[int]listener
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[int]listener)}
}

func (e *emitter) on(eventType string, h Handler) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextToken++
	e.listeners[e.nextToken] = listener{eventType: eventType, handler: h}
	return e.nextToken
}

func (e *emitter) remove(token int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, token)
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	handlers := make([]Handler, 0, len(e.listeners))
	tokens := make([]int, 0, len(e.listeners))
	for token, l := range e.listeners {
		if l.eventType == ev.Type || l.eventType == "*" {
			handlers = append(handlers, l.handler)
			tokens = append(tokens, token)
		}
	}
	e.mu.Unlock()

	// Dispatch in registration order.
	sortByToken(tokens, handlers)
	for _, h := range handlers {
		h(ev)
	}
}

func sortByToken(tokens []int, handlers []Handler) {
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0 && tokens[j] < tokens[j-1]; j-- {
			tokens[j], tokens[j-1] = tokens[j-1], tokens[j]
			handlers[j], handlers[j-1] = handlers[j-1], handlers[j]
		}
	}
}
