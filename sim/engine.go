// Package sim implements a deterministic, offline market simulator: it
// replays historical tick and candle data against virtual trading
// accounts, matching orders and settling trades with the same external
// contract as a live broker connection.
//
// The engine runs a single logical timeline: exactly one simulated event
// is processed at a time and all engine-owned state is mutated inside that
// step. The engine itself is not goroutine safe; a multi-threaded host
// must wrap it so one owning goroutine serializes all mutating calls. The
// only cross-goroutine handoff is the feed confirmation gate (NextFeed).
package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradeworks/playback/internal/id"
	"github.com/tradeworks/playback/ledger"
	"github.com/tradeworks/playback/market"
)

const defaultSavedLimit = 1000

// ErrNoQuotes is returned when a symbol has produced no tick yet.
var ErrNoQuotes = fmt.Errorf("no quotes available")

// EngineConfig parameterizes NewEngine. The zero value is usable: the
// clock starts at the zero time, history limits default to 1000 and
// logging is disabled.
type EngineConfig struct {
	StartTime         time.Time
	SavedTicksLimit   int
	SavedPeriodsLimit int
	Logger            *zap.Logger
}

// Elapsed reports the market data delivered by ElapseTime or ElapseTicks.
type Elapsed struct {
	Ticks   []market.Tick
	Periods []market.Period
}

type periodKey struct {
	symbol    string
	timeframe market.Timeframe
}

// Engine is the simulation core: virtual clock, feed merger, matching
// unit, position tracker and account registry.
type Engine struct {
	clock time.Time
	log   *zap.Logger

	tickSources   map[string]*tickCursor
	tickOrder     []string
	periodSources map[periodKey]*periodCursor
	periodOrder   []periodKey

	savedTicksLimit   int
	savedPeriodsLimit int
	localTicks        map[string][]market.Tick
	localPeriods      map[periodKey][]market.Period
	lastTicks         map[string]market.Tick

	orders       map[string]*Order
	orderSeq     []*Order
	trades       map[string]*Trade
	tradeSeq     []*Trade
	positions    map[string]*Position
	positionSeq  []*Position
	accounts     map[string]*Account
	accountOrder []*Account

	commission CommissionCustomizer

	waitFeedConfirmation bool
	gate                 feedGate
	emitter              *emitter
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.SavedTicksLimit == 0 {
		cfg.SavedTicksLimit = defaultSavedLimit
	}
	if cfg.SavedPeriodsLimit == 0 {
		cfg.SavedPeriodsLimit = defaultSavedLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Engine{
		clock:             cfg.StartTime,
		log:               cfg.Logger,
		tickSources:       make(map[string]*tickCursor),
		periodSources:     make(map[periodKey]*periodCursor),
		savedTicksLimit:   cfg.SavedTicksLimit,
		savedPeriodsLimit: cfg.SavedPeriodsLimit,
		localTicks:        make(map[string][]market.Tick),
		localPeriods:      make(map[periodKey][]market.Period),
		lastTicks:         make(map[string]market.Tick),
		orders:            make(map[string]*Order),
		trades:            make(map[string]*Trade),
		positions:         make(map[string]*Position),
		accounts:          make(map[string]*Account),
		emitter:           newEmitter(),
	}
}

// Now is the virtual clock, advanced only by feed consumption.
func (e *Engine) Now() time.Time { return e.clock }

// SetWaitFeedConfirmation toggles the feed confirmation gate. When
// enabled, the engine suspends after every gated notification until the
// consumer calls NextFeed.
func (e *Engine) SetWaitFeedConfirmation(wait bool) {
	e.waitFeedConfirmation = wait
}

// NextFeed acknowledges the current gated notification, letting the
// engine advance to the next event. Safe to call from any goroutine.
func (e *Engine) NextFeed() {
	e.gate.resolve()
}

// SetTickSource registers the tick source for a symbol. Sources are
// drained in registration order, which keeps replays deterministic.
func (e *Engine) SetTickSource(symbol string, src market.TickSource) {
	if _, ok := e.tickSources[symbol]; !ok {
		e.tickOrder = append(e.tickOrder, symbol)
	}
	e.tickSources[symbol] = &tickCursor{src: src}
}

// SetPeriodSource registers the period source for a symbol and timeframe.
func (e *Engine) SetPeriodSource(symbol string, tf market.Timeframe, src market.PeriodSource) {
	key := periodKey{symbol: symbol, timeframe: tf}
	if _, ok := e.periodSources[key]; !ok {
		e.periodOrder = append(e.periodOrder, key)
	}
	e.periodSources[key] = &periodCursor{src: src}
}

// SetCommissionCustomizer installs the commission policy. A nil customizer
// restores the default zero-commission policy.
func (e *Engine) SetCommissionCustomizer(fn CommissionCustomizer) {
	e.commission = fn
}

// Exhausted reports whether every registered source has reached its end.
func (e *Engine) Exhausted() bool {
	for _, cur := range e.tickSources {
		if !cur.done {
			return false
		}
	}
	for _, cur := range e.periodSources {
		if !cur.done {
			return false
		}
	}
	return true
}

// CreateAccount registers a new virtual account and seeds its ledger from
// the configured balance sheet.
func (e *Engine) CreateAccount(cfg AccountConfig) (*Account, error) {
	if cfg.ID == "" {
		cfg.ID = id.New()
	}
	if cfg.PrimaryAsset == "" {
		cfg.PrimaryAsset = "USD"
	}
	if _, exists := e.accounts[cfg.ID]; exists {
		return nil, fmt.Errorf("create account: id %s already in use", cfg.ID)
	}

	acct := &Account{
		id:           cfg.ID,
		ownerName:    cfg.OwnerName,
		primaryAsset: cfg.PrimaryAsset,
		engine:       e,
		ledger:       ledger.New(),
		symbols:      make(map[string]market.Symbol),
	}

	for asset, volume := range cfg.BalanceSheet {
		if err := acct.Deposit(asset, volume); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
	}

	e.accounts[cfg.ID] = acct
	e.accountOrder = append(e.accountOrder, acct)

	return acct, nil
}

func (e *Engine) Account(id string) (*Account, bool) {
	acct, ok := e.accounts[id]
	return acct, ok
}

// On registers a listener for an event type ("*" receives everything) and
// returns a token for RemoveListener.
func (e *Engine) On(eventType string, h Handler) int {
	return e.emitter.on(eventType, h)
}

func (e *Engine) RemoveListener(token int) {
	e.emitter.remove(token)
}

func (e *Engine) Orders() []*Order {
	return append([]*Order(nil), e.orderSeq...)
}

func (e *Engine) Trades() []*Trade {
	return append([]*Trade(nil), e.tradeSeq...)
}

func (e *Engine) Positions() []*Position {
	return append([]*Position(nil), e.positionSeq...)
}

func (e *Engine) PendingOrders() []*Order {
	var pending []*Order
	for _, o := range e.orderSeq {
		if o.Status == OrderStatusPending {
			pending = append(pending, o)
		}
	}
	return pending
}

func (e *Engine) OpenPositions() []*Position {
	var open []*Position
	for _, pos := range e.positionSeq {
		if pos.Status == PositionStatusOpen {
			open = append(open, pos)
		}
	}
	return open
}

func (e *Engine) OpenPositionByID(positionID string) *Position {
	pos, ok := e.positions[positionID]
	if !ok || pos.Status != PositionStatusOpen {
		return nil
	}
	return pos
}

func (e *Engine) SymbolBid(symbol string) (decimal.Decimal, error) {
	bid, _, err := e.symbolQuote(symbol)
	return bid, err
}

func (e *Engine) SymbolAsk(symbol string) (decimal.Decimal, error) {
	_, ask, err := e.symbolQuote(symbol)
	return ask, err
}

// symbolQuote resolves the current bid/ask for a symbol: the last
// processed tick, falling back to preloaded history at or before the
// clock.
func (e *Engine) symbolQuote(symbol string) (bid, ask decimal.Decimal, err error) {
	last, ok := e.lastTicks[symbol]
	if !ok {
		for _, t := range e.localTicks[symbol] {
			if !t.Time.After(e.clock) {
				last = t
				ok = true
			}
		}
		if ok {
			e.lastTicks[symbol] = last
		}
	}
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrNoQuotes)
	}
	return last.Bid, last.Ask, nil
}

// AddSymbolTicks preloads tick history, keeping it time-sorted and capped
// at the saved-ticks limit.
func (e *Engine) AddSymbolTicks(symbol string, ticks []market.Tick) {
	merged := append(e.localTicks[symbol], ticks...)
	sortTicksByTime(merged)
	if e.savedTicksLimit > 0 && len(merged) > e.savedTicksLimit {
		merged = merged[len(merged)-e.savedTicksLimit:]
	}
	e.localTicks[symbol] = merged
}

// AddSymbolPeriods preloads period history for the periods' timeframe.
func (e *Engine) AddSymbolPeriods(symbol string, periods []market.Period) {
	if len(periods) == 0 {
		return
	}
	key := periodKey{symbol: symbol, timeframe: periods[0].Timeframe}
	merged := append(e.localPeriods[key], periods...)
	sortPeriodsByStart(merged)
	if e.savedPeriodsLimit > 0 && len(merged) > e.savedPeriodsLimit {
		merged = merged[len(merged)-e.savedPeriodsLimit:]
	}
	e.localPeriods[key] = merged
}

func (e *Engine) SymbolTicks(symbol string) []market.Tick {
	return append([]market.Tick(nil), e.localTicks[symbol]...)
}

func (e *Engine) SymbolPeriods(symbol string, tf market.Timeframe) []market.Period {
	key := periodKey{symbol: symbol, timeframe: tf}
	return append([]market.Period(nil), e.localPeriods[key]...)
}

func (e *Engine) saveTick(t market.Tick) {
	ticks := append(e.localTicks[t.Symbol], t)
	if e.savedTicksLimit > 0 && len(ticks) > e.savedTicksLimit {
		ticks = ticks[len(ticks)-e.savedTicksLimit:]
	}
	e.localTicks[t.Symbol] = ticks
}

func (e *Engine) savePeriod(p market.Period) {
	key := periodKey{symbol: p.Symbol, timeframe: p.Timeframe}
	periods := append(e.localPeriods[key], p)
	if e.savedPeriodsLimit > 0 && len(periods) > e.savedPeriodsLimit {
		periods = periods[len(periods)-e.savedPeriodsLimit:]
	}
	e.localPeriods[key] = periods
}
