// Package backtest wires an engine, an account, a strategy and a journal
// into a replay run.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradeworks/playback/journal"
	"github.com/tradeworks/playback/sim"
	"github.com/tradeworks/playback/stats"
	"github.com/tradeworks/playback/strategies"
)

// RunnerOptions controls how the runner behaves.
type RunnerOptions struct {
	// Close all open positions once the feeds are exhausted.
	CloseEnd bool
}

// Result summarizes a finished run.
type Result struct {
	Balance decimal.Decimal
	Equity  decimal.Decimal
	Summary stats.Summary
	Start   time.Time
	End     time.Time
}

// Runner drives an engine forward in fixed steps, invoking the strategy
// on every processed tick and journaling trades and equity as it goes.
// The engine's feed sources must already be registered.
type Runner struct {
	Engine   *sim.Engine
	Account  *sim.Account
	Strategy strategies.TickStrategy
	Journal  journal.Journal
	Step     time.Duration
	Options  RunnerOptions
	Logger   *zap.Logger
}

func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, fmt.Errorf("backtest: Engine is required")
	}
	if r.Account == nil {
		return Result{}, fmt.Errorf("backtest: Account is required")
	}
	if r.Strategy == nil {
		return Result{}, fmt.Errorf("backtest: Strategy is required")
	}

	jnl := r.Journal
	if jnl == nil {
		jnl = journal.Discard
	}
	step := r.Step
	if step <= 0 {
		step = time.Minute
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var (
		start, end time.Time
		runErr     error
	)

	tickToken := r.Engine.On(sim.EventTick, func(ev sim.Event) {
		// Acknowledge the feed gate on every path, including errors,
		// so a confirmation-gated engine never stalls mid-step.
		defer r.Engine.NextFeed()

		if runErr != nil {
			return
		}

		if start.IsZero() {
			start = ev.Time
		}
		end = ev.Time

		if err := r.Strategy.OnTick(ctx, r.Account, *ev.Tick); err != nil {
			runErr = fmt.Errorf("strategy: %w", err)
			return
		}

		equity, err := r.Account.Equity()
		if err != nil {
			runErr = err
			return
		}
		if err := jnl.RecordEquity(journal.EquitySnapshot{
			Time:    ev.Time,
			Balance: r.Account.Balance(),
			Equity:  equity,
		}); err != nil {
			runErr = fmt.Errorf("journal equity: %w", err)
		}
	})
	defer r.Engine.RemoveListener(tickToken)

	// Period events are gated independently of ticks.
	periodToken := r.Engine.On(sim.EventPeriodUpdate, func(sim.Event) { r.Engine.NextFeed() })
	defer r.Engine.RemoveListener(periodToken)
	closeToken := r.Engine.On(sim.EventPeriodClose, func(sim.Event) { r.Engine.NextFeed() })
	defer r.Engine.RemoveListener(closeToken)

	tradeToken := r.Engine.On(sim.EventTrade, func(ev sim.Event) {
		if runErr != nil {
			return
		}
		if err := jnl.RecordTrade(journal.FromTrade(ev.Trade)); err != nil {
			runErr = fmt.Errorf("journal trade: %w", err)
		}
	})
	defer r.Engine.RemoveListener(tradeToken)

	for !r.Engine.Exhausted() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if _, err := r.Engine.ElapseTime(step); err != nil {
			return Result{}, err
		}
		if runErr != nil {
			return Result{}, runErr
		}
	}

	if r.Options.CloseEnd {
		for _, pos := range r.Account.OpenPositions() {
			if _, err := pos.Close(ctx); err != nil {
				return Result{}, fmt.Errorf("close position %s: %w", pos.ID, err)
			}
		}
		if runErr != nil {
			return Result{}, runErr
		}
	}

	equity, err := r.Account.Equity()
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Balance: r.Account.Balance(),
		Equity:  equity,
		Summary: stats.Compute(r.Account.Trades()),
		Start:   start,
		End:     end,
	}

	log.Info("run finished",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("trades", result.Summary.Trades),
		zap.String("balance", result.Balance.String()),
	)

	return result, nil
}
