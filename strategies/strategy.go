// Package strategies contains tick-driven trading strategies for replay
// runs.
package strategies

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradeworks/playback/market"
	"github.com/tradeworks/playback/sim"
)

// TickStrategy is the minimal interface a replay strategy must implement.
// It is called once per processed tick.
type TickStrategy interface {
	OnTick(ctx context.Context, acct *sim.Account, tick market.Tick) error
}

// ByName builds a strategy from its config name and parameter map.
func ByName(name, symbol string, params map[string]string) (TickStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "noop", "none":
		return Noop{}, nil

	case "open-once":
		volume, err := paramDecimal(params, "volume", "1")
		if err != nil {
			return nil, err
		}
		return &OpenOnce{Symbol: symbol, Volume: volume}, nil

	case "ema-cross", "emacross":
		cfg := EMACrossConfig{Symbol: symbol}
		var err error
		if cfg.FastPeriod, err = paramInt(params, "fast", 10); err != nil {
			return nil, err
		}
		if cfg.SlowPeriod, err = paramInt(params, "slow", 30); err != nil {
			return nil, err
		}
		if cfg.Volume, err = paramDecimal(params, "volume", "1"); err != nil {
			return nil, err
		}
		if cfg.RiskPct, err = paramDecimal(params, "risk_pct", "0"); err != nil {
			return nil, err
		}
		if cfg.StopDistance, err = paramDecimal(params, "stop_distance", "0"); err != nil {
			return nil, err
		}
		if cfg.TakeDistance, err = paramDecimal(params, "take_distance", "0"); err != nil {
			return nil, err
		}
		return NewEMACross(cfg), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, open-once, ema-cross)", name)
	}
}

func paramDecimal(params map[string]string, key, fallback string) (decimal.Decimal, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		raw = fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("param %s: bad decimal %q", key, raw)
	}
	return v, nil
}

func paramInt(params map[string]string, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("param %s: bad integer %q", key, raw)
	}
	return v, nil
}
