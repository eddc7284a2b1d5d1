// Package config loads and validates replay run configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tradeworks/playback/market"
)

// Config represents a complete replay run configuration.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Symbols    []SymbolConfig   `json:"symbols" yaml:"symbols"`
	Feeds      FeedsConfig      `json:"feeds" yaml:"feeds"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters. Balance sheet
// values are decimal strings keyed by asset.
type AccountConfig struct {
	ID           string            `json:"id" yaml:"id"`
	Owner        string            `json:"owner,omitempty" yaml:"owner,omitempty"`
	PrimaryAsset string            `json:"primary_asset" yaml:"primary_asset"`
	BalanceSheet map[string]string `json:"balance_sheet" yaml:"balance_sheet"`
}

// SymbolConfig describes a tradable instrument.
type SymbolConfig struct {
	Symbol     string `json:"symbol" yaml:"symbol"`
	BaseAsset  string `json:"base_asset" yaml:"base_asset"`
	QuoteAsset string `json:"quote_asset" yaml:"quote_asset"`
	LotUnits   string `json:"lot_units,omitempty" yaml:"lot_units,omitempty"`
	Digits     int    `json:"digits,omitempty" yaml:"digits,omitempty"`
}

// FeedsConfig lists the data files driving the replay.
type FeedsConfig struct {
	Ticks   []TickFeedConfig   `json:"ticks,omitempty" yaml:"ticks,omitempty"`
	Periods []PeriodFeedConfig `json:"periods,omitempty" yaml:"periods,omitempty"`
}

type TickFeedConfig struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	File   string    `json:"file" yaml:"file"`
	From   time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To     time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}

type PeriodFeedConfig struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Timeframe string    `json:"timeframe" yaml:"timeframe"` // e.g. "M1", "H1"
	File      string    `json:"file" yaml:"file"`
	From      time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To        time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}

// SimulationConfig contains engine parameters.
type SimulationConfig struct {
	StartTime         time.Time        `json:"start_time" yaml:"start_time"`
	Step              string           `json:"step,omitempty" yaml:"step,omitempty"` // e.g. "1m", defaults to 1m
	WaitConfirmation  bool             `json:"wait_confirmation,omitempty" yaml:"wait_confirmation,omitempty"`
	SavedTicksLimit   int              `json:"saved_ticks_limit,omitempty" yaml:"saved_ticks_limit,omitempty"`
	SavedPeriodsLimit int              `json:"saved_periods_limit,omitempty" yaml:"saved_periods_limit,omitempty"`
	Commission        CommissionConfig `json:"commission,omitempty" yaml:"commission,omitempty"`
}

// CommissionConfig is a flat per-trade commission. Empty PerTrade means no
// commission.
type CommissionConfig struct {
	Asset    string `json:"asset,omitempty" yaml:"asset,omitempty"`
	PerTrade string `json:"per_trade,omitempty" yaml:"per_trade,omitempty"`
}

// StrategyConfig names the strategy to run and its parameters.
type StrategyConfig struct {
	Name   string            `json:"name" yaml:"name"`
	Symbol string            `json:"symbol" yaml:"symbol"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// StepDuration parses the simulation step, defaulting to one minute.
func (s SimulationConfig) StepDuration() (time.Duration, error) {
	if s.Step == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(s.Step)
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (format chosen by extension).
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is well formed. Decimal strings
// are parsed here so a typo fails at load rather than mid-replay.
func (c *Config) Validate() error {
	if c.Account.PrimaryAsset == "" {
		return fmt.Errorf("account.primary_asset is required")
	}
	for asset, volume := range c.Account.BalanceSheet {
		v, err := decimal.NewFromString(volume)
		if err != nil {
			return fmt.Errorf("account.balance_sheet[%s]: bad volume %q", asset, volume)
		}
		if v.IsNegative() {
			return fmt.Errorf("account.balance_sheet[%s] must not be negative", asset)
		}
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := make(map[string]bool)
	for _, s := range c.Symbols {
		if s.Symbol == "" || s.BaseAsset == "" || s.QuoteAsset == "" {
			return fmt.Errorf("symbol %q: symbol, base_asset and quote_asset are required", s.Symbol)
		}
		if seen[s.Symbol] {
			return fmt.Errorf("symbol %q is listed twice", s.Symbol)
		}
		seen[s.Symbol] = true
		if s.LotUnits != "" {
			v, err := decimal.NewFromString(s.LotUnits)
			if err != nil || !v.IsPositive() {
				return fmt.Errorf("symbol %q: lot_units must be a positive decimal", s.Symbol)
			}
		}
	}

	for _, f := range c.Feeds.Ticks {
		if f.Symbol == "" || f.File == "" {
			return fmt.Errorf("tick feed: symbol and file are required")
		}
		if !seen[f.Symbol] {
			return fmt.Errorf("tick feed for unknown symbol %q", f.Symbol)
		}
	}
	for _, f := range c.Feeds.Periods {
		if f.Symbol == "" || f.File == "" {
			return fmt.Errorf("period feed: symbol and file are required")
		}
		if !seen[f.Symbol] {
			return fmt.Errorf("period feed for unknown symbol %q", f.Symbol)
		}
		if _, err := market.ParseTimeframe(f.Timeframe); err != nil {
			return fmt.Errorf("period feed %s: %w", f.Symbol, err)
		}
	}

	if _, err := c.Simulation.StepDuration(); err != nil {
		return fmt.Errorf("simulation.step: %w", err)
	}
	if c.Simulation.Commission.PerTrade != "" {
		v, err := decimal.NewFromString(c.Simulation.Commission.PerTrade)
		if err != nil || v.IsNegative() {
			return fmt.Errorf("simulation.commission.per_trade must be a non-negative decimal")
		}
	}

	if c.Strategy.Name != "" && c.Strategy.Symbol == "" {
		return fmt.Errorf("strategy.symbol is required when a strategy is set")
	}
	if c.Strategy.Symbol != "" && !seen[c.Strategy.Symbol] {
		return fmt.Errorf("strategy for unknown symbol %q", c.Strategy.Symbol)
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	return nil
}

// BalanceSheet converts the account balance sheet to decimals. Call after
// Validate.
func (c *Config) BalanceSheet() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.Account.BalanceSheet))
	for asset, volume := range c.Account.BalanceSheet {
		out[asset] = decimal.RequireFromString(volume)
	}
	return out
}

// MarketSymbols converts the symbol list to market symbols. Call after
// Validate.
func (c *Config) MarketSymbols() []market.Symbol {
	out := make([]market.Symbol, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		sym := market.Symbol{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Digits:     s.Digits,
		}
		if s.LotUnits != "" {
			sym.LotUnits = decimal.RequireFromString(s.LotUnits)
		}
		out = append(out, sym)
	}
	return out
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:           "SIM-001",
			PrimaryAsset: "USD",
			BalanceSheet: map[string]string{"USD": "100000"},
		},
		Symbols: []SymbolConfig{{
			Symbol:     "EURUSD",
			BaseAsset:  "EUR",
			QuoteAsset: "USD",
			Digits:     5,
		}},
		Simulation: SimulationConfig{
			Step: "1m",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}
