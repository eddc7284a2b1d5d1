package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tradeworks/playback/backtest"
	"github.com/tradeworks/playback/config"
	"github.com/tradeworks/playback/feed"
	"github.com/tradeworks/playback/internal/id"
	"github.com/tradeworks/playback/journal"
	"github.com/tradeworks/playback/market"
	"github.com/tradeworks/playback/sim"
	"github.com/tradeworks/playback/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a dataset from a config file",
	Long: `Replay historical data against a virtual account using settings from
a configuration file.

The config file specifies the account, symbols, data feeds, strategy and
journal destination.

Example:
  playback run --config run.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runReportPath string
	runVerbose    bool
	runCloseEnd   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "write an org-mode run report to this path")
	runCmd.Flags().BoolVar(&runCloseEnd, "close-end", true, "close open positions when the data ends")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "enable debug logging")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := buildLogger(runVerbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	engine := sim.NewEngine(sim.EngineConfig{
		StartTime:         cfg.Simulation.StartTime,
		SavedTicksLimit:   cfg.Simulation.SavedTicksLimit,
		SavedPeriodsLimit: cfg.Simulation.SavedPeriodsLimit,
		Logger:            log,
	})
	if cfg.Simulation.WaitConfirmation {
		engine.SetWaitFeedConfirmation(true)
	}
	if per := cfg.Simulation.Commission.PerTrade; per != "" {
		asset := cfg.Simulation.Commission.Asset
		if asset == "" {
			asset = cfg.Account.PrimaryAsset
		}
		amount := decimal.RequireFromString(per)
		engine.SetCommissionCustomizer(func(o *sim.Order, snapshot sim.TradeSnapshot) (string, decimal.Decimal) {
			return asset, amount
		})
	}

	acct, err := engine.CreateAccount(sim.AccountConfig{
		ID:           cfg.Account.ID,
		OwnerName:    cfg.Account.Owner,
		PrimaryAsset: cfg.Account.PrimaryAsset,
		BalanceSheet: cfg.BalanceSheet(),
	})
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	for _, sym := range cfg.MarketSymbols() {
		if err := acct.AddSymbol(sym); err != nil {
			return err
		}
	}
	startBalance := acct.Balance()

	for _, fc := range cfg.Feeds.Ticks {
		src, err := feed.NewCSVTicks(fc.File, fc.Symbol, fc.From, fc.To)
		if err != nil {
			return fmt.Errorf("open tick feed %s: %w", fc.File, err)
		}
		defer src.Close()
		engine.SetTickSource(fc.Symbol, src)
	}
	for _, fc := range cfg.Feeds.Periods {
		tf, err := market.ParseTimeframe(fc.Timeframe)
		if err != nil {
			return err
		}
		src, err := feed.NewCSVPeriods(fc.File, fc.Symbol, tf, fc.From, fc.To)
		if err != nil {
			return fmt.Errorf("open period feed %s: %w", fc.File, err)
		}
		defer src.Close()
		engine.SetPeriodSource(fc.Symbol, tf, src)
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Symbol, cfg.Strategy.Params)
	if err != nil {
		return err
	}

	jnl, err := buildJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jnl.Close()

	step, err := cfg.Simulation.StepDuration()
	if err != nil {
		return err
	}

	runner := &backtest.Runner{
		Engine:   engine,
		Account:  acct,
		Strategy: strat,
		Journal:  jnl,
		Step:     step,
		Options:  backtest.RunnerOptions{CloseEnd: runCloseEnd},
		Logger:   log,
	}

	result, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Replay finished: %s to %s\n",
		result.Start.Format("2006-01-02 15:04:05"),
		result.End.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Balance: %s %s (started with %s)\n",
		result.Balance.StringFixed(2), cfg.Account.PrimaryAsset, startBalance.StringFixed(2))
	fmt.Printf("  Equity: %s\n", result.Equity.StringFixed(2))
	fmt.Printf("  Trades: %d (%d wins, %d losses)\n",
		result.Summary.Trades, result.Summary.WinningTrades, result.Summary.LosingTrades)
	if !result.Summary.ProfitFactor.IsZero() {
		fmt.Printf("  Profit factor: %s\n", result.Summary.ProfitFactor)
	}

	if runReportPath != "" {
		report := &backtest.Report{
			RunID:        id.New(),
			Strategy:     cfg.Strategy.Name,
			Symbol:       cfg.Strategy.Symbol,
			Dataset:      runConfigPath,
			StartBalance: startBalance.StringFixed(2),
			Result:       result,
		}
		if err := report.WriteFile(runReportPath); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", runReportPath)
	}

	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func buildJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Discard, nil
	}
}
