package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "playback",
	Short: "A deterministic market replay simulator for trading research",
	Long: `Playback replays historical tick and candle data against virtual
trading accounts, with broker-grade order matching and accounting.

It provides tools for:
  - Replaying tick and candle datasets on a virtual clock
  - Running tick-driven strategies against simulated accounts
  - Stop-loss / take-profit protection and liquidation handling
  - Journaling trades and equity curves to CSV or SQLite
  - Aggregate trade statistics (profit factor, streaks, win rate)`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
