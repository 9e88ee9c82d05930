package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version       = "0.1.0"
	configPaths   []string
	pyroscopeAddr string
	failFast      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Deterministic bar-by-bar backtester",
		Long: `backtest replays historical OHLCV bars through a strategy and a
simulated cash/margin ledger, one bar at a time, and prints a JSON summary.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&pyroscopeAddr, "pyroscope", "", "Pyroscope server address for continuous profiling (disabled when empty)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backtest from a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBacktests(cmd.Context(), cmd.OutOrStdout(), []string{path}, false)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "config.yaml", "Path to the run configuration")
	return cmd
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run several independent backtests in parallel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(configPaths) == 0 {
				return fmt.Errorf("at least one -c/--config is required")
			}
			return runBacktests(cmd.Context(), cmd.OutOrStdout(), configPaths, failFast)
		},
	}
	cmd.Flags().StringArrayVarP(&configPaths, "config", "c", nil, "Run configuration (repeatable)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Cancel remaining runs after the first failure")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "backtest version %s\n", version)
		},
	}
}
