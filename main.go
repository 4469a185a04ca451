package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/ecosim/config"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ecosim",
		Short: "Stage-based ecosystem simulator",
		Long: `ecosim simulates environments of producers, consumers and decomposers
sharing a resource pool. State is saved to the configured store after
every stage and reloaded on the next run.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().String("store", "", "Store kind: memory, file, sqlite, postgres, github")
	rootCmd.PersistentFlags().String("store-dsn", "", "Store location (path, connection string or owner/repo)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newShowCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ecosim version %s\n", version)
		},
	}
}

// loadConfig initializes the global config from --config and applies the
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if err := config.Init(path); err != nil {
		return nil, err
	}
	cfg := config.Cfg()

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Storage.Kind, _ = flags.GetString("store")
	}
	if flags.Changed("store-dsn") {
		cfg.Storage.DSN, _ = flags.GetString("store-dsn")
	}
	if flags.Lookup("stages") != nil && flags.Changed("stages") {
		cfg.Simulation.Stages, _ = flags.GetInt("stages")
	}
	if flags.Lookup("stage-delay") != nil && flags.Changed("stage-delay") {
		cfg.Simulation.StageDelay, _ = flags.GetFloat64("stage-delay")
	}
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Simulation.Workers, _ = flags.GetInt("workers")
	}
	if flags.Lookup("log-stats") != nil && flags.Changed("log-stats") {
		cfg.Telemetry.LogStats, _ = flags.GetBool("log-stats")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating flags: %w", err)
	}
	cfg.ComputeDerived()
	return cfg, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Derived.LogLevel}
	if strings.EqualFold(cfg.Logging.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
