package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/ecosim/sim"
	"github.com/pthm-cable/ecosim/storage"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation, saving after every stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stdout)

			store, err := storage.FromConfig(cfg.Storage)
			if err != nil {
				return err
			}
			defer func() {
				if err := storage.CloseIfSupported(store); err != nil {
					logger.Warn("failed to close store", "error", err)
				}
			}()

			outputDir, _ := cmd.Flags().GetString("output-dir")
			s, err := sim.New(cfg, store, sim.Options{Logger: logger, OutputDir: outputDir})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.Bootstrap(ctx); err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			if err := s.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("interrupted", "stage", s.Stage())
					return nil
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().Int("stages", 0, "Stages to run (0 = until interrupted; default from config)")
	cmd.Flags().Float64("stage-delay", 0, "Seconds between stages (default from config)")
	cmd.Flags().Int64("seed", 0, "RNG seed (0 = time-based)")
	cmd.Flags().Int("workers", 1, "Environments stepped concurrently")
	cmd.Flags().Bool("log-stats", false, "Log per-stage stats via slog")
	cmd.Flags().String("output-dir", "", "Output directory for CSV logs and config snapshot")

	return cmd
}
