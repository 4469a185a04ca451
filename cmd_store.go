package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/ecosim/storage"
	"github.com/pthm-cable/ecosim/telemetry"
)

// openStore builds and initializes the configured store.
func openStore(cmd *cobra.Command) (storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := store.Init(cmd.Context()); err != nil {
		storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init %s store: %w", cfg.Storage.Kind, err)
	}
	return store, nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved ecosystem document",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer storage.CloseIfSupported(store)

			snap, ok, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved ecosystem.")
				return nil
			}

			data, err := telemetry.EncodeSnapshotJSON(snap)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved revisions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer storage.CloseIfSupported(store)

			limit, _ := cmd.Flags().GetInt("limit")
			revs, ok, err := storage.HistoryIfSupported(cmd.Context(), store, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "This store keeps only the latest document.")
				return nil
			}
			if len(revs) == 0 {
				fmt.Fprintln(out, "No revisions.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSAVED\tDESCRIPTION")
			for _, rev := range revs {
				fmt.Fprintf(w, "%d\t%s\t%s\n", rev.ID, rev.SavedAt.Format(time.RFC3339), rev.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum revisions to list (0 = all)")
	return cmd
}
