package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/metalagman/caretaker/internal/db"
	"github.com/metalagman/caretaker/internal/history"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int
	var events string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent agent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			store, err := history.Open(filepath.Join(root, db.DefaultPath))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if events != "" {
				evs, err := store.Events(cmd.Context(), events)
				if err != nil {
					return err
				}
				for _, ev := range evs {
					fmt.Fprintf(out, "%3d %s %-18s %s\n", ev.Seq, ev.Time.Format(time.RFC3339), ev.Type, ev.Message)
				}
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("no runs recorded"))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tAGENT\tTARGET\tSTATUS\tATTEMPTS\tCOST")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Agent, r.Target, r.Status, r.Attempts, r.Cost)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&events, "events", "", "show the event timeline of this run id")
	cmd.AddCommand(historyPruneCmd())
	return cmd
}

func historyPruneCmd() *cobra.Command {
	var keepLast, keepDays int
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old runs from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy := history.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days")
			}
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			store, err := history.Open(filepath.Join(root, db.DefaultPath))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			res, err := store.Prune(cmd.Context(), policy, dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Msgf("%s %d runs (kept %d)", mode, res.Deleted, res.Kept)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
