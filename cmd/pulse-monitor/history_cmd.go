package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/pulse-monitor/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent recorded measurements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.DBPath == "" {
			return fmt.Errorf("history disabled: --db is empty")
		}
		store, err := history.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return printHistory(cmd.Context(), cmd.OutOrStdout(), store, historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to print")
}

type historySource interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

func printHistory(ctx context.Context, w io.Writer, src historySource, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := src.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no measurements recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tBPM")
	for _, e := range entries {
		bpm := "-"
		if e.BPM > 0 {
			bpm = fmt.Sprint(e.BPM)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Local().Format(time.RFC3339), e.Status, bpm)
	}
	return tw.Flush()
}
