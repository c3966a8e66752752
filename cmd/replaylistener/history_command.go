package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"replaylistener/internal/history"
	"replaylistener/internal/summary"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batch summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			path := cfg.HistoryPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			batches, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(batches) == 0 {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				rows = append(rows, []string{
					humanize.Time(b.CreatedAt),
					shortRunID(b.RunID),
					strconv.Itoa(b.Page),
					b.Label,
					strconv.Itoa(b.OK),
					strconv.Itoa(b.Exists),
					strconv.Itoa(b.Fail),
					fmt.Sprintf("%.2fs", b.Elapsed.Seconds()),
					fmt.Sprintf("%.2f", batchRPS(b)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "Run", "Page", "Stage", "OK", "Exists", "Fail", "Time", "RPS"},
				rows,
				nil,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to show")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func batchRPS(b history.Batch) float64 {
	return summary.Summary{Label: b.Label, OK: b.OK, Fail: b.Fail, Elapsed: b.Elapsed}.RPS()
}
