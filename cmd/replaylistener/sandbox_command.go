package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"replaylistener/internal/logging"
	"replaylistener/internal/staging"
	"replaylistener/internal/textutil"
)

func newSandboxCommand(ctx *commandContext) *cobra.Command {
	sandboxCmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Inspect or prune the sandbox staging roots",
	}
	sandboxCmd.AddCommand(newSandboxStatusCommand(ctx))
	sandboxCmd.AddCommand(newSandboxCleanCommand(ctx))
	return sandboxCmd
}

func newSandboxStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show staging root sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, 2)
			for _, root := range staging.Roots(cfg) {
				usage, err := staging.Measure(root)
				if err != nil {
					return fmt.Errorf("measure %s: %w", root.Path, err)
				}
				updated := "-"
				if !usage.Newest.IsZero() {
					updated = humanize.Time(usage.Newest)
				}
				rows = append(rows, []string{
					textutil.Title(root.Name),
					root.Path,
					yesNo(usage.Exists),
					strconv.Itoa(usage.Entries),
					humanize.Bytes(uint64(usage.Bytes)),
					updated,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Root", "Path", "Exists", "Entries", "Size", "Updated"},
				rows,
				nil,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newSandboxCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staging entries (all of them unless --older-than is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "sandbox")

			out := cmd.OutOrStdout()
			var removed, failed int
			for _, root := range staging.Roots(cfg) {
				result, err := staging.Clean(cmd.Context(), root.Path, olderThan, logger)
				if err != nil {
					return fmt.Errorf("clean %s: %w", root.Path, err)
				}
				removed += len(result.Removed)
				failed += len(result.Errors)
			}
			fmt.Fprintf(out, "Removed %d staging entr%s\n", removed, textutil.Ternary(removed == 1, "y", "ies"))
			if failed > 0 {
				return fmt.Errorf("%d staging entr%s could not be removed", failed, textutil.Ternary(failed == 1, "y", "ies"))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove entries last modified longer ago than this")
	return cmd
}
