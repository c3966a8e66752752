package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"replaylistener/internal/ledger"
	"replaylistener/internal/logging"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the downloaded-replay ledger",
	}
	ledgerCmd.AddCommand(newLedgerStatusCommand(ctx))
	return ledgerCmd
}

func newLedgerStatusCommand(ctx *commandContext) *cobra.Command {
	var sandbox bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize ledger entries and replay files per date folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			view := *cfg
			if cmd.Flags().Changed("sandbox") {
				view.Listener.Sandbox = sandbox
			}

			led := ledger.New(afero.NewOsFs(), view.DownloadRoot(), logging.NewNop())
			stats, err := led.Stats()
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Download root: %s\n", view.DownloadRoot())
			if len(stats.Folders) == 0 {
				fmt.Fprintln(out, "No listener folders found")
				return nil
			}

			tableRows := make([][]string, 0, len(stats.Folders))
			for _, f := range stats.Folders {
				tableRows = append(tableRows, []string{
					f.Name,
					strconv.Itoa(f.Entries),
					strconv.Itoa(f.Unique),
					strconv.Itoa(f.Malformed),
					strconv.Itoa(f.Files),
					humanize.Bytes(uint64(f.Bytes)),
				})
			}
			footer := []string{
				fmt.Sprintf("%d folder(s)", len(stats.Folders)),
				strconv.Itoa(stats.Entries),
				strconv.Itoa(stats.Unique),
				"",
				strconv.Itoa(stats.Files),
				humanize.Bytes(uint64(stats.Bytes)),
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Folder", "Entries", "Unique", "Malformed", "Files", "Size"},
				tableRows,
				footer,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "Inspect the staging download root")
	return cmd
}
