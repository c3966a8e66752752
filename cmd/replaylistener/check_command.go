package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"replaylistener/internal/preflight"
	"replaylistener/internal/textutil"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify output directories and API reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			results := preflight.RunAll(cmd.Context(), cfg)

			lines := renderSectionHeader(textutil.Ternary(cfg.Listener.Sandbox, "Preflight (sandbox)", "Preflight"), colorize)
			for _, r := range results {
				kind := textutil.Ternary(r.Passed, statusOK, statusError)
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}
