package main

import (
	"time"

	"service-advisor/internal/app"

	"github.com/spf13/cobra"
)

var pruneEvery time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete advisory records that expired before the retention window",
	Long: `prune removes cached advice whose expiry is older than ADVISORY_RETENTION.
With --every it keeps running and prunes on that interval until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("every") {
			cfg.Advisor.PruneInterval = pruneEvery
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.Cleanup.Run(cmd.Context())
		})
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneEvery, "every", 0, "Keep running and prune on this interval.")
}
