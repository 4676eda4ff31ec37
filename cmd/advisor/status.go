package main

import (
	"errors"

	"service-advisor/internal/app"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the backing stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			report := a.Status(cmd.Context())
			renderStatus(cmd.OutOrStdout(), report)
			for _, component := range report {
				if !component.Healthy {
					return errors.New(component.Name + " is unhealthy")
				}
			}
			return nil
		})
	},
}
