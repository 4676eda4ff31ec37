package main

import (
	"service-advisor/internal/services"

	"github.com/spf13/cobra"
)

var intervalsCmd = &cobra.Command{
	Use:   "intervals",
	Short: "List the built-in service interval catalog",
	Run: func(cmd *cobra.Command, args []string) {
		renderIntervals(cmd.OutOrStdout(), services.DefaultIntervals())
	},
}
