package main

import (
	"errors"

	"service-advisor/internal/app"

	"github.com/spf13/cobra"
)

var analyzeVehicleID int64

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show the rules-based service status of a vehicle",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeVehicleID <= 0 {
			return errors.New("--vehicle is required")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			analysis, err := a.Maintenance.AnalyzeVehicle(cmd.Context(), analyzeVehicleID)
			if err != nil {
				return err
			}
			renderAnalysis(cmd.OutOrStdout(), analysis)
			return nil
		})
	},
}

func init() {
	analyzeCmd.Flags().Int64Var(&analyzeVehicleID, "vehicle", 0, "Vehicle id.")
}
