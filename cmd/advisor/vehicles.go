package main

import (
	"errors"

	"service-advisor/internal/app"

	"github.com/spf13/cobra"
)

var (
	vehiclesOwner  string
	historyVehicle int64
)

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "List the vehicles of an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		if vehiclesOwner == "" {
			return errors.New("--owner is required")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			vehicles, err := a.Vehicles.FindByOwner(cmd.Context(), vehiclesOwner)
			if err != nil {
				return err
			}
			renderVehicles(cmd.OutOrStdout(), vehicles)
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the recorded services of a vehicle, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyVehicle <= 0 {
			return errors.New("--vehicle is required")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			records, err := a.History.FindByVehicleID(cmd.Context(), historyVehicle)
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), records)
			return nil
		})
	},
}

func init() {
	vehiclesCmd.Flags().StringVar(&vehiclesOwner, "owner", "", "Owner id.")
	historyCmd.Flags().Int64Var(&historyVehicle, "vehicle", 0, "Vehicle id.")
}
