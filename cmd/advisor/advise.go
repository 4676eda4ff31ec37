package main

import (
	"errors"

	"service-advisor/internal/app"
	"service-advisor/internal/models"
	"service-advisor/internal/services"

	"github.com/spf13/cobra"
)

var (
	adviseVehicleID int64
	adviseArea      string
	adviseAll       bool

	adviseBrand string
	adviseModel string
	adviseYear  int
	adviseFuel  string
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Ask for indicative service advice for a vehicle",
	Long: `advise asks the configured advisory provider about one service area,
or every area with --all. Answers are cached for a week when AI is enabled.

With --brand, --model, --year and --fuel the vehicle details are taken from
the flags instead of the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adviseVehicleID <= 0 {
			return errors.New("--vehicle is required")
		}
		if adviseAll == (adviseArea != "") {
			return errors.New("exactly one of --area or --all is required")
		}

		var area models.ServiceArea
		if !adviseAll {
			var err error
			if area, err = models.ParseServiceArea(adviseArea); err != nil {
				return err
			}
		}

		adHoc := adviseBrand != "" || adviseModel != "" || adviseFuel != ""
		if adHoc && adviseAll {
			return errors.New("--all cannot be combined with vehicle detail flags")
		}
		var fuel models.FuelType
		if adHoc {
			var err error
			if fuel, err = models.ParseFuelType(adviseFuel); err != nil {
				return err
			}
		}

		return withApp(cmd.Context(), func(a *app.App) error {
			if adviseAll {
				results, err := a.Advisory.AdviseAll(cmd.Context(), adviseVehicleID)
				if err != nil {
					return err
				}
				renderAdviceList(cmd.OutOrStdout(), results)
				return nil
			}

			var (
				result *models.AdvisoryResult
				err    error
			)
			if adHoc {
				result, err = a.Advisory.GetAdvice(cmd.Context(), adviseVehicleID, adviseBrand, adviseModel, adviseYear, fuel, area)
			} else {
				result, err = a.Advisory.GetVehicleAdvice(cmd.Context(), adviseVehicleID, area)
			}
			if err != nil {
				return err
			}
			renderAdviceList(cmd.OutOrStdout(), []services.AreaAdvice{{Area: area, Result: result}})
			return nil
		})
	},
}

func init() {
	adviseCmd.Flags().Int64Var(&adviseVehicleID, "vehicle", 0, "Vehicle id.")
	adviseCmd.Flags().StringVar(&adviseArea, "area", "", "Service area, e.g. engine_oil.")
	adviseCmd.Flags().BoolVar(&adviseAll, "all", false, "Advise on every service area.")
	adviseCmd.Flags().StringVar(&adviseBrand, "brand", "", "Vehicle brand.")
	adviseCmd.Flags().StringVar(&adviseModel, "model", "", "Vehicle model.")
	adviseCmd.Flags().IntVar(&adviseYear, "year", 0, "Model year.")
	adviseCmd.Flags().StringVar(&adviseFuel, "fuel", "", "Fuel type: petrol, diesel, hybrid, electric or lpg.")
}
