package models

import (
	"fmt"
	"strings"
	"time"
)

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelLPG      FuelType = "lpg"
)

var fuelDisplayNames = map[FuelType]string{
	FuelPetrol:   "Petrol",
	FuelDiesel:   "Diesel",
	FuelHybrid:   "Hybrid",
	FuelElectric: "Electric",
	FuelLPG:      "LPG",
}

func (f FuelType) DisplayName() string {
	if name, ok := fuelDisplayNames[f]; ok {
		return name
	}
	return string(f)
}

func (f FuelType) IsValid() bool {
	_, ok := fuelDisplayNames[f]
	return ok
}

func ParseFuelType(s string) (FuelType, error) {
	fuel := FuelType(strings.ToLower(strings.TrimSpace(s)))
	if !fuel.IsValid() {
		return "", fmt.Errorf("unknown fuel type %q", s)
	}
	return fuel, nil
}

type Vehicle struct {
	ID                int64     `bson:"_id" json:"id"`
	OwnerID           string    `bson:"owner_id" json:"ownerId"`
	Brand             string    `bson:"brand" json:"brand" validate:"required"`
	Model             string    `bson:"model" json:"model" validate:"required"`
	Year              int       `bson:"year" json:"year" validate:"min=1900,max=2100"`
	VIN               string    `bson:"vin,omitempty" json:"vin,omitempty"`
	FuelType          FuelType  `bson:"fuel_type" json:"fuelType"`
	CurrentOdometerKm *int      `bson:"current_odometer_km,omitempty" json:"currentOdometerKm,omitempty"`
	CreatedAt         time.Time `bson:"created_at" json:"createdAt"`
}

func (v *Vehicle) DisplayName() string {
	return fmt.Sprintf("%s %s (%d)", v.Brand, v.Model, v.Year)
}

// Context returns the attributes the advisory subsystem works with.
func (v *Vehicle) Context() VehicleContext {
	return VehicleContext{
		Brand:    v.Brand,
		Model:    v.Model,
		Year:     v.Year,
		FuelType: v.FuelType,
	}
}

type VehicleContext struct {
	Brand    string   `json:"brand" validate:"required,max=64"`
	Model    string   `json:"model" validate:"required,max=64"`
	Year     int      `json:"year" validate:"min=1900,max=2100"`
	FuelType FuelType `json:"fuelType" validate:"oneof=petrol diesel hybrid electric lpg"`
}
