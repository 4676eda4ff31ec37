package models

import (
	"fmt"
	"strings"
	"time"
)

type ServiceArea string

// Service areas tracked by the rules catalog
const (
	AreaEngineOil   ServiceArea = "engine_oil"
	AreaTiming      ServiceArea = "timing"
	AreaBrakes      ServiceArea = "brakes"
	AreaAirFilter   ServiceArea = "air_filter"
	AreaCabinFilter ServiceArea = "cabin_filter"
	AreaBrakeFluid  ServiceArea = "brake_fluid"
	AreaCoolant     ServiceArea = "coolant"
	AreaBattery     ServiceArea = "battery"
	AreaInspection  ServiceArea = "inspection"
)

// AllServiceAreas lists every known area in catalog order.
var AllServiceAreas = []ServiceArea{
	AreaEngineOil,
	AreaAirFilter,
	AreaCabinFilter,
	AreaBrakeFluid,
	AreaCoolant,
	AreaBattery,
	AreaBrakes,
	AreaTiming,
	AreaInspection,
}

var areaDisplayNames = map[ServiceArea]string{
	AreaEngineOil:   "Engine oil",
	AreaTiming:      "Timing",
	AreaBrakes:      "Brakes",
	AreaAirFilter:   "Air filter",
	AreaCabinFilter: "Cabin filter",
	AreaBrakeFluid:  "Brake fluid",
	AreaCoolant:     "Coolant",
	AreaBattery:     "Battery",
	AreaInspection:  "General inspection",
}

func (a ServiceArea) DisplayName() string {
	if name, ok := areaDisplayNames[a]; ok {
		return name
	}
	return string(a)
}

func (a ServiceArea) IsValid() bool {
	_, ok := areaDisplayNames[a]
	return ok
}

// ParseServiceArea accepts the canonical identifier in any case.
func ParseServiceArea(s string) (ServiceArea, error) {
	area := ServiceArea(strings.ToLower(strings.TrimSpace(s)))
	if !area.IsValid() {
		return "", fmt.Errorf("unknown service area %q", s)
	}
	return area, nil
}

// ServiceStatus is ordered: Unknown < Ok < Approaching < Urgent.
type ServiceStatus int

const (
	StatusUnknown ServiceStatus = iota
	StatusOk
	StatusApproaching
	StatusUrgent
)

var statusNames = [...]string{"unknown", "ok", "approaching", "urgent"}

func (s ServiceStatus) String() string {
	if s < StatusUnknown || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

func (s ServiceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ServiceStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if strings.EqualFold(name, string(text)) {
			*s = ServiceStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown service status %q", string(text))
}

type DistancePeriod struct {
	EveryKm       int `json:"everyKm"`
	ApproachingKm int `json:"approachingKm"`
}

type TimePeriod struct {
	EveryMonths       int `json:"everyMonths"`
	ApproachingMonths int `json:"approachingMonths"`
}

// ServiceInterval is the cadence for one area. Either period may be nil.
type ServiceInterval struct {
	Area     ServiceArea     `json:"area"`
	Distance *DistancePeriod `json:"distance,omitempty"`
	Time     *TimePeriod     `json:"time,omitempty"`
}

func (i ServiceInterval) HasCadence() bool {
	return i.Distance != nil || i.Time != nil
}

type LastServiceObservation struct {
	OdometerKm  *int       `json:"odometerKm,omitempty"`
	PerformedAt *time.Time `json:"performedAt,omitempty"`
}

type ServiceRecord struct {
	ID          int64       `json:"id" bson:"_id"`
	VehicleID   int64       `json:"vehicleId" bson:"vehicle_id"`
	Area        ServiceArea `json:"area" bson:"area"`
	OdometerKm  *int        `json:"odometerKm,omitempty" bson:"odometer_km,omitempty"`
	PerformedAt *time.Time  `json:"performedAt,omitempty" bson:"performed_at,omitempty"`
	Notes       string      `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt   time.Time   `json:"createdAt" bson:"created_at"`
}

func (r *ServiceRecord) Observation() LastServiceObservation {
	return LastServiceObservation{
		OdometerKm:  r.OdometerKm,
		PerformedAt: r.PerformedAt,
	}
}

type ServiceRecommendation struct {
	Area          ServiceArea   `json:"area"`
	Status        ServiceStatus `json:"status"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	NextAction    string        `json:"nextAction"`
	DeferredCheck string        `json:"deferredCheck"`
}

type VehicleAnalysis struct {
	VehicleID         int64                   `json:"vehicleId"`
	Title             string                  `json:"title"`
	CurrentOdometerKm int                     `json:"currentOdometerKm"`
	EvaluatedAt       time.Time               `json:"evaluatedAt"`
	Items             []ServiceRecommendation `json:"items"`
}

// DoNow returns the items that need immediate attention.
func (a *VehicleAnalysis) DoNow() []ServiceRecommendation {
	return a.withStatus(StatusUrgent)
}

// CheckSoon returns the items that are coming due.
func (a *VehicleAnalysis) CheckSoon() []ServiceRecommendation {
	return a.withStatus(StatusApproaching)
}

func (a *VehicleAnalysis) withStatus(status ServiceStatus) []ServiceRecommendation {
	var out []ServiceRecommendation
	for _, item := range a.Items {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out
}
