package services

import (
	"time"

	"service-advisor/internal/models"
)

var defaultIntervals = []models.ServiceInterval{
	{
		Area:     models.AreaEngineOil,
		Distance: &models.DistancePeriod{EveryKm: 15000, ApproachingKm: 2000},
		Time:     &models.TimePeriod{EveryMonths: 12, ApproachingMonths: 2},
	},
	{
		Area:     models.AreaAirFilter,
		Distance: &models.DistancePeriod{EveryKm: 30000, ApproachingKm: 3000},
		Time:     &models.TimePeriod{EveryMonths: 24, ApproachingMonths: 3},
	},
	{
		Area:     models.AreaCabinFilter,
		Distance: &models.DistancePeriod{EveryKm: 15000, ApproachingKm: 2000},
		Time:     &models.TimePeriod{EveryMonths: 12, ApproachingMonths: 2},
	},
	{
		Area: models.AreaBrakeFluid,
		Time: &models.TimePeriod{EveryMonths: 24, ApproachingMonths: 3},
	},
	{
		Area: models.AreaCoolant,
		Time: &models.TimePeriod{EveryMonths: 60, ApproachingMonths: 6},
	},
	{
		Area: models.AreaBattery,
		Time: &models.TimePeriod{EveryMonths: 48, ApproachingMonths: 6},
	},
	// Condition based, no fixed cadence.
	{Area: models.AreaBrakes},
	{Area: models.AreaTiming},
	{
		Area:     models.AreaInspection,
		Distance: &models.DistancePeriod{EveryKm: 15000, ApproachingKm: 2000},
		Time:     &models.TimePeriod{EveryMonths: 12, ApproachingMonths: 2},
	},
}

// DefaultIntervals returns a copy of the built-in interval catalog.
func DefaultIntervals() []models.ServiceInterval {
	out := make([]models.ServiceInterval, len(defaultIntervals))
	copy(out, defaultIntervals)
	return out
}

// IntervalFor looks up the catalog entry for an area.
func IntervalFor(area models.ServiceArea) (models.ServiceInterval, bool) {
	for _, interval := range defaultIntervals {
		if interval.Area == area {
			return interval, true
		}
	}
	return models.ServiceInterval{}, false
}

// Evaluate classifies one area given the current odometer reading, the last
// recorded service and the area's cadence.
func Evaluate(currentKm int, last models.LastServiceObservation, interval models.ServiceInterval, now time.Time) models.ServiceStatus {
	if !interval.HasCadence() {
		return models.StatusUnknown
	}

	distance := evaluateDistance(currentKm, last.OdometerKm, interval.Distance)
	elapsed := evaluateTime(now, last.PerformedAt, interval.Time)

	return combine(distance, elapsed)
}

func evaluateDistance(currentKm int, lastKm *int, period *models.DistancePeriod) models.ServiceStatus {
	if period == nil {
		return models.StatusOk
	}
	if lastKm == nil {
		return models.StatusUnknown
	}

	dueAt := *lastKm + period.EveryKm
	if currentKm >= dueAt {
		return models.StatusUrgent
	}
	if currentKm >= dueAt-max(period.ApproachingKm, 0) {
		return models.StatusApproaching
	}
	return models.StatusOk
}

func evaluateTime(now time.Time, lastAt *time.Time, period *models.TimePeriod) models.ServiceStatus {
	if period == nil {
		return models.StatusOk
	}
	if lastAt == nil {
		return models.StatusUnknown
	}

	dueAt := addMonths(*lastAt, period.EveryMonths)
	if !now.Before(dueAt) {
		return models.StatusUrgent
	}
	if !now.Before(addMonths(dueAt, -max(period.ApproachingMonths, 0))) {
		return models.StatusApproaching
	}
	return models.StatusOk
}

// combine merges the two axes: Unknown on either side wins, otherwise the
// more severe status does.
func combine(a, b models.ServiceStatus) models.ServiceStatus {
	if a == models.StatusUnknown || b == models.StatusUnknown {
		return models.StatusUnknown
	}
	return max(a, b)
}

// addMonths moves t by calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month is Feb 28 or 29).
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, minute, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
