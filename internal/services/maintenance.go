package services

import (
	"context"
	"errors"
	"fmt"

	"service-advisor/internal/models"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

var ErrOdometerUnknown = errors.New("current odometer reading is unknown")

// VehicleFinder loads vehicles by id.
type VehicleFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Vehicle, error)
}

// HistorySource yields the most recent service observation for an area.
// A vehicle without records for the area gets a zero observation.
type HistorySource interface {
	LatestObservation(ctx context.Context, vehicleID int64, area models.ServiceArea) (models.LastServiceObservation, error)
}

type MaintenanceService struct {
	vehicles  VehicleFinder
	history   HistorySource
	intervals []models.ServiceInterval
	clock     clockz.Clock
	logger    *zap.Logger
}

func NewMaintenanceService(vehicles VehicleFinder, history HistorySource, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		vehicles:  vehicles,
		history:   history,
		intervals: DefaultIntervals(),
		clock:     clockz.RealClock,
		logger:    logger,
	}
}

// SetClock replaces the clock used as "now" during evaluation.
func (s *MaintenanceService) SetClock(clock clockz.Clock) {
	s.clock = clock
}

// AnalyzeVehicle evaluates every catalog area for a vehicle and returns one
// recommendation per area, in catalog order.
func (s *MaintenanceService) AnalyzeVehicle(ctx context.Context, vehicleID int64) (*models.VehicleAnalysis, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.CurrentOdometerKm == nil {
		return nil, fmt.Errorf("vehicle %d: %w", vehicleID, ErrOdometerUnknown)
	}

	now := s.clock.Now()
	analysis := &models.VehicleAnalysis{
		VehicleID:         vehicle.ID,
		Title:             vehicle.DisplayName(),
		CurrentOdometerKm: *vehicle.CurrentOdometerKm,
		EvaluatedAt:       now,
		Items:             make([]models.ServiceRecommendation, 0, len(s.intervals)),
	}

	for _, interval := range s.intervals {
		last, err := s.history.LatestObservation(ctx, vehicle.ID, interval.Area)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s history: %w", interval.Area, err)
		}

		status := Evaluate(analysis.CurrentOdometerKm, last, interval, now)
		analysis.Items = append(analysis.Items, BuildRecommendation(interval.Area, status))
	}

	s.logger.Debug("vehicle analyzed",
		zap.Int64("vehicleId", vehicle.ID),
		zap.Int("doNow", len(analysis.DoNow())),
		zap.Int("checkSoon", len(analysis.CheckSoon())),
	)

	return analysis, nil
}
