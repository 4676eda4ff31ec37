package services

import (
	"context"
	"errors"
	"fmt"

	"service-advisor/internal/models"
	"service-advisor/pkg/advisor"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidQuery = errors.New("invalid advisory query")

// adviseAllLimit bounds concurrent provider lookups in AdviseAll.
const adviseAllLimit = 4

type AreaAdvice struct {
	Area   models.ServiceArea     `json:"area"`
	Result *models.AdvisoryResult `json:"result"`
}

type AdvisoryService struct {
	advisor   advisor.Advisor
	vehicles  VehicleFinder
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAdvisoryService(adv advisor.Advisor, vehicles VehicleFinder, logger *zap.Logger) *AdvisoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryService{
		advisor:   adv,
		vehicles:  vehicles,
		validator: validator.New(),
		logger:    logger,
	}
}

// GetAdvice returns indicative advice for one area of a vehicle. Throttling
// and unreadable provider answers come back as degraded results, not errors.
func (s *AdvisoryService) GetAdvice(ctx context.Context, vehicleID int64, brand, model string, year int, fuelType models.FuelType, area models.ServiceArea) (*models.AdvisoryResult, error) {
	query := models.AdvisoryQuery{
		VehicleID: vehicleID,
		Vehicle: models.VehicleContext{
			Brand:    brand,
			Model:    model,
			Year:     year,
			FuelType: fuelType,
		},
		Area: area,
	}
	return s.advise(ctx, query)
}

// GetVehicleAdvice loads the vehicle and asks for advice on one area.
func (s *AdvisoryService) GetVehicleAdvice(ctx context.Context, vehicleID int64, area models.ServiceArea) (*models.AdvisoryResult, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return s.advise(ctx, models.AdvisoryQuery{
		VehicleID: vehicle.ID,
		Vehicle:   vehicle.Context(),
		Area:      area,
	})
}

// AdviseAll asks for advice on every catalog area of a vehicle. Results are
// returned in catalog order. The first hard failure cancels the rest.
func (s *AdvisoryService) AdviseAll(ctx context.Context, vehicleID int64) ([]AreaAdvice, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	results := make([]AreaAdvice, len(models.AllServiceAreas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(adviseAllLimit)

	for i, area := range models.AllServiceAreas {
		g.Go(func() error {
			result, err := s.advise(gctx, models.AdvisoryQuery{
				VehicleID: vehicle.ID,
				Vehicle:   vehicle.Context(),
				Area:      area,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", area, err)
			}
			results[i] = AreaAdvice{Area: area, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *AdvisoryService) advise(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	if err := s.validator.Struct(&query); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	result, err := s.advisor.GetAdvice(ctx, query)
	if err != nil {
		s.logger.Error("advisory lookup failed",
			zap.Int64("vehicleId", query.VehicleID),
			zap.String("area", string(query.Area)),
			zap.Error(err),
		)
		return nil, err
	}

	if result.Degraded {
		s.logger.Info("advisory degraded",
			zap.Int64("vehicleId", query.VehicleID),
			zap.String("area", string(query.Area)),
		)
	}
	return result, nil
}
