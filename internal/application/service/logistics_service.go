package service

import (
	"context"
	"fmt"

	"github.com/lahah11/finale-anesp-sub000/internal/application/apperr"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
)

// LogisticsService applies the branch-specific logistics rules:
// institution car missions need an available vehicle and driver pair, plane
// missions need a ticket reference, everything else advances with an empty
// assignment. It implements workflow.LogisticsResolver and runs inside the
// engine's transaction, so acquisitions roll back with a failed transition.
type LogisticsService struct {
	vehicles port.VehicleRepository
	drivers  port.DriverRepository
	logger   Logger
}

// NewLogisticsService creates a new logistics service
func NewLogisticsService(vehicles port.VehicleRepository, drivers port.DriverRepository, logger Logger) *LogisticsService {
	return &LogisticsService{
		vehicles: vehicles,
		drivers:  drivers,
		logger:   logger,
	}
}

// Assign validates the request against the mission's transport branch and
// returns the snapshot to persist. Failure never mutates the mission.
func (s *LogisticsService) Assign(ctx context.Context, mission *entity.Mission, req port.LogisticsRequest) (*port.LogisticsSnapshot, error) {
	switch {
	case mission.RequiresVehicle():
		return s.assignVehicle(ctx, mission, req)
	case mission.RequiresTicket():
		if req.TicketRef == "" {
			return nil, fmt.Errorf("%w: a plane mission requires a ticket reference", apperr.ErrValidation)
		}
		return &port.LogisticsSnapshot{TicketRef: req.TicketRef}, nil
	default:
		// train, rental car, other: nothing to assign, the stage is
		// advanced explicitly with an empty payload
		return &port.LogisticsSnapshot{}, nil
	}
}

func (s *LogisticsService) assignVehicle(ctx context.Context, mission *entity.Mission, req port.LogisticsRequest) (*port.LogisticsSnapshot, error) {
	if req.VehicleID == nil || req.DriverID == nil {
		return nil, fmt.Errorf("%w: an institution car mission requires both a vehicle and a driver", apperr.ErrValidation)
	}

	vehicle, err := s.vehicles.GetByID(ctx, *req.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("get vehicle %d: %w", *req.VehicleID, err)
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %d", apperr.ErrNotFound, *req.VehicleID)
	}
	if vehicle.InstitutionID != mission.InstitutionID {
		return nil, fmt.Errorf("%w: vehicle %d belongs to another institution", apperr.ErrNotFound, vehicle.ID)
	}

	driver, err := s.drivers.GetByID(ctx, *req.DriverID)
	if err != nil {
		return nil, fmt.Errorf("get driver %d: %w", *req.DriverID, err)
	}
	if driver == nil {
		return nil, fmt.Errorf("%w: driver %d", apperr.ErrNotFound, *req.DriverID)
	}
	if driver.InstitutionID != mission.InstitutionID {
		return nil, fmt.Errorf("%w: driver %d belongs to another institution", apperr.ErrNotFound, driver.ID)
	}

	// Availability is checked and flipped in one statement per resource so
	// concurrent assignments cannot double-book.
	acquired, err := s.vehicles.AcquireForMission(ctx, vehicle.ID, mission.ID)
	if err != nil {
		return nil, fmt.Errorf("acquire vehicle %d: %w", vehicle.ID, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: vehicle %s is already assigned", apperr.ErrResourceUnavailable, vehicle.Plate)
	}

	acquired, err = s.drivers.AcquireForMission(ctx, driver.ID, mission.ID)
	if err != nil {
		return nil, fmt.Errorf("acquire driver %d: %w", driver.ID, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: driver %s is already assigned", apperr.ErrResourceUnavailable, driver.FullName)
	}

	s.logger.Info("Logistics assigned",
		"mission_id", mission.ID,
		"vehicle_plate", vehicle.Plate,
		"driver", driver.FullName)

	// Snapshot at assignment time: later fleet record changes must not
	// retroactively alter the mission order.
	return &port.LogisticsSnapshot{
		VehicleID:     &vehicle.ID,
		VehiclePlate:  vehicle.Plate,
		VehicleModel:  vehicle.Model,
		VehicleBrand:  vehicle.Brand,
		DriverID:      &driver.ID,
		DriverName:    driver.FullName,
		DriverPhone:   driver.Phone,
		DriverLicense: driver.License,
	}, nil
}

// AvailableVehicles lists the institution's free vehicles for assignment
func (s *LogisticsService) AvailableVehicles(ctx context.Context, institutionID int64) ([]*entity.Vehicle, error) {
	return s.vehicles.ListAvailable(ctx, institutionID)
}

// AvailableDrivers lists the institution's free drivers for assignment
func (s *LogisticsService) AvailableDrivers(ctx context.Context, institutionID int64) ([]*entity.Driver, error) {
	return s.drivers.ListAvailable(ctx, institutionID)
}
