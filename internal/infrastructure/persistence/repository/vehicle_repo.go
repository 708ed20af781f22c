package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/persistence/sqlite"
)

// VehicleRepository implements port.VehicleRepository
type VehicleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVehicleRepository creates a new vehicle repository
func NewVehicleRepository(db *sql.DB, logger *zap.Logger) port.VehicleRepository {
	return &VehicleRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a vehicle by ID
func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	query := `
		SELECT id, institution_id, plate, model, brand, available, mission_id, created_at, updated_at
		FROM vehicles
		WHERE id = ?
	`

	var v entity.Vehicle
	var missionID sql.NullInt64

	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.InstitutionID, &v.Plate, &v.Model, &v.Brand, &v.Available, &missionID,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get vehicle", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	v.MissionID = int64Ptr(missionID)
	return &v, nil
}

// ListAvailable retrieves the institution's available vehicles
func (r *VehicleRepository) ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Vehicle, error) {
	query := `
		SELECT id, institution_id, plate, model, brand, available, mission_id, created_at, updated_at
		FROM vehicles
		WHERE institution_id = ? AND available = 1
		ORDER BY id
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, institutionID)
	if err != nil {
		r.logger.Error("Failed to list available vehicles", zap.Int64("institution_id", institutionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*entity.Vehicle
	for rows.Next() {
		var v entity.Vehicle
		var missionID sql.NullInt64

		err := rows.Scan(&v.ID, &v.InstitutionID, &v.Plate, &v.Model, &v.Brand, &v.Available,
			&missionID, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}

		v.MissionID = int64Ptr(missionID)
		vehicles = append(vehicles, &v)
	}

	return vehicles, rows.Err()
}

// AcquireForMission atomically marks an available vehicle unavailable and
// links it to the mission. The availability check lives in the WHERE clause
// so concurrent assignments cannot double-book.
func (r *VehicleRepository) AcquireForMission(ctx context.Context, vehicleID, missionID int64) (bool, error) {
	query := `
		UPDATE vehicles
		SET available = 0, mission_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available = 1
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, missionID, vehicleID)
	if err != nil {
		r.logger.Error("Failed to acquire vehicle", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
		return false, fmt.Errorf("failed to acquire vehicle: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// ReleaseByMission frees every vehicle held by the mission
func (r *VehicleRepository) ReleaseByMission(ctx context.Context, missionID int64) error {
	query := `
		UPDATE vehicles
		SET available = 1, mission_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE mission_id = ?
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to release vehicles", zap.Int64("mission_id", missionID), zap.Error(err))
		return fmt.Errorf("failed to release vehicles: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.VehicleRepository = (*VehicleRepository)(nil)
