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

// DriverRepository implements port.DriverRepository
type DriverRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDriverRepository creates a new driver repository
func NewDriverRepository(db *sql.DB, logger *zap.Logger) port.DriverRepository {
	return &DriverRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a driver by ID
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*entity.Driver, error) {
	query := `
		SELECT id, institution_id, full_name, phone, license, available, mission_id, created_at, updated_at
		FROM drivers
		WHERE id = ?
	`

	var d entity.Driver
	var missionID sql.NullInt64

	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.InstitutionID, &d.FullName, &d.Phone, &d.License, &d.Available, &missionID,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get driver", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	d.MissionID = int64Ptr(missionID)
	return &d, nil
}

// ListAvailable retrieves the institution's available drivers
func (r *DriverRepository) ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Driver, error) {
	query := `
		SELECT id, institution_id, full_name, phone, license, available, mission_id, created_at, updated_at
		FROM drivers
		WHERE institution_id = ? AND available = 1
		ORDER BY id
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, institutionID)
	if err != nil {
		r.logger.Error("Failed to list available drivers", zap.Int64("institution_id", institutionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*entity.Driver
	for rows.Next() {
		var d entity.Driver
		var missionID sql.NullInt64

		err := rows.Scan(&d.ID, &d.InstitutionID, &d.FullName, &d.Phone, &d.License, &d.Available,
			&missionID, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan driver: %w", err)
		}

		d.MissionID = int64Ptr(missionID)
		drivers = append(drivers, &d)
	}

	return drivers, rows.Err()
}

// AcquireForMission atomically marks an available driver unavailable and
// links them to the mission
func (r *DriverRepository) AcquireForMission(ctx context.Context, driverID, missionID int64) (bool, error) {
	query := `
		UPDATE drivers
		SET available = 0, mission_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available = 1
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, missionID, driverID)
	if err != nil {
		r.logger.Error("Failed to acquire driver", zap.Int64("driver_id", driverID), zap.Error(err))
		return false, fmt.Errorf("failed to acquire driver: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// ReleaseByMission frees every driver held by the mission
func (r *DriverRepository) ReleaseByMission(ctx context.Context, missionID int64) error {
	query := `
		UPDATE drivers
		SET available = 1, mission_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE mission_id = ?
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to release drivers", zap.Int64("mission_id", missionID), zap.Error(err))
		return fmt.Errorf("failed to release drivers: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.DriverRepository = (*DriverRepository)(nil)
