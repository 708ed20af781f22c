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

// ParticipantRepository implements port.ParticipantRepository
type ParticipantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *sql.DB, logger *zap.Logger) port.ParticipantRepository {
	return &ParticipantRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new participant
func (r *ParticipantRepository) Create(ctx context.Context, p *entity.Participant) error {
	query := `
		INSERT INTO participants (
			mission_id, employee_id, full_name, nni, profession, ministry, phone,
			role_in_mission, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		p.MissionID,
		nullInt64(p.EmployeeID),
		nullString(p.FullName),
		nullString(p.NNI),
		nullString(p.Profession),
		nullString(p.Ministry),
		nullString(p.Phone),
		p.RoleInMission,
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create participant", zap.Int64("mission_id", p.MissionID), zap.Error(err))
		return fmt.Errorf("failed to create participant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	p.ID = id
	return nil
}

// GetByMissionID retrieves all participants of a mission
func (r *ParticipantRepository) GetByMissionID(ctx context.Context, missionID int64) ([]*entity.Participant, error) {
	query := `
		SELECT id, mission_id, employee_id, full_name, nni, profession, ministry, phone,
			role_in_mission, created_at
		FROM participants
		WHERE mission_id = ?
		ORDER BY id
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to list participants", zap.Int64("mission_id", missionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*entity.Participant
	for rows.Next() {
		var p entity.Participant
		var employeeID sql.NullInt64
		var fullName, nni, profession, ministry, phone sql.NullString

		err := rows.Scan(
			&p.ID, &p.MissionID, &employeeID, &fullName, &nni, &profession, &ministry, &phone,
			&p.RoleInMission, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}

		p.EmployeeID = int64Ptr(employeeID)
		p.FullName = fullName.String
		p.NNI = nni.String
		p.Profession = profession.String
		p.Ministry = ministry.String
		p.Phone = phone.String

		participants = append(participants, &p)
	}

	return participants, rows.Err()
}

// Verify interface compliance
var _ port.ParticipantRepository = (*ParticipantRepository)(nil)
