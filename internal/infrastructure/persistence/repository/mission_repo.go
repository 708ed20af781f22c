package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/persistence/sqlite"
)

const missionColumns = `
	id, reference, institution_id, created_by, objet,
	departure_date, return_date, transport_mode, transport_type,
	status, current_step,
	technical_validator_id, technical_validated_at, technical_reason,
	logistics_validator_id, logistics_validated_at,
	finance_validator_id, finance_validated_at, finance_reason,
	final_validator_id, final_validated_at, final_reason,
	vehicle_id, vehicle_plate, vehicle_model, vehicle_brand,
	driver_id, driver_name, driver_phone, driver_license,
	ticket_ref, report_url, stamped_orders_url,
	docs_uploaded_by, docs_uploaded_at, docs_verified_by, docs_verified_at,
	total_cost, created_at, updated_at`

// stageColumns maps a validation stage to its audit columns. The logistics
// stage has no rejection column because assignment is retried, not rejected.
var stageColumns = map[port.Stage]struct {
	validator string
	at        string
	reason    string
}{
	port.StageTechnical: {"technical_validator_id", "technical_validated_at", "technical_reason"},
	port.StageLogistics: {"logistics_validator_id", "logistics_validated_at", ""},
	port.StageFinance:   {"finance_validator_id", "finance_validated_at", "finance_reason"},
	port.StageFinal:     {"final_validator_id", "final_validated_at", "final_reason"},
}

// MissionRepository implements port.MissionRepository
type MissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMissionRepository creates a new mission repository
func NewMissionRepository(db *sql.DB, logger *zap.Logger) port.MissionRepository {
	return &MissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new mission
func (r *MissionRepository) Create(ctx context.Context, m *entity.Mission) error {
	query := `
		INSERT INTO missions (
			reference, institution_id, created_by, objet,
			departure_date, return_date, transport_mode, transport_type,
			status, current_step, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		m.Reference,
		m.InstitutionID,
		m.CreatedBy,
		m.Objet,
		m.DepartureDate,
		m.ReturnDate,
		m.TransportMode,
		nullString(m.TransportType),
		m.Status,
		m.CurrentStep,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create mission", zap.String("reference", m.Reference), zap.Error(err))
		return fmt.Errorf("failed to create mission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	m.ID = id
	return nil
}

// GetByID retrieves a mission by ID
func (r *MissionRepository) GetByID(ctx context.Context, id int64) (*entity.Mission, error) {
	query := `SELECT` + missionColumns + ` FROM missions WHERE id = ?`

	mission, err := scanMission(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get mission by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	return mission, nil
}

// GetByReference retrieves a mission by its human-readable reference
func (r *MissionRepository) GetByReference(ctx context.Context, reference string) (*entity.Mission, error) {
	query := `SELECT` + missionColumns + ` FROM missions WHERE reference = ?`

	mission, err := scanMission(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, reference))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get mission by reference", zap.String("reference", reference), zap.Error(err))
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	return mission, nil
}

// ReferenceExists reports whether a reference is already allocated
func (r *MissionRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM missions WHERE reference = ?`, reference).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to probe reference: %w", err)
	}
	return count > 0, nil
}

// List retrieves an institution's missions with pagination
func (r *MissionRepository) List(ctx context.Context, institutionID int64, limit, offset int) ([]*entity.Mission, error) {
	query := `SELECT` + missionColumns + `
		FROM missions
		WHERE institution_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, institutionID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list missions", zap.Error(err))
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*entity.Mission
	for rows.Next() {
		mission, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, mission)
	}

	return missions, rows.Err()
}

// UpdateStatusCAS conditionally moves a mission between statuses. The WHERE
// clause on the expected status is the concurrency boundary: the losing
// concurrent writer touches zero rows.
func (r *MissionRepository) UpdateStatusCAS(ctx context.Context, id int64, fromStatus, toStatus string, step int) (bool, error) {
	query := `
		UPDATE missions
		SET status = ?, current_step = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, toStatus, step, id, fromStatus)
	if err != nil {
		r.logger.Error("Failed to update mission status",
			zap.Int64("id", id),
			zap.String("from", fromStatus),
			zap.String("to", toStatus),
			zap.Error(err))
		return false, fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// SetStageApproval records the validator and timestamp of an approved stage
func (r *MissionRepository) SetStageApproval(ctx context.Context, id int64, stage port.Stage, validatorID int64, at time.Time) error {
	cols, ok := stageColumns[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}

	query := fmt.Sprintf(`UPDATE missions SET %s = ?, %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cols.validator, cols.at)
	args := []interface{}{validatorID, at, id}
	if cols.reason != "" {
		query = fmt.Sprintf(`UPDATE missions SET %s = ?, %s = ?, %s = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			cols.validator, cols.at, cols.reason)
	}

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to record stage approval",
			zap.Int64("id", id), zap.String("stage", string(stage)), zap.Error(err))
		return fmt.Errorf("failed to record stage approval: %w", err)
	}

	return nil
}

// SetStageRejection records the validator, timestamp and reason of a
// rejected stage. Prior stages' approvals are untouched.
func (r *MissionRepository) SetStageRejection(ctx context.Context, id int64, stage port.Stage, validatorID int64, reason string, at time.Time) error {
	cols, ok := stageColumns[stage]
	if !ok || cols.reason == "" {
		return fmt.Errorf("stage %q has no rejection path", stage)
	}

	query := fmt.Sprintf(`UPDATE missions SET %s = ?, %s = ?, %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cols.validator, cols.at, cols.reason)

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, validatorID, at, reason, id)
	if err != nil {
		r.logger.Error("Failed to record stage rejection",
			zap.Int64("id", id), zap.String("stage", string(stage)), zap.Error(err))
		return fmt.Errorf("failed to record stage rejection: %w", err)
	}

	return nil
}

// ClearStage erases a stage's audit record, used when a rejected mission is
// resubmitted
func (r *MissionRepository) ClearStage(ctx context.Context, id int64, stage port.Stage) error {
	cols, ok := stageColumns[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}

	query := fmt.Sprintf(`UPDATE missions SET %s = NULL, %s = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cols.validator, cols.at)
	if cols.reason != "" {
		query = fmt.Sprintf(`UPDATE missions SET %s = NULL, %s = NULL, %s = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			cols.validator, cols.at, cols.reason)
	}

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to clear stage",
			zap.Int64("id", id), zap.String("stage", string(stage)), zap.Error(err))
		return fmt.Errorf("failed to clear stage: %w", err)
	}

	return nil
}

// SetLogistics persists the logistics snapshot taken at assignment time
func (r *MissionRepository) SetLogistics(ctx context.Context, id int64, s *port.LogisticsSnapshot) error {
	query := `
		UPDATE missions
		SET vehicle_id = ?, vehicle_plate = ?, vehicle_model = ?, vehicle_brand = ?,
			driver_id = ?, driver_name = ?, driver_phone = ?, driver_license = ?,
			ticket_ref = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		nullInt64(s.VehicleID),
		nullString(s.VehiclePlate),
		nullString(s.VehicleModel),
		nullString(s.VehicleBrand),
		nullInt64(s.DriverID),
		nullString(s.DriverName),
		nullString(s.DriverPhone),
		nullString(s.DriverLicense),
		nullString(s.TicketRef),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to set logistics", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set logistics: %w", err)
	}

	return nil
}

// SetDocuments records both closure documents and their uploader
func (r *MissionRepository) SetDocuments(ctx context.Context, id int64, reportURL, stampedURL string, uploadedBy int64, at time.Time) error {
	query := `
		UPDATE missions
		SET report_url = ?, stamped_orders_url = ?,
			docs_uploaded_by = ?, docs_uploaded_at = ?,
			docs_verified_by = NULL, docs_verified_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, reportURL, stampedURL, uploadedBy, at, id)
	if err != nil {
		r.logger.Error("Failed to set documents", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set documents: %w", err)
	}

	return nil
}

// SetDocumentVerification records the verifier that approved the documents
func (r *MissionRepository) SetDocumentVerification(ctx context.Context, id int64, verifiedBy int64, at time.Time) error {
	query := `
		UPDATE missions
		SET docs_verified_by = ?, docs_verified_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, verifiedBy, at, id)
	if err != nil {
		r.logger.Error("Failed to set document verification", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set document verification: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMission(s scanner) (*entity.Mission, error) {
	var m entity.Mission
	var transportType, technicalReason, financeReason, finalReason sql.NullString
	var vehiclePlate, vehicleModel, vehicleBrand sql.NullString
	var driverName, driverPhone, driverLicense sql.NullString
	var ticketRef, reportURL, stampedURL sql.NullString
	var technicalValidator, logisticsValidator, financeValidator, finalValidator sql.NullInt64
	var vehicleID, driverID, docsUploadedBy, docsVerifiedBy sql.NullInt64
	var technicalAt, logisticsAt, financeAt, finalAt, docsUploadedAt, docsVerifiedAt sql.NullTime
	var totalCost sql.NullFloat64

	err := s.Scan(
		&m.ID, &m.Reference, &m.InstitutionID, &m.CreatedBy, &m.Objet,
		&m.DepartureDate, &m.ReturnDate, &m.TransportMode, &transportType,
		&m.Status, &m.CurrentStep,
		&technicalValidator, &technicalAt, &technicalReason,
		&logisticsValidator, &logisticsAt,
		&financeValidator, &financeAt, &financeReason,
		&finalValidator, &finalAt, &finalReason,
		&vehicleID, &vehiclePlate, &vehicleModel, &vehicleBrand,
		&driverID, &driverName, &driverPhone, &driverLicense,
		&ticketRef, &reportURL, &stampedURL,
		&docsUploadedBy, &docsUploadedAt, &docsVerifiedBy, &docsVerifiedAt,
		&totalCost, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.TransportType = transportType.String
	m.TechnicalValidatorID = int64Ptr(technicalValidator)
	m.TechnicalValidatedAt = timePtr(technicalAt)
	m.TechnicalReason = technicalReason.String
	m.LogisticsValidatorID = int64Ptr(logisticsValidator)
	m.LogisticsValidatedAt = timePtr(logisticsAt)
	m.FinanceValidatorID = int64Ptr(financeValidator)
	m.FinanceValidatedAt = timePtr(financeAt)
	m.FinanceReason = financeReason.String
	m.FinalValidatorID = int64Ptr(finalValidator)
	m.FinalValidatedAt = timePtr(finalAt)
	m.FinalReason = finalReason.String
	m.VehicleID = int64Ptr(vehicleID)
	m.VehiclePlate = vehiclePlate.String
	m.VehicleModel = vehicleModel.String
	m.VehicleBrand = vehicleBrand.String
	m.DriverID = int64Ptr(driverID)
	m.DriverName = driverName.String
	m.DriverPhone = driverPhone.String
	m.DriverLicense = driverLicense.String
	m.TicketRef = ticketRef.String
	m.ReportURL = reportURL.String
	m.StampedOrdersURL = stampedURL.String
	m.DocsUploadedBy = int64Ptr(docsUploadedBy)
	m.DocsUploadedAt = timePtr(docsUploadedAt)
	m.DocsVerifiedBy = int64Ptr(docsVerifiedBy)
	m.DocsVerifiedAt = timePtr(docsVerifiedAt)
	if totalCost.Valid {
		m.TotalCost = &totalCost.Float64
	}

	return &m, nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if v.Valid {
		return &v.Int64
	}
	return nil
}

func timePtr(v sql.NullTime) *time.Time {
	if v.Valid {
		return &v.Time
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Verify interface compliance
var _ port.MissionRepository = (*MissionRepository)(nil)
