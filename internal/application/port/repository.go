package port

import (
	"context"
	"time"

	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
)

// Stage identifies one of the four validation gates of a mission
type Stage string

const (
	StageTechnical Stage = "technical"
	StageLogistics Stage = "logistics"
	StageFinance   Stage = "finance"
	StageFinal     Stage = "final"
)

// LogisticsRequest is the caller-supplied payload for a logistics assignment
type LogisticsRequest struct {
	VehicleID *int64
	DriverID  *int64
	TicketRef string
}

// LogisticsSnapshot carries the denormalized logistics fields copied onto a
// mission at assignment time
type LogisticsSnapshot struct {
	VehicleID    *int64
	VehiclePlate string
	VehicleModel string
	VehicleBrand string

	DriverID      *int64
	DriverName    string
	DriverPhone   string
	DriverLicense string

	TicketRef string
}

// MissionRepository defines persistence operations for Mission
type MissionRepository interface {
	Create(ctx context.Context, mission *entity.Mission) error
	GetByID(ctx context.Context, id int64) (*entity.Mission, error)
	GetByReference(ctx context.Context, reference string) (*entity.Mission, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	List(ctx context.Context, institutionID int64, limit, offset int) ([]*entity.Mission, error)

	// UpdateStatusCAS conditionally moves a mission from one status to
	// another. It reports false when the mission was no longer in the
	// expected status, which is how a losing concurrent writer is detected.
	UpdateStatusCAS(ctx context.Context, id int64, fromStatus, toStatus string, step int) (bool, error)

	SetStageApproval(ctx context.Context, id int64, stage Stage, validatorID int64, at time.Time) error
	SetStageRejection(ctx context.Context, id int64, stage Stage, validatorID int64, reason string, at time.Time) error
	ClearStage(ctx context.Context, id int64, stage Stage) error

	SetLogistics(ctx context.Context, id int64, snapshot *LogisticsSnapshot) error

	SetDocuments(ctx context.Context, id int64, reportURL, stampedURL string, uploadedBy int64, at time.Time) error
	SetDocumentVerification(ctx context.Context, id int64, verifiedBy int64, at time.Time) error
}

// ParticipantRepository defines persistence operations for Participant.
// The membership list is immutable after creation, so there is no update or
// delete operation.
type ParticipantRepository interface {
	Create(ctx context.Context, participant *entity.Participant) error
	GetByMissionID(ctx context.Context, missionID int64) ([]*entity.Participant, error)
}

// VehicleRepository defines persistence operations for Vehicle
type VehicleRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Vehicle, error)
	ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Vehicle, error)

	// AcquireForMission atomically checks availability and marks the vehicle
	// unavailable, linked to the mission. Reports false when the vehicle was
	// already taken.
	AcquireForMission(ctx context.Context, vehicleID, missionID int64) (bool, error)

	// ReleaseByMission frees every vehicle held by the mission
	ReleaseByMission(ctx context.Context, missionID int64) error
}

// DriverRepository defines persistence operations for Driver
type DriverRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Driver, error)
	ListAvailable(ctx context.Context, institutionID int64) ([]*entity.Driver, error)
	AcquireForMission(ctx context.Context, driverID, missionID int64) (bool, error)
	ReleaseByMission(ctx context.Context, missionID int64) error
}

// UserRepository defines read operations for institution users. User
// administration is external to this service.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// FindByInstitutionRole returns users holding the role within the
	// institution, ordered by ascending id so ties resolve deterministically
	FindByInstitutionRole(ctx context.Context, institutionID int64, roleCode string) ([]*entity.User, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByMissionID(ctx context.Context, missionID int64) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
