package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lahah11/finale-anesp-sub000/internal/application/apperr"
	"github.com/lahah11/finale-anesp-sub000/internal/application/dispatcher"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	appwf "github.com/lahah11/finale-anesp-sub000/internal/application/workflow"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/event"
	domainwf "github.com/lahah11/finale-anesp-sub000/internal/domain/workflow"
)

var transportModes = map[string]bool{
	entity.TransportModeCar:   true,
	entity.TransportModePlane: true,
	entity.TransportModeTrain: true,
	entity.TransportModeOther: true,
}

// ParticipantInput describes one mission member at creation time
type ParticipantInput struct {
	EmployeeID    *int64 `json:"employee_id,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	NNI           string `json:"nni,omitempty"`
	Profession    string `json:"profession,omitempty"`
	Ministry      string `json:"ministry,omitempty"`
	Phone         string `json:"phone,omitempty"`
	RoleInMission string `json:"role_in_mission"`
}

// CreateMissionInput is the payload for mission creation
type CreateMissionInput struct {
	Objet         string             `json:"objet"`
	DepartureDate time.Time          `json:"departure_date"`
	ReturnDate    time.Time          `json:"return_date"`
	TransportMode string             `json:"transport_mode"`
	TransportType string             `json:"transport_type,omitempty"`
	Participants  []ParticipantInput `json:"participants"`
}

// MissionStatus is the status read model
type MissionStatus struct {
	Status            string `json:"status"`
	CurrentStep       int    `json:"current_step"`
	CurrentStepName   string `json:"current_step_name"`
	WorkflowCompleted bool   `json:"workflow_completed"`
}

// MissionService manages mission creation and reads. Workflow mutations are
// the engine's job, not this service's.
type MissionService interface {
	Create(ctx context.Context, input CreateMissionInput, actorID, institutionID int64) (*entity.Mission, error)
	Get(ctx context.Context, id int64) (*entity.Mission, error)
	Participants(ctx context.Context, missionID int64) ([]*entity.Participant, error)
	Status(ctx context.Context, id int64) (*MissionStatus, error)
	List(ctx context.Context, institutionID int64, limit, offset int) ([]*entity.Mission, error)
}

type missionServiceImpl struct {
	missions     port.MissionRepository
	participants port.ParticipantRepository
	txManager    port.TransactionManager
	references   *ReferenceGenerator
	validators   *ValidatorResolver
	dispatcher   dispatcher.Dispatcher
	logger       Logger
}

// NewMissionService creates a new MissionService
func NewMissionService(
	missions port.MissionRepository,
	participants port.ParticipantRepository,
	txManager port.TransactionManager,
	references *ReferenceGenerator,
	validators *ValidatorResolver,
	d dispatcher.Dispatcher,
	logger Logger,
) MissionService {
	return &missionServiceImpl{
		missions:     missions,
		participants: participants,
		txManager:    txManager,
		references:   references,
		validators:   validators,
		dispatcher:   d,
		logger:       logger,
	}
}

// Create creates a mission and its fixed participant list, opening the
// workflow at technical validation (step 1, creation, is already past).
func (s *missionServiceImpl) Create(ctx context.Context, input CreateMissionInput, actorID, institutionID int64) (*entity.Mission, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	reference, err := s.references.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate reference: %w", err)
	}

	now := time.Now()
	initial := domainwf.StatePendingTechnical
	mission := &entity.Mission{
		Reference:     reference,
		InstitutionID: institutionID,
		CreatedBy:     actorID,
		Objet:         input.Objet,
		DepartureDate: input.DepartureDate,
		ReturnDate:    input.ReturnDate,
		TransportMode: input.TransportMode,
		TransportType: input.TransportType,
		Status:        initial.String(),
		CurrentStep:   initial.Step(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.missions.Create(txCtx, mission); err != nil {
			return fmt.Errorf("create mission: %w", err)
		}
		for _, in := range input.Participants {
			p := &entity.Participant{
				MissionID:     mission.ID,
				EmployeeID:    in.EmployeeID,
				FullName:      in.FullName,
				NNI:           in.NNI,
				Profession:    in.Profession,
				Ministry:      in.Ministry,
				Phone:         in.Phone,
				RoleInMission: in.RoleInMission,
				CreatedAt:     now,
			}
			if err := s.participants.Create(txCtx, p); err != nil {
				return fmt.Errorf("create participant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create mission", "error", err, "reference", reference)
		return nil, err
	}

	s.logger.Info("Mission created",
		"id", mission.ID,
		"reference", mission.Reference,
		"institution_id", institutionID)

	if s.dispatcher != nil {
		next, err := s.validators.ResolveNext(ctx, institutionID, appwf.CreationRole)
		if err != nil {
			s.logger.Warn("Validator resolution failed",
				"reference", mission.Reference,
				"role_code", appwf.CreationRole,
				"error", err)
		}
		payload := map[string]interface{}{
			"reference":  mission.Reference,
			"creator_id": actorID,
		}
		if next != nil {
			payload["next_validator_id"] = next.ID
		}
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeMissionCreated, mission.ID, payload))
	}

	return mission, nil
}

func (s *missionServiceImpl) Get(ctx context.Context, id int64) (*entity.Mission, error) {
	mission, err := s.missions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mission == nil {
		return nil, fmt.Errorf("%w: mission %d", apperr.ErrNotFound, id)
	}
	return mission, nil
}

func (s *missionServiceImpl) Participants(ctx context.Context, missionID int64) ([]*entity.Participant, error) {
	return s.participants.GetByMissionID(ctx, missionID)
}

// Status returns the workflow read model. The step and its name are derived
// from the status, never read from a second source.
func (s *missionServiceImpl) Status(ctx context.Context, id int64) (*MissionStatus, error) {
	mission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	state := domainwf.State(mission.Status)
	return &MissionStatus{
		Status:            state.String(),
		CurrentStep:       state.Step(),
		CurrentStepName:   state.StepName(),
		WorkflowCompleted: state.Completed(),
	}, nil
}

func (s *missionServiceImpl) List(ctx context.Context, institutionID int64, limit, offset int) ([]*entity.Mission, error) {
	return s.missions.List(ctx, institutionID, limit, offset)
}

func validateCreateInput(input CreateMissionInput) error {
	if input.Objet == "" {
		return fmt.Errorf("%w: mission object is required", apperr.ErrValidation)
	}
	if input.DepartureDate.IsZero() || input.ReturnDate.IsZero() {
		return fmt.Errorf("%w: departure and return dates are required", apperr.ErrValidation)
	}
	if input.ReturnDate.Before(input.DepartureDate) {
		return fmt.Errorf("%w: return date precedes departure date", apperr.ErrValidation)
	}
	if !transportModes[input.TransportMode] {
		return fmt.Errorf("%w: unknown transport mode %q", apperr.ErrValidation, input.TransportMode)
	}
	if input.TransportMode == entity.TransportModeCar && input.TransportType == "" {
		return fmt.Errorf("%w: a car mission requires a transport type", apperr.ErrValidation)
	}
	if len(input.Participants) == 0 {
		return fmt.Errorf("%w: a mission requires at least one participant", apperr.ErrValidation)
	}

	chiefs := 0
	roles := make(map[string]bool, len(input.Participants))
	for _, p := range input.Participants {
		if p.RoleInMission == "" {
			return fmt.Errorf("%w: every participant requires a mission role", apperr.ErrValidation)
		}
		if roles[p.RoleInMission] {
			return fmt.Errorf("%w: duplicate participant role %q", apperr.ErrValidation, p.RoleInMission)
		}
		roles[p.RoleInMission] = true
		if p.RoleInMission == entity.RoleChefDeMission {
			chiefs++
		}
		if p.EmployeeID == nil && p.FullName == "" {
			return fmt.Errorf("%w: an external participant requires a name", apperr.ErrValidation)
		}
	}
	if chiefs != 1 {
		return fmt.Errorf("%w: a mission requires exactly one %q", apperr.ErrValidation, entity.RoleChefDeMission)
	}

	return nil
}
