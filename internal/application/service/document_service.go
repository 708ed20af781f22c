package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lahah11/finale-anesp-sub000/internal/application/apperr"
	"github.com/lahah11/finale-anesp-sub000/internal/application/dispatcher"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	appwf "github.com/lahah11/finale-anesp-sub000/internal/application/workflow"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/event"
	domainwf "github.com/lahah11/finale-anesp-sub000/internal/domain/workflow"
)

// DocumentService governs the two-document closure gate layered on top of the
// validated status: trip report and stamped mission orders are uploaded
// together, then verified and archived, or sent back for re-upload.
type DocumentService interface {
	UploadDocuments(ctx context.Context, missionID, actorID int64, reportURL, stampedURL string) (*appwf.TransitionResult, error)
	VerifyAndClose(ctx context.Context, missionID, actorID int64, action, notes string) (*appwf.TransitionResult, error)
}

type documentServiceImpl struct {
	missions   port.MissionRepository
	vehicles   port.VehicleRepository
	drivers    port.DriverRepository
	txManager  port.TransactionManager
	validators *ValidatorResolver
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	missions port.MissionRepository,
	vehicles port.VehicleRepository,
	drivers port.DriverRepository,
	txManager port.TransactionManager,
	validators *ValidatorResolver,
	d dispatcher.Dispatcher,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		missions:   missions,
		vehicles:   vehicles,
		drivers:    drivers,
		txManager:  txManager,
		validators: validators,
		dispatcher: d,
		logger:     logger,
	}
}

// UploadDocuments records both closure documents in one call. Partial upload
// is rejected, and a mission already past validated cannot be overwritten; a
// verification rejection is the only way to re-open the slot.
func (s *documentServiceImpl) UploadDocuments(ctx context.Context, missionID, actorID int64, reportURL, stampedURL string) (*appwf.TransitionResult, error) {
	if reportURL == "" || stampedURL == "" {
		return nil, fmt.Errorf("%w: the trip report and the stamped orders must be uploaded together", apperr.ErrValidation)
	}

	mission, err := s.getMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	if domainwf.State(mission.Status) != domainwf.StateValidated {
		return nil, fmt.Errorf("%w: documents can only be uploaded on a validated mission, %s is %s",
			apperr.ErrStateConflict, mission.Reference, mission.Status)
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.moveStatus(txCtx, mission.ID, domainwf.StateValidated, domainwf.StateCompleted); err != nil {
			return err
		}
		return s.missions.SetDocuments(txCtx, mission.ID, reportURL, stampedURL, actorID, now)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.getMission(ctx, mission.ID)
	if err != nil {
		return nil, err
	}

	verifier, err := s.validators.ResolveNext(ctx, mission.InstitutionID, appwf.VerificationRole)
	if err != nil {
		s.logger.Warn("Verifier resolution failed", "reference", mission.Reference, "error", err)
		verifier = nil
	}

	if s.dispatcher != nil {
		payload := map[string]interface{}{
			"reference":  mission.Reference,
			"actor_id":   actorID,
			"creator_id": mission.CreatedBy,
		}
		if verifier != nil {
			payload["next_validator_id"] = verifier.ID
		}
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeDocumentsUploaded, mission.ID, payload))
	}

	return &appwf.TransitionResult{Mission: updated, NextValidator: verifier}, nil
}

// VerifyAndClose verifies the uploaded documents: approval archives the
// mission, rejection re-opens the upload slot and notifies the uploader.
func (s *documentServiceImpl) VerifyAndClose(ctx context.Context, missionID, actorID int64, action, notes string) (*appwf.TransitionResult, error) {
	mission, err := s.getMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	if domainwf.State(mission.Status) != domainwf.StateCompleted {
		return nil, fmt.Errorf("%w: verification expects submitted documents, mission %s is %s",
			apperr.ErrStateConflict, mission.Reference, mission.Status)
	}

	switch strings.ToLower(action) {
	case entity.ActionApprove:
		return s.close(ctx, mission, actorID)
	case entity.ActionReject:
		return s.reopen(ctx, mission, actorID, notes)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", apperr.ErrValidation, action)
	}
}

func (s *documentServiceImpl) close(ctx context.Context, mission *entity.Mission, actorID int64) (*appwf.TransitionResult, error) {
	now := time.Now()
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.moveStatus(txCtx, mission.ID, domainwf.StateCompleted, domainwf.StateClosed); err != nil {
			return err
		}
		if err := s.missions.SetDocumentVerification(txCtx, mission.ID, actorID, now); err != nil {
			return err
		}
		// The mission is over: free its fleet resources
		if err := s.vehicles.ReleaseByMission(txCtx, mission.ID); err != nil {
			return err
		}
		return s.drivers.ReleaseByMission(txCtx, mission.ID)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.getMission(ctx, mission.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Mission closed", "reference", mission.Reference, "verified_by", actorID)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeMissionClosed, mission.ID, map[string]interface{}{
			"reference":  mission.Reference,
			"actor_id":   actorID,
			"creator_id": mission.CreatedBy,
		}))
	}

	return &appwf.TransitionResult{Mission: updated}, nil
}

func (s *documentServiceImpl) reopen(ctx context.Context, mission *entity.Mission, actorID int64, notes string) (*appwf.TransitionResult, error) {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.moveStatus(txCtx, mission.ID, domainwf.StateCompleted, domainwf.StateValidated)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.getMission(ctx, mission.ID)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		payload := map[string]interface{}{
			"reference":  mission.Reference,
			"actor_id":   actorID,
			"creator_id": mission.CreatedBy,
		}
		if mission.DocsUploadedBy != nil {
			payload["uploader_id"] = *mission.DocsUploadedBy
		}
		if notes != "" {
			payload["notes"] = notes
		}
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeDocumentsReopened, mission.ID, payload))
	}

	return &appwf.TransitionResult{Mission: updated, Rejected: true}, nil
}

func (s *documentServiceImpl) moveStatus(ctx context.Context, missionID int64, from, to domainwf.State) error {
	ok, err := s.missions.UpdateStatusCAS(ctx, missionID, from.String(), to.String(), to.Step())
	if err != nil {
		return fmt.Errorf("update mission status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: concurrent update detected on mission %d", apperr.ErrStateConflict, missionID)
	}
	return nil
}

func (s *documentServiceImpl) getMission(ctx context.Context, id int64) (*entity.Mission, error) {
	mission, err := s.missions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get mission %d: %w", id, err)
	}
	if mission == nil {
		return nil, fmt.Errorf("%w: mission %d", apperr.ErrNotFound, id)
	}
	return mission, nil
}
