package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/apperr"
	"github.com/lahah11/finale-anesp-sub000/internal/application/dispatcher"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/event"
	domainwf "github.com/lahah11/finale-anesp-sub000/internal/domain/workflow"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	missions  port.MissionRepository
	vehicles  port.VehicleRepository
	drivers   port.DriverRepository
	txManager port.TransactionManager

	validators ValidatorResolver
	logistics  LogisticsResolver

	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting transition events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	missions port.MissionRepository,
	vehicles port.VehicleRepository,
	drivers port.DriverRepository,
	txManager port.TransactionManager,
	validators ValidatorResolver,
	logistics LogisticsResolver,
	logger *zap.Logger,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		missions:   missions,
		vehicles:   vehicles,
		drivers:    drivers,
		txManager:  txManager,
		validators: validators,
		logistics:  logistics,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) ValidateTechnical(ctx context.Context, missionID, actorID int64, action, reason string) (*TransitionResult, error) {
	return e.validateStage(ctx, missionID, actorID, port.StageTechnical, action, reason)
}

func (e *engineImpl) ValidateFinance(ctx context.Context, missionID, actorID int64, action, reason string) (*TransitionResult, error) {
	return e.validateStage(ctx, missionID, actorID, port.StageFinance, action, reason)
}

func (e *engineImpl) ValidateFinal(ctx context.Context, missionID, actorID int64, action, reason string) (*TransitionResult, error) {
	return e.validateStage(ctx, missionID, actorID, port.StageFinal, action, reason)
}

// validateStage runs one row of the approval chain table
func (e *engineImpl) validateStage(ctx context.Context, missionID, actorID int64, stage port.Stage, action, reason string) (*TransitionResult, error) {
	def := stageDefs[stage]

	mission, err := e.getMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	current := domainwf.State(mission.Status)
	if current != def.From {
		return nil, fmt.Errorf("%w: %s expects status %s, mission %s is %s",
			apperr.ErrStateConflict, stage, def.From, mission.Reference, current)
	}

	switch strings.ToLower(action) {
	case entity.ActionApprove:
		return e.approveStage(ctx, mission, def, actorID)
	case entity.ActionReject:
		if !def.AllowReject {
			return nil, fmt.Errorf("%w: stage %s cannot be rejected, assignment is retried instead", apperr.ErrValidation, stage)
		}
		if strings.TrimSpace(reason) == "" {
			return nil, fmt.Errorf("%w: a rejection requires a reason", apperr.ErrValidation)
		}
		return e.rejectStage(ctx, mission, def, actorID, reason)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", apperr.ErrValidation, action)
	}
}

func (e *engineImpl) approveStage(ctx context.Context, mission *entity.Mission, def StageDef, actorID int64) (*TransitionResult, error) {
	machine := BuildMissionStateMachine(def.From)
	if err := machine.Fire(ctx, domainwf.TriggerApprove); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStateConflict, err)
	}
	target := machine.State()
	now := time.Now()

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.moveStatus(txCtx, mission.ID, def.From, target); err != nil {
			return err
		}
		return e.missions.SetStageApproval(txCtx, mission.ID, def.Stage, actorID, now)
	})
	if err != nil {
		return nil, err
	}

	updated, err := e.getMission(ctx, mission.ID)
	if err != nil {
		return nil, err
	}

	next := e.resolveNext(ctx, updated, def.NextRole)

	e.emit(ctx, event.NewEvent(event.TypeStageApproved, mission.ID, map[string]interface{}{
		"stage":      string(def.Stage),
		"actor_id":   actorID,
		"new_status": target.String(),
		"creator_id": mission.CreatedBy,
		"next_validator_id": func() interface{} {
			if next == nil {
				return nil
			}
			return next.ID
		}(),
	}))

	return &TransitionResult{Mission: updated, NextValidator: next}, nil
}

func (e *engineImpl) rejectStage(ctx context.Context, mission *entity.Mission, def StageDef, actorID int64, reason string) (*TransitionResult, error) {
	now := time.Now()

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.moveStatus(txCtx, mission.ID, def.From, domainwf.StateRejected); err != nil {
			return err
		}
		if err := e.missions.SetStageRejection(txCtx, mission.ID, def.Stage, actorID, reason, now); err != nil {
			return err
		}
		// A mission rejected after logistics assignment releases its fleet
		// resources so they can serve other missions.
		if mission.HasLogistics() {
			return e.releaseResources(txCtx, mission.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := e.getMission(ctx, mission.ID)
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.NewEvent(event.TypeMissionRejected, mission.ID, map[string]interface{}{
		"stage":      string(def.Stage),
		"actor_id":   actorID,
		"reason":     reason,
		"creator_id": mission.CreatedBy,
	}))

	return &TransitionResult{Mission: updated, Rejected: true}, nil
}

func (e *engineImpl) AssignLogistics(ctx context.Context, missionID, actorID int64, req port.LogisticsRequest) (*TransitionResult, error) {
	def := stageDefs[port.StageLogistics]

	mission, err := e.getMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	current := domainwf.State(mission.Status)
	if current != def.From {
		return nil, fmt.Errorf("%w: logistics assignment expects status %s, mission %s is %s",
			apperr.ErrStateConflict, def.From, mission.Reference, current)
	}

	now := time.Now()

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.moveStatus(txCtx, mission.ID, def.From, def.OnApprove); err != nil {
			return err
		}
		// Resolver validates the branch rules and acquires resources inside
		// the transaction, so any failure rolls back the status move.
		snapshot, err := e.logistics.Assign(txCtx, mission, req)
		if err != nil {
			return err
		}
		if err := e.missions.SetLogistics(txCtx, mission.ID, snapshot); err != nil {
			return err
		}
		return e.missions.SetStageApproval(txCtx, mission.ID, port.StageLogistics, actorID, now)
	})
	if err != nil {
		return nil, err
	}

	updated, err := e.getMission(ctx, mission.ID)
	if err != nil {
		return nil, err
	}

	next := e.resolveNext(ctx, updated, def.NextRole)

	e.emit(ctx, event.NewEvent(event.TypeLogisticsAssigned, mission.ID, map[string]interface{}{
		"actor_id":   actorID,
		"creator_id": mission.CreatedBy,
		"next_validator_id": func() interface{} {
			if next == nil {
				return nil
			}
			return next.ID
		}(),
	}))

	return &TransitionResult{Mission: updated, NextValidator: next}, nil
}

func (e *engineImpl) Resubmit(ctx context.Context, missionID, actorID int64) (*TransitionResult, error) {
	mission, err := e.getMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	if domainwf.State(mission.Status) != domainwf.StateRejected {
		return nil, fmt.Errorf("%w: only a rejected mission can be resubmitted, mission %s is %s",
			apperr.ErrStateConflict, mission.Reference, mission.Status)
	}

	stage, ok := rejectedStage(mission)
	if !ok {
		return nil, fmt.Errorf("mission %s is rejected but carries no rejection record", mission.Reference)
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.moveStatus(txCtx, mission.ID, domainwf.StateRejected, domainwf.StatePendingTechnical); err != nil {
			return err
		}
		return e.missions.ClearStage(txCtx, mission.ID, stage)
	})
	if err != nil {
		return nil, err
	}

	updated, err := e.getMission(ctx, mission.ID)
	if err != nil {
		return nil, err
	}

	next := e.resolveNext(ctx, updated, CreationRole)

	e.emit(ctx, event.NewEvent(event.TypeMissionResubmitted, mission.ID, map[string]interface{}{
		"actor_id":       actorID,
		"creator_id":     mission.CreatedBy,
		"rejected_stage": string(stage),
		"next_validator_id": func() interface{} {
			if next == nil {
				return nil
			}
			return next.ID
		}(),
	}))

	return &TransitionResult{Mission: updated, NextValidator: next}, nil
}

// moveStatus performs the compare-and-set status update that is the
// concurrency boundary for every transition
func (e *engineImpl) moveStatus(ctx context.Context, missionID int64, from, to domainwf.State) error {
	ok, err := e.missions.UpdateStatusCAS(ctx, missionID, from.String(), to.String(), to.Step())
	if err != nil {
		return fmt.Errorf("update mission status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: concurrent update detected on mission %d", apperr.ErrStateConflict, missionID)
	}
	return nil
}

func (e *engineImpl) releaseResources(ctx context.Context, missionID int64) error {
	if err := e.vehicles.ReleaseByMission(ctx, missionID); err != nil {
		return fmt.Errorf("release vehicles: %w", err)
	}
	if err := e.drivers.ReleaseByMission(ctx, missionID); err != nil {
		return fmt.Errorf("release drivers: %w", err)
	}
	return nil
}

func (e *engineImpl) getMission(ctx context.Context, id int64) (*entity.Mission, error) {
	mission, err := e.missions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get mission %d: %w", id, err)
	}
	if mission == nil {
		return nil, fmt.Errorf("%w: mission %d", apperr.ErrNotFound, id)
	}
	return mission, nil
}

// resolveNext looks up the next responsible validator. A miss or a resolver
// failure degrades to "no notification sent" and is only logged.
func (e *engineImpl) resolveNext(ctx context.Context, mission *entity.Mission, roleCode string) *entity.User {
	if roleCode == "" {
		return nil
	}
	next, err := e.validators.ResolveNext(ctx, mission.InstitutionID, roleCode)
	if err != nil {
		e.logger.Warn("Validator resolution failed",
			zap.String("reference", mission.Reference),
			zap.String("role_code", roleCode),
			zap.Error(err))
		return nil
	}
	if next == nil {
		e.logger.Warn("No validator found for role",
			zap.String("reference", mission.Reference),
			zap.String("role_code", roleCode))
	}
	return next
}

// emit dispatches a domain event fire-and-forget. Side effects never roll
// back or block an already-committed transition.
func (e *engineImpl) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

// rejectedStage finds the stage holding the current rejection record
func rejectedStage(m *entity.Mission) (port.Stage, bool) {
	switch {
	case m.FinalReason != "":
		return port.StageFinal, true
	case m.FinanceReason != "":
		return port.StageFinance, true
	case m.TechnicalReason != "":
		return port.StageTechnical, true
	}
	return "", false
}
