package workflow

import (
	"context"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
)

// ValidatorResolver finds the user responsible for the stage about to begin.
// A miss is soft: (nil, nil) means no notification is sent, never a failure.
type ValidatorResolver interface {
	ResolveNext(ctx context.Context, institutionID int64, roleCode string) (*entity.User, error)
}

// LogisticsResolver applies the branch-specific logistics rules for a mission
// and returns the snapshot to persist. Called inside the engine's transaction
// so resource acquisition rolls back with a failed transition.
type LogisticsResolver interface {
	Assign(ctx context.Context, mission *entity.Mission, req port.LogisticsRequest) (*port.LogisticsSnapshot, error)
}

// TransitionResult is the outcome of a workflow operation. A rejection is a
// successful outcome, not an error.
type TransitionResult struct {
	Mission *entity.Mission

	// NextValidator is the user responsible for the next stage, nil when the
	// chain is finished or the resolver found nobody
	NextValidator *entity.User

	Rejected bool
}

// Engine executes the mission approval workflow: it validates that a
// requested transition is legal from the mission's current status, applies it
// with a compare-and-set update, records the acting validator, and resolves
// the next responsible party.
type Engine interface {
	ValidateTechnical(ctx context.Context, missionID, actorID int64, action, reason string) (*TransitionResult, error)
	ValidateFinance(ctx context.Context, missionID, actorID int64, action, reason string) (*TransitionResult, error)
	ValidateFinal(ctx context.Context, missionID, actorID int64, action, reason string) (*TransitionResult, error)

	// AssignLogistics advances a mission past the logistics stage. There is
	// no reject path: a failed assignment leaves the mission untouched and
	// is retried.
	AssignLogistics(ctx context.Context, missionID, actorID int64, req port.LogisticsRequest) (*TransitionResult, error)

	// Resubmit reopens a rejected mission, clearing only the rejecting
	// stage's record, and returns it to technical validation.
	Resubmit(ctx context.Context, missionID, actorID int64) (*TransitionResult, error)
}
