package workflow

import (
	"fmt"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	domainwf "github.com/lahah11/finale-anesp-sub000/internal/domain/workflow"
)

// StageDef describes one row of the approval chain: the status it acts on,
// the status an approval moves to, and the role notified next. The chain is a
// fixed statutory sequence, so it is encoded as an explicit table rather than
// a generic graph.
type StageDef struct {
	Stage     port.Stage
	From      domainwf.State
	OnApprove domainwf.State

	// NextRole is the institution-scoped role code responsible for the stage
	// that begins after approval. Empty when no further validator exists.
	NextRole string

	// AllowReject is false for logistics assignment, which is retried rather
	// than rejected.
	AllowReject bool
}

var stageDefs = map[port.Stage]StageDef{
	port.StageTechnical: {
		Stage:       port.StageTechnical,
		From:        domainwf.StatePendingTechnical,
		OnApprove:   domainwf.StatePendingLogistics,
		NextRole:    entity.RoleLogistics,
		AllowReject: true,
	},
	port.StageLogistics: {
		Stage:       port.StageLogistics,
		From:        domainwf.StatePendingLogistics,
		OnApprove:   domainwf.StatePendingFinance,
		NextRole:    entity.RoleFinance,
		AllowReject: false,
	},
	port.StageFinance: {
		Stage:       port.StageFinance,
		From:        domainwf.StatePendingFinance,
		OnApprove:   domainwf.StatePendingDG,
		NextRole:    entity.RoleDirector,
		AllowReject: true,
	},
	port.StageFinal: {
		Stage:       port.StageFinal,
		From:        domainwf.StatePendingDG,
		OnApprove:   domainwf.StateValidated,
		NextRole:    "",
		AllowReject: true,
	},
}

// CreationRole is the role responsible for the first stage of a fresh mission
const CreationRole = entity.RoleTechnical

// VerificationRole is the role that verifies uploaded closure documents
const VerificationRole = entity.RoleArchive

// StageFor returns the stage definition acting on the given status, or false
// when the status is not a validation stage.
func StageFor(state domainwf.State) (StageDef, bool) {
	for _, def := range stageDefs {
		if def.From == state {
			return def, true
		}
	}
	return StageDef{}, false
}

// ValidateStageTable checks the stage table for internal consistency. Called
// once at startup so a bad edit fails fast instead of surfacing mid-workflow.
func ValidateStageTable() error {
	seen := make(map[domainwf.State]port.Stage, len(stageDefs))
	for stage, def := range stageDefs {
		if def.Stage != stage {
			return fmt.Errorf("stage %s: definition carries mismatched stage %s", stage, def.Stage)
		}
		if !def.From.IsValid() || !def.OnApprove.IsValid() {
			return fmt.Errorf("stage %s: invalid state in definition", stage)
		}
		if prev, dup := seen[def.From]; dup {
			return fmt.Errorf("stages %s and %s both act on status %s", prev, stage, def.From)
		}
		seen[def.From] = stage
		if def.From.Step()+1 != def.OnApprove.Step() {
			return fmt.Errorf("stage %s: approval must advance exactly one step (%d -> %d)",
				stage, def.From.Step(), def.OnApprove.Step())
		}
	}
	if len(stageDefs) != 4 {
		return fmt.Errorf("expected 4 validation stages, found %d", len(stageDefs))
	}
	return nil
}
