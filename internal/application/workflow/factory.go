package workflow

import (
	domainwf "github.com/lahah11/finale-anesp-sub000/internal/domain/workflow"
)

// BuildMissionStateMachine creates a state machine configured for the mission
// order approval chain, positioned at the given state.
func BuildMissionStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StatePendingTechnical).
		Permit(domainwf.TriggerApprove, domainwf.StatePendingLogistics).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	// Logistics has no reject path: a bad assignment is retried
	builder.Configure(domainwf.StatePendingLogistics).
		Permit(domainwf.TriggerAssign, domainwf.StatePendingFinance)

	builder.Configure(domainwf.StatePendingFinance).
		Permit(domainwf.TriggerApprove, domainwf.StatePendingDG).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	builder.Configure(domainwf.StatePendingDG).
		Permit(domainwf.TriggerApprove, domainwf.StateValidated).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	// Post-travel document gate layered on top of the validated state
	builder.Configure(domainwf.StateValidated).
		Permit(domainwf.TriggerUpload, domainwf.StateCompleted)

	builder.Configure(domainwf.StateCompleted).
		Permit(domainwf.TriggerClose, domainwf.StateClosed).
		Permit(domainwf.TriggerReopen, domainwf.StateValidated)

	// rejected is terminal per attempt; resubmission starts a fresh cycle
	builder.Configure(domainwf.StateRejected).
		Permit(domainwf.TriggerResubmit, domainwf.StatePendingTechnical)

	return builder.Build(initialState)
}
