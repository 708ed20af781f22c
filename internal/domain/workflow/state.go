package workflow

// State represents a workflow state in the mission order lifecycle
type State string

const (
	StatePendingTechnical State = "pending_technical"
	StatePendingLogistics State = "pending_logistics"
	StatePendingFinance   State = "pending_finance"
	StatePendingDG        State = "pending_dg"
	StateValidated        State = "validated"
	StateCompleted        State = "completed"
	StateClosed           State = "closed"
	StateRejected         State = "rejected"
)

var validStates = map[State]bool{
	StatePendingTechnical: true,
	StatePendingLogistics: true,
	StatePendingFinance:   true,
	StatePendingDG:        true,
	StateValidated:        true,
	StateCompleted:        true,
	StateClosed:           true,
	StateRejected:         true,
}

// StateClosed is terminal for good; StateRejected is terminal per attempt
// (resubmission opens a fresh cycle back to pending_technical).
var terminalStates = map[State]bool{
	StateClosed:   true,
	StateRejected: true,
}

// stateSteps is the single source of truth for the status/step duality.
// Step 1 is the implicit creation step a rejected mission falls back to.
var stateSteps = map[State]int{
	StateRejected:         1,
	StatePendingTechnical: 2,
	StatePendingLogistics: 3,
	StatePendingFinance:   4,
	StatePendingDG:        5,
	StateValidated:        6,
	StateCompleted:        6,
	StateClosed:           7,
}

var stateStepNames = map[State]string{
	StateRejected:         "Rejetée",
	StatePendingTechnical: "Validation technique",
	StatePendingLogistics: "Affectation logistique",
	StatePendingFinance:   "Validation financière",
	StatePendingDG:        "Approbation DG",
	StateValidated:        "Validée, en attente de documents",
	StateCompleted:        "Documents soumis, en attente de vérification",
	StateClosed:           "Clôturée",
}

// Step returns the numeric workflow step derived from the state.
// The step is never stored independently of the status.
func (s State) Step() int {
	return stateSteps[s]
}

// StepName returns the human-readable name of the workflow step
func (s State) StepName() string {
	return stateStepNames[s]
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// Completed reports whether the full workflow, documents included, has finished
func (s State) Completed() bool {
	return s == StateClosed
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
