package entity

// Transport mode constants for Mission
const (
	TransportModeCar   = "car"
	TransportModePlane = "plane"
	TransportModeTrain = "train"
	TransportModeOther = "other"
)

// Transport type constants for car missions
const (
	TransportTypeANESP  = "anesp"
	TransportTypeRental = "rental"
)

// Workflow action constants
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Institution-scoped role codes used by the validator resolver.
// User administration is external; these codes are lookup keys only.
const (
	RoleTechnical = "DT"   // technical direction, stage 1
	RoleLogistics = "MSGG" // general services, stage 2
	RoleFinance   = "DAF"  // administrative & finance director, stage 3
	RoleDirector  = "DG"   // director general, stage 4
	RoleArchive   = "SG"   // secretariat, document verification and closure
)

// Participant role label of the mission chief. Exactly one per mission,
// fixed at creation.
const RoleChefDeMission = "Chef de mission"

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification type constants
const (
	NotificationTypeValidationRequest = "VALIDATION_REQUEST"
	NotificationTypeMissionRejected   = "MISSION_REJECTED"
	NotificationTypeMissionValidated  = "MISSION_VALIDATED"
	NotificationTypeDocumentsRequired = "DOCUMENTS_REQUIRED"
	NotificationTypeMissionClosed     = "MISSION_CLOSED"
)
