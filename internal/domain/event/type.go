package event

// Type identifies a domain event
type Type string

const (
	TypeMissionCreated     Type = "mission.created"
	TypeStageApproved      Type = "mission.stage_approved"
	TypeMissionRejected    Type = "mission.rejected"
	TypeLogisticsAssigned  Type = "mission.logistics_assigned"
	TypeDocumentsUploaded  Type = "mission.documents_uploaded"
	TypeDocumentsReopened  Type = "mission.documents_reopened"
	TypeMissionClosed      Type = "mission.closed"
	TypeMissionResubmitted Type = "mission.resubmitted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the event type is one of the known types
func (t Type) IsValid() bool {
	switch t {
	case TypeMissionCreated, TypeStageApproved, TypeMissionRejected,
		TypeLogisticsAssigned, TypeDocumentsUploaded, TypeDocumentsReopened,
		TypeMissionClosed, TypeMissionResubmitted:
		return true
	default:
		return false
	}
}
