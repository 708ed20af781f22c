package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
	TriggerAssign   Trigger = "ASSIGN_LOGISTICS"
	TriggerUpload   Trigger = "UPLOAD_DOCUMENTS"
	TriggerClose    Trigger = "CLOSE"
	TriggerReopen   Trigger = "REOPEN_DOCUMENTS"
	TriggerResubmit Trigger = "RESUBMIT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
