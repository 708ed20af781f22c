package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event emitted by the workflow engine after a committed
// transition. Events never carry uncommitted state.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	MissionID int64                  `json:"mission_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewEvent creates a new event with a fresh id and timestamp
func NewEvent(t Type, missionID int64, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		MissionID: missionID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}
