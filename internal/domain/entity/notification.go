package entity

import "time"

// Notification is an outbound notification record. Delivery (e-mail, SMS) is
// performed by an external dispatcher; the core persists the record and marks
// the outcome, and a delivery failure never affects workflow state.
type Notification struct {
	ID           int64      `json:"id"`
	RecipientID  int64      `json:"recipient_id"`
	MissionID    int64      `json:"mission_id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
