package port

import "context"

// NotificationDispatcher delivers a notification to its recipient through an
// external channel. Implementations must be safe to call fire-and-forget; a
// delivery failure is reported as an error but never blocks the workflow.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, recipientID, missionID int64, notifType, title, message string) error
}

// DocumentStore stores generated artifacts (mission registers, rendered
// orders) and returns a retrievable reference. Physical storage is a
// replaceable collaborator.
type DocumentStore interface {
	Store(ctx context.Context, name string, content []byte) (string, error)
}
