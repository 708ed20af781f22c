package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lahah11/finale-anesp-sub000/internal/application/dispatcher"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/event"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/workflow"
)

// NotificationService persists outbound notifications and hands them to the
// external dispatcher. Every path here is a side effect of an already
// committed transition: failures are recorded and logged, never propagated
// back into the workflow.
type NotificationService interface {
	Notify(ctx context.Context, recipientID, missionID int64, notifType, title, message string) error

	// RegisterHandlers subscribes the service to the workflow's domain events
	RegisterHandlers(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	external      port.NotificationDispatcher
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications port.NotificationRepository,
	external port.NotificationDispatcher,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		external:      external,
		logger:        logger,
	}
}

func (s *notificationServiceImpl) Notify(ctx context.Context, recipientID, missionID int64, notifType, title, message string) error {
	record := &entity.Notification{
		RecipientID: recipientID,
		MissionID:   missionID,
		Type:        notifType,
		Title:       title,
		Message:     message,
		Status:      entity.NotificationStatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.notifications.Create(ctx, record); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if err := s.external.Dispatch(ctx, recipientID, missionID, notifType, title, message); err != nil {
		s.logger.Warn("Notification delivery failed",
			"notification_id", record.ID,
			"recipient_id", recipientID,
			"error", err)
		if markErr := s.notifications.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.logger.Error("Failed to mark notification failed", "notification_id", record.ID, "error", markErr)
		}
		return nil
	}

	if err := s.notifications.MarkSent(ctx, record.ID); err != nil {
		s.logger.Error("Failed to mark notification sent", "notification_id", record.ID, "error", err)
	}

	return nil
}

// RegisterHandlers wires the notification side effects onto the workflow's
// domain events
func (s *notificationServiceImpl) RegisterHandlers(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeMissionCreated, "notify-next-validator", s.handleValidationRequest(
		"Nouvelle mission à valider",
		"Une mission attend votre validation technique."))
	d.SubscribeNamed(event.TypeStageApproved, "notify-stage-outcome", s.handleStageApproved)
	d.SubscribeNamed(event.TypeLogisticsAssigned, "notify-next-validator", s.handleValidationRequest(
		"Mission à valider",
		"La logistique est affectée, la mission attend la validation financière."))
	d.SubscribeNamed(event.TypeMissionResubmitted, "notify-next-validator", s.handleValidationRequest(
		"Mission resoumise",
		"Une mission rejetée a été resoumise pour validation technique."))
	d.SubscribeNamed(event.TypeDocumentsUploaded, "notify-verifier", s.handleValidationRequest(
		"Documents de mission à vérifier",
		"Le rapport et les ordres de mission cachetés attendent vérification."))

	d.SubscribeNamed(event.TypeMissionRejected, "notify-creator", s.handleMissionRejected)
	d.SubscribeNamed(event.TypeDocumentsReopened, "notify-uploader", s.handleDocumentsReopened)
	d.SubscribeNamed(event.TypeMissionClosed, "notify-creator", s.handleMissionClosed)
}

// handleValidationRequest notifies the resolved next validator, when one
// exists. A missing recipient is the resolver's soft miss and is skipped.
func (s *notificationServiceImpl) handleValidationRequest(title, message string) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		recipientID, ok := payloadInt64(evt.Payload, "next_validator_id")
		if !ok {
			return nil
		}
		return s.Notify(ctx, recipientID, evt.MissionID, entity.NotificationTypeValidationRequest, title, message)
	}
}

// handleStageApproved notifies the next validator when one was resolved. The
// final approval has no next stage; the creator is informed instead.
func (s *notificationServiceImpl) handleStageApproved(ctx context.Context, evt *event.Event) error {
	if recipientID, ok := payloadInt64(evt.Payload, "next_validator_id"); ok {
		if err := s.Notify(ctx, recipientID, evt.MissionID, entity.NotificationTypeValidationRequest,
			"Mission à valider",
			"Une mission attend votre validation."); err != nil {
			return err
		}
	}

	if status, _ := evt.Payload["new_status"].(string); status != workflow.StateValidated.String() {
		return nil
	}
	creatorID, ok := payloadInt64(evt.Payload, "creator_id")
	if !ok {
		return nil
	}
	return s.Notify(ctx, creatorID, evt.MissionID, entity.NotificationTypeMissionValidated,
		"Mission validée",
		"Votre mission est validée et attend les documents de clôture.")
}

func (s *notificationServiceImpl) handleMissionRejected(ctx context.Context, evt *event.Event) error {
	creatorID, ok := payloadInt64(evt.Payload, "creator_id")
	if !ok {
		return nil
	}
	reason, _ := evt.Payload["reason"].(string)
	message := "Votre mission a été rejetée."
	if reason != "" {
		message = fmt.Sprintf("Votre mission a été rejetée : %s", reason)
	}
	return s.Notify(ctx, creatorID, evt.MissionID, entity.NotificationTypeMissionRejected, "Mission rejetée", message)
}

func (s *notificationServiceImpl) handleDocumentsReopened(ctx context.Context, evt *event.Event) error {
	recipientID, ok := payloadInt64(evt.Payload, "uploader_id")
	if !ok {
		recipientID, ok = payloadInt64(evt.Payload, "creator_id")
		if !ok {
			return nil
		}
	}
	return s.Notify(ctx, recipientID, evt.MissionID, entity.NotificationTypeDocumentsRequired,
		"Documents refusés",
		"Les documents de clôture ont été refusés, merci de les soumettre à nouveau.")
}

func (s *notificationServiceImpl) handleMissionClosed(ctx context.Context, evt *event.Event) error {
	creatorID, ok := payloadInt64(evt.Payload, "creator_id")
	if !ok {
		return nil
	}
	return s.Notify(ctx, creatorID, evt.MissionID, entity.NotificationTypeMissionClosed,
		"Mission clôturée",
		"Votre mission est vérifiée et archivée.")
}

func payloadInt64(payload map[string]interface{}, key string) (int64, bool) {
	switch v := payload[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
