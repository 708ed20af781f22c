package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/domain/entity"
	"github.com/lahah11/finale-anesp-sub000/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new notification record
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			recipient_id, mission_id, type, title, message, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		n.RecipientID, n.MissionID, n.Type, n.Title, n.Message, n.Status, n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Int64("mission_id", n.MissionID), zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// GetByMissionID retrieves all notifications of a mission
func (r *NotificationRepository) GetByMissionID(ctx context.Context, missionID int64) ([]*entity.Notification, error) {
	query := `
		SELECT id, recipient_id, mission_id, type, title, message, status, sent_at, error_message, created_at
		FROM notifications
		WHERE mission_id = ?
		ORDER BY created_at
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int64("mission_id", missionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var sentAt sql.NullTime
		var errorMsg sql.NullString

		err := rows.Scan(&n.ID, &n.RecipientID, &n.MissionID, &n.Type, &n.Title, &n.Message,
			&n.Status, &sentAt, &errorMsg, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.SentAt = timePtr(sentAt)
		n.ErrorMessage = errorMsg.String
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// MarkSent marks a notification as delivered
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET status = ?, sent_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, entity.NotificationStatusSent, id)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}

// MarkFailed marks a notification as failed with the delivery error
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := `UPDATE notifications SET status = ?, error_message = ? WHERE id = ?`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, entity.NotificationStatusFailed, errorMsg, id)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
