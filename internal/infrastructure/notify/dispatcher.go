// Package notify holds implementations of the outbound notification port.
// Actual delivery (e-mail, SMS) is owned by an external gateway; the default
// implementation posts to it over HTTP and the log dispatcher stands in when
// no gateway is configured.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
)

// HTTPDispatcher delivers notifications to the external gateway over HTTP
type HTTPDispatcher struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPDispatcher creates a dispatcher posting to the gateway endpoint
func NewHTTPDispatcher(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type gatewayPayload struct {
	RecipientID int64  `json:"recipient_id"`
	MissionID   int64  `json:"mission_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
}

// Dispatch posts the notification to the gateway
func (d *HTTPDispatcher) Dispatch(ctx context.Context, recipientID, missionID int64, notifType, title, message string) error {
	body, err := json.Marshal(gatewayPayload{
		RecipientID: recipientID,
		MissionID:   missionID,
		Type:        notifType,
		Title:       title,
		Message:     message,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to notification gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification gateway returned %d", resp.StatusCode)
	}

	return nil
}

// LogDispatcher logs notifications instead of delivering them, used when no
// gateway endpoint is configured
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a log-only dispatcher
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the notification
func (d *LogDispatcher) Dispatch(_ context.Context, recipientID, missionID int64, notifType, title, _ string) error {
	d.logger.Info("Notification (no gateway configured)",
		zap.Int64("recipient_id", recipientID),
		zap.Int64("mission_id", missionID),
		zap.String("type", notifType),
		zap.String("title", title))
	return nil
}

// Verify interface compliance
var (
	_ port.NotificationDispatcher = (*HTTPDispatcher)(nil)
	_ port.NotificationDispatcher = (*LogDispatcher)(nil)
)
