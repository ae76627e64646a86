package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueAudit carries denial records awaiting delivery to the audit
	// collaborator.
	QueueAudit = "audit"
	// TaskTypeDenialRecorded is the task type for one denied request.
	TaskTypeDenialRecorded = "audit:denial"
)

// DenialRecordedPayload mirrors audit.DenialRecord on the wire.
type DenialRecordedPayload struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	UserID         int64     `json:"user_id"`
	ResourceKey    string    `json:"resource_key"`
	PermissionCode string    `json:"permission_code"`
	HTTPMethod     string    `json:"http_method"`
	Path           string    `json:"path"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewDenialRecordedTask constructs an Asynq task.
func NewDenialRecordedTask(payload DenialRecordedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDenialRecorded, data), nil
}

// DenialHandler forwards denial records to the external collaborator.
// Delivery here is a structured log line; the collaborator's ingest
// pipeline tails it. Malformed payloads are dropped without retry.
type DenialHandler struct {
	Logger *slog.Logger
}

// Handle processes TaskTypeDenialRecorded tasks.
func (h DenialHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DenialRecordedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("denial delivered",
		slog.String("id", payload.ID),
		slog.String("tenant_id", payload.TenantID),
		slog.Int64("user_id", payload.UserID),
		slog.String("resource", payload.ResourceKey),
		slog.String("permission", payload.PermissionCode),
		slog.String("method", payload.HTTPMethod),
		slog.String("path", payload.Path),
		slog.Time("at", payload.Timestamp),
	)
	return nil
}
