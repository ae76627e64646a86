package audit

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/palisade-sh/palisade/jobs"
)

// QueueSink enqueues denial records for asynchronous delivery by the
// worker, keeping the request path independent of the collaborator's
// availability.
type QueueSink struct {
	client *asynq.Client
}

// NewQueueSink wraps an asynq client.
func NewQueueSink(client *asynq.Client) *QueueSink {
	return &QueueSink{client: client}
}

// RecordDenial implements Sink.
func (s *QueueSink) RecordDenial(ctx context.Context, rec DenialRecord) error {
	task, err := jobs.NewDenialRecordedTask(jobs.DenialRecordedPayload{
		ID:             rec.ID.String(),
		TenantID:       rec.TenantID,
		UserID:         rec.UserID,
		ResourceKey:    rec.ResourceKey,
		PermissionCode: rec.PermissionCode,
		HTTPMethod:     rec.HTTPMethod,
		Path:           rec.Path,
		Timestamp:      rec.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("audit: build task: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueAudit)); err != nil {
		return fmt.Errorf("audit: enqueue denial: %w", err)
	}
	return nil
}
