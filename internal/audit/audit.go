// Package audit carries denial records from the enforcement gateway to
// the external audit collaborator. Storage format is that collaborator's
// concern; this package only shapes and delivers the records.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DenialRecord describes one denied request on a matched policy.
type DenialRecord struct {
	ID             uuid.UUID `json:"id"`
	TenantID       string    `json:"tenant_id"`
	UserID         int64     `json:"user_id"`
	ResourceKey    string    `json:"resource_key"`
	PermissionCode string    `json:"permission_code"`
	HTTPMethod     string    `json:"http_method"`
	Path           string    `json:"path"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewDenialRecord stamps id and timestamp onto a record.
func NewDenialRecord(tenantID string, userID int64, resourceKey, permissionCode, method, path string) DenialRecord {
	return DenialRecord{
		ID:             uuid.New(),
		TenantID:       tenantID,
		UserID:         userID,
		ResourceKey:    resourceKey,
		PermissionCode: permissionCode,
		HTTPMethod:     method,
		Path:           path,
		Timestamp:      time.Now().UTC(),
	}
}

// Sink receives denial records. Implementations must not block the
// request path for long; the gateway logs sink failures and continues.
type Sink interface {
	RecordDenial(ctx context.Context, rec DenialRecord) error
}

// LogSink writes denial records to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

// RecordDenial implements Sink.
func (s LogSink) RecordDenial(ctx context.Context, rec DenialRecord) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Warn("access denied",
		slog.String("id", rec.ID.String()),
		slog.String("tenant_id", rec.TenantID),
		slog.Int64("user_id", rec.UserID),
		slog.String("resource", rec.ResourceKey),
		slog.String("permission", rec.PermissionCode),
		slog.String("method", rec.HTTPMethod),
		slog.String("path", rec.Path),
	)
	return nil
}

// MultiSink fans a record out to several sinks, returning the first
// error after trying all of them.
type MultiSink []Sink

// RecordDenial implements Sink.
func (m MultiSink) RecordDenial(ctx context.Context, rec DenialRecord) error {
	var first error
	for _, s := range m {
		if err := s.RecordDenial(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
