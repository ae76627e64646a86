package audit_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisade-sh/palisade/internal/audit"
)

func TestNewDenialRecordStampsIdentityAndTime(t *testing.T) {
	before := time.Now().UTC()
	rec := audit.NewDenialRecord("acme", 7, "user.admin", "VIEW", http.MethodGet, "/api/admin/users")

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "acme", rec.TenantID)
	assert.Equal(t, int64(7), rec.UserID)
	assert.Equal(t, "user.admin", rec.ResourceKey)
	assert.Equal(t, "VIEW", rec.PermissionCode)
	assert.Equal(t, http.MethodGet, rec.HTTPMethod)
	assert.Equal(t, "/api/admin/users", rec.Path)
	assert.False(t, rec.Timestamp.Before(before))

	other := audit.NewDenialRecord("acme", 7, "user.admin", "VIEW", http.MethodGet, "/api/admin/users")
	assert.NotEqual(t, rec.ID, other.ID, "each record carries its own id")
}

func TestLogSinkWritesStructuredWarning(t *testing.T) {
	var buf bytes.Buffer
	sink := audit.LogSink{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	rec := audit.NewDenialRecord("acme", 7, "user.admin", "VIEW", http.MethodGet, "/api/admin/users")
	require.NoError(t, sink.RecordDenial(context.Background(), rec))

	out := buf.String()
	assert.Contains(t, out, `"msg":"access denied"`)
	assert.Contains(t, out, `"tenant_id":"acme"`)
	assert.Contains(t, out, `"resource":"user.admin"`)
}

func TestLogSinkNilLoggerIsNoop(t *testing.T) {
	rec := audit.NewDenialRecord("acme", 7, "user.admin", "VIEW", http.MethodGet, "/api/admin/users")
	assert.NoError(t, audit.LogSink{}.RecordDenial(context.Background(), rec))
}

type stubSink struct {
	calls int
	err   error
}

func (s *stubSink) RecordDenial(ctx context.Context, rec audit.DenialRecord) error {
	s.calls++
	return s.err
}

func TestMultiSinkFansOutAndReportsFirstError(t *testing.T) {
	first := &stubSink{err: errors.New("pipe full")}
	second := &stubSink{}
	sink := audit.MultiSink{first, second}

	rec := audit.NewDenialRecord("acme", 7, "user.admin", "VIEW", http.MethodGet, "/api/admin/users")
	err := sink.RecordDenial(context.Background(), rec)

	assert.ErrorIs(t, err, first.err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls, "later sinks still receive the record")
}
