package authclient

import (
	"context"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	internalaudit "github.com/kdktj/authclient/internal/audit"
)

// AuditEvent is one session lifecycle record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs audit events.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink { return internalaudit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return internalaudit.NewJSONWriterSink(w) }

func NewSlogSink(logger *slog.Logger) SlogSink { return SlogSink{Logger: logger} }

const (
	auditEventStartupConfirmed  = "session.startup.confirmed"
	auditEventStartupDowngraded = "session.startup.downgraded"
	auditEventLoginSuccess      = "login.success"
	auditEventLoginFailure      = "login.failure"
	auditEventRegisterSuccess   = "register.success"
	auditEventRegisterFailure   = "register.failure"
	auditEventLogout            = "logout"
	auditEventRefreshSuccess    = "refresh.success"
	auditEventRefreshFailure    = "refresh.failure"
	auditEventUserRefreshed     = "user.refreshed"
	auditEventInvalidated       = "session.invalidated"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	errText string,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	m.audit.Emit(ctx, AuditEvent{
		ID:         ulid.Make().String(),
		Timestamp:  m.now().UTC(),
		EventType:  eventType,
		UserID:     userID,
		InstanceID: m.instanceID,
		Source:     requestSourceFromContext(ctx),
		Success:    success,
		Error:      errText,
		Metadata:   metadata,
	})
}
