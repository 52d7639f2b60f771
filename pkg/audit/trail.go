package audit

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/warden/pkg/contextkeys"
)

// EventType categorizes an authorization audit event.
type EventType string

const (
	EventAccessResolved EventType = "authz.access_resolved"
	EventAccessDenied   EventType = "authz.access_denied"
	EventScopeDenied    EventType = "authz.scope_denied"
	EventPermissionDenied EventType = "authz.permission_denied"
)

// Event is one entry in the authorization audit trail.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"event_type"`
	UserID         int64     `json:"user_id,omitempty"`
	OrganizationID int64     `json:"organization_id,omitempty"`
	Variant        string    `json:"variant,omitempty"`
	Scope          string    `json:"scope,omitempty"`
	Permission     string    `json:"permission,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	Method         string    `json:"method,omitempty"`
	Path           string    `json:"path,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// Trail records authorization audit events. Recording must never fail the
// request; implementations swallow their own errors.
type Trail interface {
	Record(ctx context.Context, event Event)
}

// LogrusTrail writes events as structured JSON lines through logrus.
type LogrusTrail struct {
	logger *logrus.Logger
}

// NewLogrusTrail creates a trail writing JSON entries to the given writer.
func NewLogrusTrail(output io.Writer) *LogrusTrail {
	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	return &LogrusTrail{logger: logger}
}

// Record writes one audit entry. The request id is picked up from context
// when the event does not carry one.
func (t *LogrusTrail) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}

	fields := logrus.Fields{
		"event_type": string(event.Type),
		"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
	}
	if event.UserID != 0 {
		fields["user_id"] = event.UserID
	}
	if event.OrganizationID != 0 {
		fields["organization_id"] = event.OrganizationID
	}
	if event.Variant != "" {
		fields["variant"] = event.Variant
	}
	if event.Scope != "" {
		fields["scope"] = event.Scope
	}
	if event.Permission != "" {
		fields["permission"] = event.Permission
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Method != "" {
		fields["method"] = event.Method
	}
	if event.Path != "" {
		fields["path"] = event.Path
	}

	entry := t.logger.WithFields(fields)
	switch event.Type {
	case EventAccessResolved:
		entry.Info(event.Message)
	default:
		entry.Warn(event.Message)
	}
}

// NopTrail discards every event. Useful default when auditing is disabled.
type NopTrail struct{}

func (NopTrail) Record(context.Context, Event) {}
