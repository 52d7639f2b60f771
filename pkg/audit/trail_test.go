package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/warden/pkg/contextkeys"
)

func TestLogrusTrailRecord(t *testing.T) {
	var buf bytes.Buffer
	trail := NewLogrusTrail(&buf)

	trail.Record(context.Background(), Event{
		Type:           EventScopeDenied,
		UserID:         10,
		OrganizationID: 1,
		Scope:          "project:write",
		Variant:        "member",
		Method:         "POST",
		Path:           "/api/v1/organizations/acme/projects",
		Message:        "scope check denied",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "authz.scope_denied", entry["event_type"])
	assert.Equal(t, float64(10), entry["user_id"])
	assert.Equal(t, "project:write", entry["scope"])
	assert.Equal(t, "warning", entry["level"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestLogrusTrailRequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	trail := NewLogrusTrail(&buf)

	ctx := contextkeys.WithRequestID(context.Background(), "req-123")
	trail.Record(ctx, Event{Type: EventPermissionDenied, Permission: "users.admin"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestLogrusTrailResolvedIsInfo(t *testing.T) {
	var buf bytes.Buffer
	trail := NewLogrusTrail(&buf)

	trail.Record(context.Background(), Event{Type: EventAccessResolved, Variant: "org_global"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "org_global", entry["variant"])
}

func TestNopTrail(t *testing.T) {
	assert.NotPanics(t, func() {
		NopTrail{}.Record(context.Background(), Event{Type: EventAccessDenied})
	})
}
