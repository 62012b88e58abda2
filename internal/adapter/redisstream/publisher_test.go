package redisstream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

func TestXAddArgs(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	evt := domain.ReportEvent{
		ID:         "evt-1",
		Type:       domain.EventReportDeleted,
		ReportID:   "report-1",
		OccurredAt: now,
	}

	args, err := xaddArgs("report-events", evt)
	require.NoError(t, err)

	assert.Equal(t, "report-events", args.Stream)
	values, ok := args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "evt-1", values["event_id"])
	assert.Equal(t, "report.deleted", values["event_type"])
	assert.Equal(t, "report-1", values["report_id"])
	assert.Equal(t, "2024-05-01T09:30:00Z", values["timestamp"])

	var decoded domain.ReportEvent
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
	assert.Nil(t, decoded.Report)
}

func TestNewPublisher_UnreachableRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewPublisher(ctx, "127.0.0.1:1", "report-events", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestPublishBatch_EmptyIsNoop(t *testing.T) {
	p := &Publisher{stream: "report-events"}
	require.NoError(t, p.PublishBatch(context.Background(), nil))
}
