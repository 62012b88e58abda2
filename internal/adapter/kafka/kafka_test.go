package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	event := domain.ReportEvent{
		ID:         "evt-1",
		Type:       domain.EventReportStatusUpdated,
		ReportID:   "report-1",
		OccurredAt: now,
		OldStatus:  domain.StatusPending,
		Report:     &domain.Report{ID: "report-1", Status: domain.StatusInProgress},
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("report-1"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("report.status_updated"), msg.Headers[0].Value)
	assert.Equal(t, "event_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("evt-1"), msg.Headers[1].Value)
	assert.Equal(t, "occurred_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var decoded domain.ReportEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, domain.StatusPending, decoded.OldStatus)
	require.NotNil(t, decoded.Report)
	assert.Equal(t, domain.StatusInProgress, decoded.Report.Status)
}

func TestPublishBatch_EmptyIsNoop(t *testing.T) {
	w := NewWriter([]string{"127.0.0.1:1"}, "report-events", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.PublishBatch(context.Background(), nil))
}
