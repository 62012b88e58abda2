package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a report lifecycle event.
type EventType string

const (
	EventReportCreated       EventType = "report.created"
	EventReportStatusUpdated EventType = "report.status_updated"
	EventReportDeleted       EventType = "report.deleted"
)

// ReportEvent records a completed report mutation for downstream consumers.
type ReportEvent struct {
	ID         string    `json:"event_id"`
	Type       EventType `json:"event_type"`
	ReportID   string    `json:"report_id"`
	OccurredAt time.Time `json:"occurred_at"`
	OldStatus  Status    `json:"old_status,omitempty"`
	Report     *Report   `json:"report,omitempty"`
}

// NewReportEvent builds an event carrying a snapshot of report. For
// report.deleted the snapshot is the record as it was before removal.
func NewReportEvent(typ EventType, report Report, at time.Time) ReportEvent {
	snapshot := report
	return ReportEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		ReportID:   report.ID,
		OccurredAt: at,
		Report:     &snapshot,
	}
}
