package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a report.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// CustomIssueType is the only issue type whose CustomIssue text is kept.
const CustomIssueType = "custom"

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved}

// Valid reports whether s is one of the three lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// ParseStatus converts raw input into a Status. Matching is exact.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Report is a single issue submission and its lifecycle state.
type Report struct {
	ID            string     `json:"id" db:"id"`
	Timestamp     time.Time  `json:"timestamp" db:"reported_at"`
	IssueType     string     `json:"issue_type" db:"issue_type"`
	CustomIssue   string     `json:"custom_issue" db:"custom_issue"`
	Description   string     `json:"description" db:"description"`
	Location      string     `json:"location" db:"location"`
	Latitude      *float64   `json:"latitude" db:"latitude"`
	Longitude     *float64   `json:"longitude" db:"longitude"`
	ImageFilename *string    `json:"image_filename" db:"image_filename"`
	Status        Status     `json:"status" db:"status"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// HasImage reports whether the report references a stored blob.
func (r Report) HasImage() bool {
	return r.ImageFilename != nil && *r.ImageFilename != ""
}
