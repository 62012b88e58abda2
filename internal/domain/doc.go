// Package domain models community issue reports and the contracts the report
// store depends on.
//
// # Reports
//
// A report is a single citizen submission: an issue type, a free-text
// description, an optional location (free text and/or WGS-84 coordinates) and
// an optional photo. Reports are identified by a random UUIDv4 assigned at
// creation and are never renamed.
//
// Issue types are free-form strings chosen by the client. The single reserved
// value is "custom", which is the only type that keeps the client's
// CustomIssue text; for every other type CustomIssue is stored empty.
//
// # Status Lifecycle
//
//	pending → in_progress → resolved
//
// New reports start as pending. Any transition between the three values is
// allowed, including moving backwards or setting the current value again.
// UpdatedAt is nil until the first status change and is refreshed on every
// change after that.
//
// # Images
//
// Uploaded photos are accepted only with a png, jpg, jpeg or gif extension
// (case-insensitive). The stored name is generated by the blob sink as a
// random identifier plus the lowercased extension, so a client never controls
// where a blob lands. A report's ImageFilename refers to an existing blob
// until the report is deleted, at which point the blob is removed as well.
//
// # Ordering
//
// Listings are ordered by Timestamp descending. Reports sharing a timestamp
// keep their insertion order, which every [Repository] preserves in All.
//
// # Events
//
// Each successful mutation produces a [ReportEvent] (report.created,
// report.status_updated, report.deleted). Events describe what already
// happened; delivery is asynchronous and never affects the mutation result.
package domain
