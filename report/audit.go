/*
audit.go - Audit trail entries for manual overrides

Every manual mutation of a stored record (status close, shortfall
override, billable-hours edit, comment change) appends an entry BEFORE the
record is written. The trail answers "who changed what, from what, to
what, and when" for any (date, resource, field).
*/
package report

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditClosed  AuditAction = "closed"  // a case was closed
	AuditEdited  AuditAction = "edited"  // a field was hand-edited
	AuditUpdated AuditAction = "updated" // a record was recomputed
)

type AuditEntry struct {
	ID         string
	ReportDate time.Time // the report week the mutated record belongs to
	Resource   ResourceID
	Action     AuditAction
	Details    string
	Field      string
	Previous   string
	New        string
	Actor      string
	CreatedAt  time.Time
}

// NewAuditEntry stamps identity and time onto a field change.
func NewAuditEntry(reportDate time.Time, resource ResourceID, action AuditAction, field, previous, next, details string) AuditEntry {
	return AuditEntry{
		ID:         uuid.NewString(),
		ReportDate: reportDate,
		Resource:   resource,
		Action:     action,
		Details:    details,
		Field:      field,
		Previous:   previous,
		New:        next,
		CreatedAt:  time.Now().UTC(),
	}
}
