/*
Package review implements the audited manual-override paths.

PURPOSE:
  After ingestion, reviewers work the open cases: closing them with a
  comment, zeroing a shortfall, correcting billable hours, or annotating a
  record. Every override appends an audit entry (field, previous value,
  new value, timestamp) BEFORE the record is mutated, and every write is
  guarded by the record's version so two concurrent edits cannot silently
  clobber each other's trail.

RECOMPUTE RULE:
  Editing billable hours re-derives the billable category, grand total,
  total logged, shortfall, and status through the same rule table the
  ingestion run uses - with the carry-forward value already stored on the
  record, never re-fetched. If the recompute closes an open case, a
  closing comment is appended and the status change is audited as well.

SEE ALSO:
  - report/rules.go: the rule table applied on recompute
  - store/sqlite: optimistic-concurrency UpdateRecord
*/
package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/utilization-engine/report"
)

// Store is the single-record read-modify-write surface plus the audit log.
type Store interface {
	GetRecord(ctx context.Context, id int64) (*report.UtilizationRecord, error)
	UpdateRecord(ctx context.Context, rec *report.UtilizationRecord) error
	AppendAudit(ctx context.Context, entry report.AuditEntry) error
}

// Service executes manual overrides.
type Service struct {
	Store  Store
	Logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{Store: store, Logger: logger}
}

// =============================================================================
// CLOSE CASE
// =============================================================================

// CloseCase forces an open record closed and tags the comment trail.
// Closing an already-closed record is a no-op.
func (s *Service) CloseCase(ctx context.Context, id int64, comment, actor string) (*report.UtilizationRecord, error) {
	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != report.StatusOpen {
		return rec, nil
	}

	entry := report.NewAuditEntry(rec.Date, rec.Resource, report.AuditClosed,
		"status", string(report.StatusOpen), string(report.StatusClosed),
		"Case closed by reviewer")
	entry.Actor = actor
	if err := s.Store.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	rec.Status = report.StatusClosed
	rec.Comments = appendComment(rec.Comments, fmt.Sprintf("[Closed: %s]", comment))

	if err := s.Store.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	s.Logger.Info().Str("resource", rec.Resource.String()).Int64("id", id).Msg("case closed")
	return rec, nil
}

// =============================================================================
// SHORTFALL OVERRIDE
// =============================================================================

// SetShortfall overrides the stored additional-days value. Setting it to
// exactly zero forces the status closed.
func (s *Service) SetShortfall(ctx context.Context, id int64, days decimal.Decimal, actor string) (*report.UtilizationRecord, error) {
	if days.IsNegative() {
		return nil, fmt.Errorf("shortfall cannot be negative: %s", days)
	}

	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := report.NewAuditEntry(rec.Date, rec.Resource, report.AuditEdited,
		"additional_days", rec.AdditionalDays.String(), days.String(),
		"Additional days overridden")
	entry.Actor = actor
	if err := s.Store.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	wasOpen := rec.Status == report.StatusOpen
	rec.AdditionalDays = days
	if days.IsZero() {
		rec.Status = report.StatusClosed
	}

	if wasOpen && rec.Status == report.StatusClosed {
		statusEntry := report.NewAuditEntry(rec.Date, rec.Resource, report.AuditClosed,
			"status", string(report.StatusOpen), string(report.StatusClosed),
			"Closed - shortfall set to zero")
		statusEntry.Actor = actor
		if err := s.Store.AppendAudit(ctx, statusEntry); err != nil {
			return nil, err
		}
	}

	if err := s.Store.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// =============================================================================
// BILLABLE-HOURS EDIT
// =============================================================================

// UpdateBillableHours corrects the weekly billable actual and recomputes
// everything derived from it, using the carry-forward already stored on
// the record.
func (s *Service) UpdateBillableHours(ctx context.Context, id int64, hours decimal.Decimal, actor string) (*report.UtilizationRecord, error) {
	if hours.IsNegative() {
		return nil, fmt.Errorf("billable hours cannot be negative: %s", hours)
	}

	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := report.NewAuditEntry(rec.Date, rec.Resource, report.AuditEdited,
		"billable_hours", rec.BillableHours.String(), hours.String(),
		"Billable hours updated")
	entry.Actor = actor
	if err := s.Store.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	wasOpen := rec.Status == report.StatusOpen
	week := report.NewWeekContext(rec.Date)

	rec.BillableHours = hours
	rec.WTDActuals = hours.Div(report.HoursPerDay)
	rec.Categories.Billable = rec.WTDActuals
	rec.GrandTotal = rec.Categories.GrandTotal()
	rec.TotalLogged = report.TotalLogged(hours, rec.Categories.Vacation, rec.LastWeek)

	outcome := report.Evaluate(rec.Billing, rec.TotalLogged, week.RequiredDays)
	rec.AdditionalDays = outcome.AdditionalDays
	rec.Status = outcome.Status
	if rec.Capacity.IsPositive() {
		rec.IndividualUtilization = hours.Div(rec.Capacity).
			Mul(decimal.NewFromInt(100)).Round(2)
	}

	if wasOpen && rec.Status == report.StatusClosed {
		rec.Comments = appendComment(rec.Comments,
			"[Closed: Automatically closed - Required hours met]")
		statusEntry := report.NewAuditEntry(rec.Date, rec.Resource, report.AuditClosed,
			"status", string(report.StatusOpen), string(report.StatusClosed),
			"Automatically closed - Required hours met")
		statusEntry.Actor = actor
		if err := s.Store.AppendAudit(ctx, statusEntry); err != nil {
			return nil, err
		}
	}

	if err := s.Store.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	s.Logger.Info().
		Str("resource", rec.Resource.String()).
		Str("hours", hours.String()).
		Str("status", string(rec.Status)).
		Msg("billable hours updated")
	return rec, nil
}

// =============================================================================
// COMMENTS
// =============================================================================

// UpdateComments replaces the free-text comments.
func (s *Service) UpdateComments(ctx context.Context, id int64, comments, actor string) (*report.UtilizationRecord, error) {
	return s.updateText(ctx, id, "comments", comments, actor, func(rec *report.UtilizationRecord) *string {
		return &rec.Comments
	})
}

// UpdateReviewerComments replaces the reviewer's comment field.
func (s *Service) UpdateReviewerComments(ctx context.Context, id int64, comments, actor string) (*report.UtilizationRecord, error) {
	return s.updateText(ctx, id, "reviewer_comments", comments, actor, func(rec *report.UtilizationRecord) *string {
		return &rec.ReviewerComments
	})
}

func (s *Service) updateText(ctx context.Context, id int64, field, value, actor string, pick func(*report.UtilizationRecord) *string) (*report.UtilizationRecord, error) {
	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	target := pick(rec)
	entry := report.NewAuditEntry(rec.Date, rec.Resource, report.AuditEdited,
		field, *target, value, "Comment updated")
	entry.Actor = actor
	if err := s.Store.AppendAudit(ctx, entry); err != nil {
		return nil, err
	}

	*target = value
	if err := s.Store.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func appendComment(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return addition
	}
	return existing + " " + addition
}
