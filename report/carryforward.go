/*
carryforward.go - Cross-week shortfall resolution

PURPOSE:
  A resource that ended last week short still owes those days this week.
  The resolver looks up last week's stored shortfall and folds it into the
  current week's logged baseline.

  The lookup is an injected port rather than direct store access so the
  rules engine and resolver stay unit-testable without a database.

RULES:
  - Week 1 of the month: carry-forward is always zero; the lookup is not
    consulted at all.
  - Missing prior record: zero, not an error.
  - Matching is by exact resource identifier, case-insensitive (ResourceID
    normalization handles the casing).
*/
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriorWeekLookup resolves a resource's stored shortfall for a given
// report date. ok is false when no record exists for that (resource, date).
type PriorWeekLookup interface {
	PriorShortfall(ctx context.Context, id ResourceID, date time.Time) (shortfall decimal.Decimal, ok bool, err error)
}

// PriorWeekLookupFunc adapts a function to the PriorWeekLookup interface.
type PriorWeekLookupFunc func(ctx context.Context, id ResourceID, date time.Time) (decimal.Decimal, bool, error)

func (f PriorWeekLookupFunc) PriorShortfall(ctx context.Context, id ResourceID, date time.Time) (decimal.Decimal, bool, error) {
	return f(ctx, id, date)
}

// CarryForwardResolver resolves each resource's prior-week shortfall for
// one report week.
type CarryForwardResolver struct {
	Week   WeekContext
	Lookup PriorWeekLookup
}

// Resolve returns the carry-forward for a resource. Zero for week 1, for
// missing prior records, and for a nil lookup.
func (r CarryForwardResolver) Resolve(ctx context.Context, id ResourceID) (decimal.Decimal, error) {
	if r.Week.FirstWeek() || r.Lookup == nil {
		return decimal.Zero, nil
	}
	shortfall, ok, err := r.Lookup.PriorShortfall(ctx, id, r.Week.PrevWeekDate)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return shortfall, nil
}
