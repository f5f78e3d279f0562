/*
review_test.go - Tests for the manual-override service

Tests run against a real in-memory SQLite store so the audit and
optimistic-concurrency paths are exercised end to end.
*/
package review

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/utilization-engine/report"
	"github.com/warp/utilization-engine/store/sqlite"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func reportDate() time.Time {
	return time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC) // week 2, 10 required days
}

// seedRecord persists one open billing record and returns its id.
func seedRecord(t *testing.T, store *sqlite.Store, mutate func(*report.UtilizationRecord)) (int64, *Service) {
	t.Helper()

	rec := report.UtilizationRecord{
		Resource:       report.NewResourceID("avery.quinn@example.com"),
		Date:           reportDate(),
		BillableHours:  d(24),
		WTDActuals:     d(3),
		Capacity:       d(40),
		LastWeek:       d(1),
		TotalLogged:    d(25),
		AdditionalDays: d(2),
		Billing:        report.BillingFull,
		Status:         report.StatusOpen,
	}
	rec.Categories.Billable = d(3)
	rec.Categories.Vacation = d(1)
	if mutate != nil {
		mutate(&rec)
	}

	require.NoError(t, store.ReplaceWeek(context.Background(), reportDate(),
		[]report.UtilizationRecord{rec}))
	return rec.ID, NewService(store, zerolog.Nop())
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// =============================================================================
// CLOSE CASE
// =============================================================================

func TestCloseCase(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, nil)
	ctx := context.Background()

	rec, err := svc.CloseCase(ctx, id, "approved offline", "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, report.StatusClosed, rec.Status)
	assert.Contains(t, rec.Comments, "[Closed: approved offline]")

	entries, err := store.AuditTrail(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, report.AuditClosed, entries[0].Action)
	assert.Equal(t, "reviewer@example.com", entries[0].Actor)

	// Closing again is a no-op: no new audit entry, no comment growth.
	again, err := svc.CloseCase(ctx, id, "second attempt", "reviewer@example.com")
	require.NoError(t, err)
	assert.NotContains(t, again.Comments, "second attempt")

	entries, err = store.AuditTrail(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCloseCase_MissingRecord(t *testing.T) {
	store := newStore(t)
	svc := NewService(store, zerolog.Nop())

	_, err := svc.CloseCase(context.Background(), 999, "x", "reviewer@example.com")
	require.Error(t, err)
	assert.True(t, report.IsNotFound(err))
}

// =============================================================================
// SHORTFALL OVERRIDE
// =============================================================================

func TestSetShortfall_ZeroCloses(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, nil)
	ctx := context.Background()

	rec, err := svc.SetShortfall(ctx, id, decimal.Zero, "reviewer@example.com")
	require.NoError(t, err)
	assert.True(t, rec.AdditionalDays.IsZero())
	assert.Equal(t, report.StatusClosed, rec.Status)

	// Edit entry plus the forced-close status entry.
	entries, err := store.AuditTrail(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSetShortfall_NonzeroKeepsStatus(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, nil)

	rec, err := svc.SetShortfall(context.Background(), id, d(3.5), "reviewer@example.com")
	require.NoError(t, err)
	assert.True(t, rec.AdditionalDays.Equal(d(3.5)))
	assert.Equal(t, report.StatusOpen, rec.Status)
}

func TestSetShortfall_NegativeRejected(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, nil)

	_, err := svc.SetShortfall(context.Background(), id, d(-1), "reviewer@example.com")
	require.Error(t, err)

	// Nothing written, nothing audited.
	entries, err := store.AuditTrail(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// BILLABLE-HOURS RECOMPUTE
// =============================================================================

func TestUpdateBillableHours_Recompute(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, nil)

	// 48 raw hours plus 1 vacation day and 1 carried forward clears the
	// week-2 target, so the recompute closes the case.
	rec, err := svc.UpdateBillableHours(context.Background(), id, d(48), "reviewer@example.com")
	require.NoError(t, err)

	assert.True(t, rec.BillableHours.Equal(d(48)))
	assert.True(t, rec.WTDActuals.Equal(d(6)))
	assert.True(t, rec.Categories.Billable.Equal(d(6)))
	assert.True(t, rec.GrandTotal.Equal(d(7)), "billable + vacation buckets")
	assert.Equal(t, report.StatusClosed, rec.Status)
	assert.True(t, rec.AdditionalDays.IsZero())
	assert.Contains(t, rec.Comments, "[Closed: Automatically closed - Required hours met]")
	assert.True(t, rec.IndividualUtilization.Equal(d(120)), "48 / 40 * 100")
}

func TestUpdateBillableHours_StillShort(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, func(rec *report.UtilizationRecord) {
		rec.Categories.Vacation = decimal.Zero
		rec.LastWeek = decimal.Zero
	})

	rec, err := svc.UpdateBillableHours(context.Background(), id, d(4), "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, report.StatusOpen, rec.Status)
	assert.True(t, rec.AdditionalDays.Equal(d(6)), "10 required - 4 logged")
	assert.NotContains(t, rec.Comments, "[Closed:")
}

func TestUpdateBillableHours_NegativeRejected(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, nil)

	_, err := svc.UpdateBillableHours(context.Background(), id, d(-8), "reviewer@example.com")
	require.Error(t, err)
}

// =============================================================================
// COMMENTS
// =============================================================================

func TestUpdateComments(t *testing.T) {
	store := newStore(t)
	id, svc := seedRecord(t, store, nil)
	ctx := context.Background()

	rec, err := svc.UpdateComments(ctx, id, "follow up next week", "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "follow up next week", rec.Comments)

	rec, err = svc.UpdateReviewerComments(ctx, id, "confirmed with manager", "lead@example.com")
	require.NoError(t, err)
	assert.Equal(t, "confirmed with manager", rec.ReviewerComments)

	entries, err := store.AuditTrail(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
