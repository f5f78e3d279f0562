/*
Package ingest runs the weekly report-generation pipeline.

PURPOSE:
  One Run object per workbook, job-scoped - no package-level state. The
  pipeline is synchronous and serial:

    1. Parse the report date from the file name (week context)
    2. Open the workbook and extract the weekly + month-to-date tables
    3. Pivot month-to-date hours into category day totals, merge actuals
    4. Load reference data (billing map, exclusion list) wholesale
    5. Resolve each resource's prior-week carry-forward
    6. Apply the status & shortfall rules plus the exclusion pass
    7. Compute run-level utilization metrics
    8. Bulk-write the week through ReplaceWeek (delete-then-recreate)

FAILURE POLICY:
  Filename, format, and header errors abort the run before any store
  write. Empty reference data degrades: an empty billing map classifies
  everyone TBD, an empty exclusion list excludes no one; both log a
  warning. Per-row numeric gaps default to zero at the workbook boundary.

IDEMPOTENCE:
  Re-running the same workbook for the same week replaces the week's rows
  with identical content.
*/
package ingest

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/utilization-engine/report"
	"github.com/warp/utilization-engine/workbook"
)

// Store is the persistence surface the pipeline needs: one bulk write,
// the reference reads, and the prior-week lookup.
type Store interface {
	report.PriorWeekLookup

	ReplaceWeek(ctx context.Context, date time.Time, records []report.UtilizationRecord) error
	BillingMap(ctx context.Context) (report.BillingMap, error)
	Exclusions(ctx context.Context) (report.ExclusionSet, error)
}

// Runner executes ingestion runs against a store.
type Runner struct {
	Store  Store
	Logger zerolog.Logger
}

func NewRunner(store Store, logger zerolog.Logger) *Runner {
	return &Runner{Store: store, Logger: logger}
}

// Result summarizes one completed run.
type Result struct {
	Week    report.WeekContext
	Records []report.UtilizationRecord

	OrgUtilization     decimal.Decimal
	CapableUtilization decimal.Decimal
	TotalCapacity      decimal.Decimal

	SkippedWorkTypes []string
}

// Run ingests a workbook from disk.
func (r *Runner) Run(ctx context.Context, path string) (*Result, error) {
	week, err := report.ParseWeekContext(path)
	if err != nil {
		return nil, err
	}

	wb, err := workbook.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	return r.run(ctx, wb, week, filepath.Base(path))
}

// RunReader ingests a workbook from a stream (uploads). The original file
// name still drives the week context and the format check.
func (r *Runner) RunReader(ctx context.Context, src io.Reader, filename string) (*Result, error) {
	week, err := report.ParseWeekContext(filename)
	if err != nil {
		return nil, err
	}

	wb, err := workbook.OpenReader(src, filename)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	return r.run(ctx, wb, week, filename)
}

func (r *Runner) run(ctx context.Context, wb *workbook.Workbook, week report.WeekContext, filename string) (*Result, error) {
	log := r.Logger.With().
		Str("file", filename).
		Str("date", week.Date.Format("2006-01-02")).
		Int("week", week.WeekIndex).
		Logger()
	log.Info().Int("required_days", week.RequiredDays).Msg("starting ingestion run")

	// Extraction. Any failure here aborts the run; nothing is written.
	weekly, err := wb.LoadWeekly()
	if err != nil {
		return nil, err
	}
	monthRows, err := wb.LoadMonthToDate(week.MonthName)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("weekly_rows", len(weekly)).
		Int("mtd_rows", len(monthRows)).
		Msg("tables extracted")

	pivoted, skipped := report.Pivot(monthRows)
	for _, workType := range skipped {
		log.Warn().Str("work_type", workType).Msg("work type outside taxonomy, skipped")
	}
	merged := report.MergeActuals(pivoted, weekly)

	// Reference data, read wholesale. Empty sets degrade with a warning.
	billingMap, err := r.Store.BillingMap(ctx)
	if err != nil {
		return nil, err
	}
	if len(billingMap) == 0 {
		log.Warn().Err(report.ErrMissingReferenceData).
			Msg("billing map empty, classifying all resources TBD")
	}
	exclusions, err := r.Store.Exclusions(ctx)
	if err != nil {
		return nil, err
	}
	if len(exclusions) == 0 {
		log.Warn().Err(report.ErrMissingReferenceData).
			Msg("exclusion list empty, no exclusions applied")
	}

	resolver := report.CarryForwardResolver{Week: week, Lookup: r.Store}

	records := make([]report.UtilizationRecord, 0, len(merged))
	for _, row := range merged {
		carry, err := resolver.Resolve(ctx, row.Resource)
		if err != nil {
			return nil, err
		}

		info := billingMap.Lookup(row.Resource)
		totalLogged := report.TotalLogged(row.BillableHours, row.Categories.Vacation, carry)
		outcome := report.Evaluate(info.Billing, totalLogged, week.RequiredDays)
		status := report.ApplyExclusion(outcome.Status, row.Resource, exclusions)

		records = append(records, report.UtilizationRecord{
			Resource:              row.Resource,
			Date:                  week.Date,
			Categories:            row.Categories,
			GrandTotal:            row.GrandTotal,
			BillableHours:         row.BillableHours,
			WTDActuals:            row.WTDActuals,
			Capacity:              row.Capacity,
			LastWeek:              carry,
			TotalLogged:           totalLogged,
			AdditionalDays:        outcome.AdditionalDays,
			Billing:               info.Billing,
			Status:                status,
			Track:                 info.Track,
			Owner:                 info.Owner,
			IndividualUtilization: row.Utilization,
		})
	}

	result := &Result{Week: week, Records: records, SkippedWorkTypes: skipped}
	r.applyMetrics(result, weekly)

	if err := r.Store.ReplaceWeek(ctx, week.Date, result.Records); err != nil {
		return nil, err
	}

	open := 0
	for _, rec := range result.Records {
		if rec.Status == report.StatusOpen {
			open++
		}
	}
	log.Info().
		Int("records", len(result.Records)).
		Int("open", open).
		Str("org_utilization", result.OrgUtilization.String()).
		Msg("ingestion run complete")

	return result, nil
}

// applyMetrics computes the run-level utilization figures over the weekly
// table and stamps them onto every record.
func (r *Runner) applyMetrics(result *Result, weekly []report.WeeklyRow) {
	totalCapacity := decimal.Zero
	totalBillable := decimal.Zero
	for _, w := range weekly {
		totalCapacity = totalCapacity.Add(w.Capacity)
		totalBillable = totalBillable.Add(w.BillableHours)
	}

	totalAdditional := decimal.Zero
	for _, rec := range result.Records {
		totalAdditional = totalAdditional.Add(rec.AdditionalDays)
	}

	hundred := decimal.NewFromInt(100)
	if totalCapacity.IsPositive() {
		result.OrgUtilization = totalBillable.Div(totalCapacity).Mul(hundred).Round(2)
		capableHours := totalBillable.Add(totalAdditional.Mul(report.HoursPerDay))
		result.CapableUtilization = capableHours.Div(totalCapacity).Mul(hundred).Round(2)
	}
	result.TotalCapacity = totalCapacity

	for i := range result.Records {
		result.Records[i].OrgUtilization = result.OrgUtilization
		result.Records[i].CapableUtilization = result.CapableUtilization
		result.Records[i].TotalCapacity = totalCapacity
	}
}
