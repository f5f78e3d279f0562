/*
builder.go - Pivot and merge of extracted workbook rows

PURPOSE:
  Turns the two extracted tables into one row per resource:

  1. Pivot: month-to-date rows (one per resource/project/work-type) are
     grouped by resource and work-type category, summing day equivalents
     (hours / 8) into the fixed category buckets.
  2. GrandTotal: sum of the category buckets, computed after the pivot and
     before any merge-introduced non-numeric data.
  3. MergeActuals: left-join of the pivoted rows to the weekly table on
     resource identifier, bringing in the raw billable-hours actual and its
     day equivalent. Resources absent from the weekly table keep zero
     actuals; they are never dropped.

  Output cardinality: exactly one row per resource appearing in the
  month-to-date table.
*/
package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// HoursPerDay converts logged hours to day equivalents.
var HoursPerDay = decimal.NewFromInt(8)

// =============================================================================
// BOUNDARY ROW TYPES - Produced by the workbook loader
// =============================================================================

// WeeklyRow is one filtered row of the weekly (WTD) sheet.
type WeeklyRow struct {
	Consultant    ResourceID
	Manager       string
	Capacity      decimal.Decimal // weekly capacity, hours
	BillableHours decimal.Decimal // raw hours
	Utilization   decimal.Decimal // percentage as reported
}

// MonthRow is one filtered row of the month-to-date sheet: one
// project/work-type combination for one resource.
type MonthRow struct {
	Resource      ResourceID
	ProjectNumber string
	ProjectName   string
	WorkType      string
	Hours         decimal.Decimal // month-to-date hours for this work type
}

// =============================================================================
// PIVOT
// =============================================================================

// PivotRow is one resource's category totals after the pivot.
type PivotRow struct {
	Resource   ResourceID
	Categories CategoryTotals
	GrandTotal decimal.Decimal
}

// Pivot groups month-to-date rows by resource and work-type category,
// summing day equivalents into the fixed buckets; categories without rows
// stay zero. Descriptions outside the taxonomy are collected in skipped
// for the caller to log. Rows come back sorted by resource for
// deterministic output.
func Pivot(rows []MonthRow) (pivoted []PivotRow, skipped []string) {
	byResource := make(map[ResourceID]*PivotRow)
	seenSkipped := make(map[string]struct{})

	for _, row := range rows {
		if row.Resource.IsEmpty() {
			continue
		}
		cat, ok := CategoryFromWorkType(row.WorkType)
		if !ok {
			if _, dup := seenSkipped[row.WorkType]; !dup {
				seenSkipped[row.WorkType] = struct{}{}
				skipped = append(skipped, row.WorkType)
			}
			continue
		}

		pr, ok := byResource[row.Resource]
		if !ok {
			pr = &PivotRow{Resource: row.Resource}
			byResource[row.Resource] = pr
		}
		pr.Categories.Add(cat, row.Hours.Div(HoursPerDay))
	}

	pivoted = make([]PivotRow, 0, len(byResource))
	for _, pr := range byResource {
		pr.GrandTotal = pr.Categories.GrandTotal()
		pivoted = append(pivoted, *pr)
	}
	sort.Slice(pivoted, func(i, j int) bool {
		return pivoted[i].Resource < pivoted[j].Resource
	})
	sort.Strings(skipped)
	return pivoted, skipped
}

// =============================================================================
// MERGE
// =============================================================================

// MergedRow is a pivot row joined with its weekly actuals.
type MergedRow struct {
	Resource   ResourceID
	Categories CategoryTotals
	GrandTotal decimal.Decimal

	BillableHours decimal.Decimal // raw hours from the weekly sheet
	WTDActuals    decimal.Decimal // hours / 8
	Capacity      decimal.Decimal
	Utilization   decimal.Decimal // individual utilization, percent
}

// MergeActuals left-joins pivoted rows to the weekly table on resource
// identifier. Unmatched resources get zero actuals.
func MergeActuals(pivoted []PivotRow, weekly []WeeklyRow) []MergedRow {
	actuals := make(map[ResourceID]WeeklyRow, len(weekly))
	for _, w := range weekly {
		actuals[w.Consultant] = w
	}

	merged := make([]MergedRow, 0, len(pivoted))
	for _, pr := range pivoted {
		row := MergedRow{
			Resource:   pr.Resource,
			Categories: pr.Categories,
			GrandTotal: pr.GrandTotal,
		}
		if w, ok := actuals[pr.Resource]; ok {
			row.BillableHours = w.BillableHours
			row.WTDActuals = w.BillableHours.Div(HoursPerDay)
			row.Capacity = w.Capacity
			if w.Capacity.IsPositive() {
				row.Utilization = w.BillableHours.Div(w.Capacity).
					Mul(decimal.NewFromInt(100)).Round(2)
			}
		}
		merged = append(merged, row)
	}
	return merged
}
