/*
builder_test.go - Tests for the pivot and merge steps

Tests for:
- Grouping month-to-date rows into category day totals
- Unknown work-type collection
- Left-join of pivoted rows to weekly actuals
*/
package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPivot_GroupsByResourceAndCategory(t *testing.T) {
	rows := []MonthRow{
		{Resource: "a@example.com", WorkType: "Billable", Hours: d(16)},
		{Resource: "a@example.com", WorkType: "Billable", Hours: d(8)},
		{Resource: "a@example.com", WorkType: "Vacation", Hours: d(8)},
		{Resource: "b@example.com", WorkType: "Training", Hours: d(4)},
	}

	pivoted, skipped := Pivot(rows)
	require.Len(t, pivoted, 2)
	assert.Empty(t, skipped)

	// Sorted by resource.
	a, b := pivoted[0], pivoted[1]
	assert.Equal(t, ResourceID("a@example.com"), a.Resource)
	assert.True(t, a.Categories.Billable.Equal(d(3)), "24h / 8 = 3 days")
	assert.True(t, a.Categories.Vacation.Equal(d(1)))
	assert.True(t, a.GrandTotal.Equal(d(4)))

	assert.Equal(t, ResourceID("b@example.com"), b.Resource)
	assert.True(t, b.Categories.Training.Equal(d(0.5)))
	assert.True(t, b.GrandTotal.Equal(d(0.5)))
}

func TestPivot_WorkTypeVariants(t *testing.T) {
	rows := []MonthRow{
		{Resource: "a@example.com", WorkType: "Dept Mgmt", Hours: d(8)},
		{Resource: "a@example.com", WorkType: "DEPARTMENT MGMT", Hours: d(8)},
		{Resource: "a@example.com", WorkType: "pre-sales", Hours: d(8)},
	}

	pivoted, skipped := Pivot(rows)
	require.Len(t, pivoted, 1)
	assert.Empty(t, skipped)
	assert.True(t, pivoted[0].Categories.DeptMgmt.Equal(d(2)))
	assert.True(t, pivoted[0].Categories.Presales.Equal(d(1)))
}

func TestPivot_SkipsUnknownWorkTypes(t *testing.T) {
	rows := []MonthRow{
		{Resource: "a@example.com", WorkType: "Billable", Hours: d(8)},
		{Resource: "a@example.com", WorkType: "Jury Duty", Hours: d(8)},
		{Resource: "b@example.com", WorkType: "Jury Duty", Hours: d(8)},
	}

	pivoted, skipped := Pivot(rows)
	require.Len(t, pivoted, 1)
	assert.Equal(t, []string{"Jury Duty"}, skipped, "deduplicated")
	assert.True(t, pivoted[0].GrandTotal.Equal(d(1)), "unknown rows contribute nothing")
}

func TestPivot_DropsEmptyResource(t *testing.T) {
	rows := []MonthRow{
		{Resource: "", WorkType: "Billable", Hours: d(8)},
	}
	pivoted, skipped := Pivot(rows)
	assert.Empty(t, pivoted)
	assert.Empty(t, skipped)
}

func TestMergeActuals_LeftJoin(t *testing.T) {
	pivoted, _ := Pivot([]MonthRow{
		{Resource: "a@example.com", WorkType: "Billable", Hours: d(24)},
		{Resource: "b@example.com", WorkType: "Billable", Hours: d(16)},
	})
	weekly := []WeeklyRow{
		{Consultant: "a@example.com", Capacity: d(40), BillableHours: d(30)},
		// c is only in the weekly sheet. It contributes nothing to the
		// merged rows: cardinality follows the month-to-date table.
		{Consultant: "c@example.com", Capacity: d(40), BillableHours: d(40)},
	}

	merged := MergeActuals(pivoted, weekly)
	require.Len(t, merged, 2)

	a := merged[0]
	assert.True(t, a.BillableHours.Equal(d(30)))
	assert.True(t, a.WTDActuals.Equal(d(3.75)))
	assert.True(t, a.Utilization.Equal(d(75)))

	// b has no weekly match: zero actuals, never dropped.
	b := merged[1]
	assert.Equal(t, ResourceID("b@example.com"), b.Resource)
	assert.True(t, b.BillableHours.IsZero())
	assert.True(t, b.WTDActuals.IsZero())
	assert.True(t, b.Utilization.IsZero())
	assert.True(t, b.GrandTotal.Equal(d(2)), "pivot totals survive the merge")
}

func TestMergeActuals_ZeroCapacityNoDivide(t *testing.T) {
	pivoted := []PivotRow{{Resource: "a@example.com"}}
	weekly := []WeeklyRow{{Consultant: "a@example.com", Capacity: decimal.Zero, BillableHours: d(10)}}

	merged := MergeActuals(pivoted, weekly)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].Utilization.IsZero())
}
