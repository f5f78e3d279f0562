/*
workbook_test.go - Tests for workbook loading and export

Tests for:
- Extension gating
- Header sniffing across banner rows
- Cost-center filtering of both sheets
- Month-to-date empty-cell drop rule
- Export round-trip
*/
package workbook

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/utilization-engine/report"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

// buildFixture assembles an in-memory source workbook with the banner rows
// and both sheets the loader expects.
func buildFixture(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetWeekly)
	_, err := f.NewSheet(SheetMonthToDate)
	require.NoError(t, err)

	// WTD sheet: two banner rows, then the header on row 3.
	weekly := [][]interface{}{
		{"Weekly Utilization"},
		{},
		{ColConsultant, ColManager, ColCapacity, ColBillable, ColUtilization, ColWeeklyCC},
		{"Avery.Quinn@example.com", "Morgan Blake", 40, 30, 75, CostCenter},
		{"Jordan.Lee@example.com", "Morgan Blake", 40, 12, 30, CostCenter},
		{"Outside.Org@example.com", "Someone Else", 40, 40, 100, "999999"},
	}
	for i, row := range weekly {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(SheetWeekly, cell, &row))
	}

	// Consultant Summary sheet: one banner row, header on row 2. The
	// hours column is named after the report month.
	mtd := [][]interface{}{
		{"Month To Date"},
		{ColResourceEmail, ColProjectNumber, ColProjectName, ColWorkType, "April", ColMonthCC},
		{"Avery.Quinn@example.com", "P-100", "Acme Rollout", "Billable", 24, CostCenter},
		{"Avery.Quinn@example.com", "P-101", "Internal", "Vacation", 8, CostCenter},
		{"Jordan.Lee@example.com", "P-102", "Beta Build", "Billable", "", CostCenter}, // empty hours: dropped
		{"Jordan.Lee@example.com", "P-103", "Beta Build", "Training", 4, CostCenter},
		{"Outside.Org@example.com", "P-900", "Elsewhere", "Billable", 40, "999999"},
	}
	for i, row := range mtd {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(SheetMonthToDate, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func openFixture(t *testing.T) *Workbook {
	t.Helper()
	wb, err := OpenReader(buildFixture(t), "Utilization Report 10Apr2025.xlsx")
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

// =============================================================================
// FORMAT GATING
// =============================================================================

func TestOpenReader_RejectsUnknownExtension(t *testing.T) {
	for _, name := range []string{"report 10Apr2025.xlsb", "report 10Apr2025.xls", "report 10Apr2025.csv"} {
		_, err := OpenReader(bytes.NewReader(nil), name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, report.ErrUnsupportedFormat), name)
	}
}

func TestOpen_RejectsUnknownExtension(t *testing.T) {
	_, err := Open("/tmp/report 10Apr2025.xlsb")
	var ufe *report.UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, ".xlsb", ufe.Extension)
}

// =============================================================================
// HEADER SNIFFING
// =============================================================================

func TestLocateHeader_SkipsBannerRows(t *testing.T) {
	wb := openFixture(t)

	offset, err := wb.LocateHeader(SheetWeekly, ColConsultant)
	require.NoError(t, err)
	assert.Equal(t, 2, offset)

	offset, err = wb.LocateHeader(SheetMonthToDate, ColResourceEmail)
	require.NoError(t, err)
	assert.Equal(t, 1, offset)
}

func TestLocateHeader_ExhaustedScanFails(t *testing.T) {
	wb := openFixture(t)

	_, err := wb.LocateHeader(SheetWeekly, "No Such Column")
	require.Error(t, err)
	assert.True(t, errors.Is(err, report.ErrHeaderNotFound))

	var hnf *HeaderNotFoundError
	require.True(t, errors.As(err, &hnf))
	assert.Equal(t, SheetWeekly, hnf.Sheet)
}

// =============================================================================
// TABLE EXTRACTION
// =============================================================================

func TestLoadWeekly_FiltersCostCenter(t *testing.T) {
	wb := openFixture(t)

	rows, err := wb.LoadWeekly()
	require.NoError(t, err)
	require.Len(t, rows, 2, "foreign cost center filtered out")

	assert.Equal(t, report.ResourceID("avery.quinn@example.com"), rows[0].Consultant)
	assert.Equal(t, "Morgan Blake", rows[0].Manager)
	assert.True(t, rows[0].Capacity.Equal(decimal.NewFromInt(40)))
	assert.True(t, rows[0].BillableHours.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, report.ResourceID("jordan.lee@example.com"), rows[1].Consultant)
}

func TestLoadMonthToDate_FiltersAndDrops(t *testing.T) {
	wb := openFixture(t)

	rows, err := wb.LoadMonthToDate("April")
	require.NoError(t, err)
	require.Len(t, rows, 3, "empty month cell and foreign cost center dropped")

	assert.Equal(t, report.ResourceID("avery.quinn@example.com"), rows[0].Resource)
	assert.Equal(t, "Billable", rows[0].WorkType)
	assert.True(t, rows[0].Hours.Equal(decimal.NewFromInt(24)))
	assert.Equal(t, "Vacation", rows[1].WorkType)
	assert.Equal(t, report.ResourceID("jordan.lee@example.com"), rows[2].Resource)
	assert.Equal(t, "Training", rows[2].WorkType)
}

func TestLoadMonthToDate_MissingMonthColumn(t *testing.T) {
	wb := openFixture(t)

	_, err := wb.LoadMonthToDate("May")
	require.Error(t, err)
	assert.True(t, errors.Is(err, report.ErrMissingColumn))

	var mce *report.MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "May", mce.Column)
}

// =============================================================================
// EXPORT
// =============================================================================

func TestWriteReport_RoundTrip(t *testing.T) {
	rec := report.UtilizationRecord{
		Resource:       "avery.quinn@example.com",
		Date:           time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC),
		GrandTotal:     decimal.NewFromFloat(4.5),
		BillableHours:  decimal.NewFromInt(30),
		WTDActuals:     decimal.NewFromFloat(3.75),
		TotalLogged:    decimal.NewFromFloat(31.5),
		AdditionalDays: decimal.NewFromFloat(1.25),
		Billing:        report.BillingFull,
		Status:         report.StatusOpen,
		Owner:          "Morgan Blake",
		Comments:       "needs review",
	}
	rec.Categories.Billable = decimal.NewFromFloat(3.75)

	f, err := WriteReport("Utilization Report", []report.UtilizationRecord{rec})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Utilization Report")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, exportHeaders, rows[0])

	got := rows[1]
	assert.Equal(t, "avery.quinn@example.com", got[0])
	assert.Equal(t, "3.75", got[2])   // Billable category
	assert.Equal(t, "4.5", got[9])    // Grand Total
	assert.Equal(t, "30", got[10])    // Billable Hours
	assert.Equal(t, "1.25", got[14])  // Additional Days
	assert.Equal(t, "Billing", got[17])
	assert.Equal(t, "open", got[18])
	assert.Equal(t, "2025-04-10", got[len(got)-1])
}
