/*
export.go - Report download as xlsx

PURPOSE:
  Writes stored utilization records back out as a tabular workbook, one row
  per resource per week, with a fixed column ordering that matches the
  category names of the rules engine.
*/
package workbook

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/utilization-engine/report"
)

// exportHeaders is the fixed download column ordering. The category block
// mirrors report.Categories.
var exportHeaders = []string{
	"Resource Email Address",
	"Administrative",
	"Billable",
	"Department Mgmt",
	"Investment",
	"Presales",
	"Training",
	"Unassigned",
	"Vacation",
	"Grand Total",
	"Billable Hours",
	"WTD Actuals",
	"Last Week",
	"Total Logged",
	"Additional Days",
	"Owner",
	"Track",
	"Billing",
	"Status",
	"Comments",
	"Date",
}

// WriteReport renders records into a new workbook under the given sheet
// name. The caller owns the returned file.
func WriteReport(sheetName string, records []report.UtilizationRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header %q: %w", h, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}

	for i, rec := range records {
		values := []interface{}{
			rec.Resource.String(),
			decimalCell(rec.Categories.Administrative),
			decimalCell(rec.Categories.Billable),
			decimalCell(rec.Categories.DeptMgmt),
			decimalCell(rec.Categories.Investment),
			decimalCell(rec.Categories.Presales),
			decimalCell(rec.Categories.Training),
			decimalCell(rec.Categories.Unassigned),
			decimalCell(rec.Categories.Vacation),
			decimalCell(rec.GrandTotal),
			decimalCell(rec.BillableHours),
			decimalCell(rec.WTDActuals),
			decimalCell(rec.LastWeek),
			decimalCell(rec.TotalLogged),
			decimalCell(rec.AdditionalDays),
			rec.Owner,
			rec.Track,
			string(rec.Billing),
			string(rec.Status),
			rec.Comments,
			rec.Date.Format("2006-01-02"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row for %s: %w", rec.Resource, err)
		}
	}

	return f, nil
}

// decimalCell renders at two decimal places, matching the stored report
// display convention.
func decimalCell(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
