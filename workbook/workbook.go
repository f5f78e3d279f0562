/*
Package workbook loads and writes utilization spreadsheets.

PURPOSE:
  The weekly source workbook is a columnar Excel file with two sheets of
  interest: "WTD" (per-resource weekly capacity and billable hours) and
  "Consultant Summary" (month-to-date hours per resource/project/work-type).
  Neither sheet has its header on row one - decorative banner rows come
  first - so headers are located by content-sniffing over a bounded scan.

EXTRACTION CONTRACT:
  - Fixed extension→engine table; unknown extensions reject the whole
    ingestion with UnsupportedFormatError.
  - LocateHeader scans at most headerScanLimit rows for a cell equal to the
    target label (trimmed). Fatal HeaderNotFoundError when exhausted;
    the loader never guesses an offset.
  - Both tables are filtered to the organization's cost center by trimmed
    string equality. Not a range match, not fuzzy.
  - Month-to-date rows with an empty month-hours cell are dropped before
    further processing; other missing numeric cells default to zero.

SEE ALSO:
  - report/builder.go: consumes the extracted rows
  - export.go: writes stored reports back out as xlsx
*/
package workbook

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/utilization-engine/report"
)

// =============================================================================
// FORMAT TABLE
// =============================================================================

// engineByExt is the fixed extension→engine table. Every OOXML variant maps
// onto the excelize engine; legacy binary formats have no engine here and
// reject the ingestion.
var engineByExt = map[string]string{
	".xlsx": "excelize",
	".xlsm": "excelize",
	".xltx": "excelize",
	".xltm": "excelize",
}

// CostCenter is the organizational cost-center identifier both sheets are
// filtered on.
const CostCenter = "504686"

// headerScanLimit bounds the header sniff. The banner rows in this format
// never exceed a handful; 20 is generous.
const headerScanLimit = 20

// Sheet and column labels of the source format.
const (
	SheetWeekly      = "WTD"
	SheetMonthToDate = "Consultant Summary"

	ColConsultant  = "Consultant Name"
	ColManager     = "Manager Name"
	ColCapacity    = "WTD Capacity"
	ColBillable    = "Billable Hours"
	ColUtilization = "Utl %"
	ColWeeklyCC    = "CC"

	ColResourceEmail = "Resource Email Address"
	ColProjectNumber = "Project Number"
	ColProjectName   = "Project Name"
	ColWorkType      = "Work Type Description-OPS"
	ColMonthCC       = "Cost Center - OPS"
)

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook wraps an opened source file. The whole sheet content is pulled
// into memory once per sheet; runs are single workbook, synchronous.
type Workbook struct {
	file *excelize.File
	rows map[string][][]string // sheet -> cached rows
}

// Open validates the extension against the engine table and opens the file.
func Open(path string) (*Workbook, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := engineByExt[ext]; !ok {
		return nil, &report.UnsupportedFormatError{Extension: ext}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(path), err)
	}
	return &Workbook{file: f, rows: make(map[string][][]string)}, nil
}

// OpenReader opens a workbook from a stream (uploads). The original file
// name is still required for the extension check.
func OpenReader(r io.Reader, filename string) (*Workbook, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := engineByExt[ext]; !ok {
		return nil, &report.UnsupportedFormatError{Extension: ext}
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", filepath.Base(filename), err)
	}
	return &Workbook{file: f, rows: make(map[string][][]string)}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error { return w.file.Close() }

func (w *Workbook) sheetRows(sheet string) ([][]string, error) {
	if cached, ok := w.rows[sheet]; ok {
		return cached, nil
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	w.rows[sheet] = rows
	return rows, nil
}

// =============================================================================
// HEADER SNIFFING
// =============================================================================

// LocateHeader scans the sheet top-to-bottom for a row containing the
// target column label and returns its 0-based offset.
func (w *Workbook) LocateHeader(sheet, column string) (int, error) {
	rows, err := w.sheetRows(sheet)
	if err != nil {
		return 0, err
	}

	limit := headerScanLimit
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) == column {
				return i, nil
			}
		}
	}
	return 0, &HeaderNotFoundError{Sheet: sheet, Column: column, Scanned: limit}
}

// HeaderNotFoundError aliases the report taxonomy so loader callers only
// import one error vocabulary.
type HeaderNotFoundError = report.HeaderNotFoundError

// columnIndex builds a label → column offset map from a header row.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, cell := range header {
		label := strings.TrimSpace(cell)
		if label == "" {
			continue
		}
		if _, dup := idx[label]; !dup {
			idx[label] = i
		}
	}
	return idx
}

// requireColumns resolves each required label, failing closed on the first
// missing one.
func requireColumns(sheet string, header []string, labels []string) (map[string]int, error) {
	idx := columnIndex(header)
	for _, label := range labels {
		if _, ok := idx[label]; !ok {
			return nil, &report.MissingColumnError{Sheet: sheet, Column: label}
		}
	}
	return idx, nil
}

// =============================================================================
// TABLE EXTRACTION
// =============================================================================

// LoadWeekly extracts the filtered weekly table from the WTD sheet.
func (w *Workbook) LoadWeekly() ([]report.WeeklyRow, error) {
	offset, err := w.LocateHeader(SheetWeekly, ColConsultant)
	if err != nil {
		return nil, err
	}
	rows, err := w.sheetRows(SheetWeekly)
	if err != nil {
		return nil, err
	}

	idx, err := requireColumns(SheetWeekly, rows[offset], []string{
		ColConsultant, ColManager, ColCapacity, ColBillable, ColUtilization, ColWeeklyCC,
	})
	if err != nil {
		return nil, err
	}

	var out []report.WeeklyRow
	for _, row := range rows[offset+1:] {
		if cellAt(row, idx[ColWeeklyCC]) != CostCenter {
			continue
		}
		consultant := report.NewResourceID(cellAt(row, idx[ColConsultant]))
		if consultant.IsEmpty() {
			continue
		}
		out = append(out, report.WeeklyRow{
			Consultant:    consultant,
			Manager:       cellAt(row, idx[ColManager]),
			Capacity:      cellDecimal(row, idx[ColCapacity]),
			BillableHours: cellDecimal(row, idx[ColBillable]),
			Utilization:   cellDecimal(row, idx[ColUtilization]),
		})
	}
	return out, nil
}

// LoadMonthToDate extracts the filtered month-to-date table. The hours
// column is named after the report month, so the caller passes the month
// name derived from the file name.
func (w *Workbook) LoadMonthToDate(monthName string) ([]report.MonthRow, error) {
	offset, err := w.LocateHeader(SheetMonthToDate, ColResourceEmail)
	if err != nil {
		return nil, err
	}
	rows, err := w.sheetRows(SheetMonthToDate)
	if err != nil {
		return nil, err
	}

	idx, err := requireColumns(SheetMonthToDate, rows[offset], []string{
		ColResourceEmail, ColProjectNumber, ColProjectName, ColWorkType, monthName, ColMonthCC,
	})
	if err != nil {
		return nil, err
	}

	var out []report.MonthRow
	for _, row := range rows[offset+1:] {
		if cellAt(row, idx[ColMonthCC]) != CostCenter {
			continue
		}
		// Rows without a month-hours value are dropped, not zero-filled.
		if cellAt(row, idx[monthName]) == "" {
			continue
		}
		resource := report.NewResourceID(cellAt(row, idx[ColResourceEmail]))
		if resource.IsEmpty() {
			continue
		}
		out = append(out, report.MonthRow{
			Resource:      resource,
			ProjectNumber: cellAt(row, idx[ColProjectNumber]),
			ProjectName:   cellAt(row, idx[ColProjectName]),
			WorkType:      cellAt(row, idx[ColWorkType]),
			Hours:         cellDecimal(row, idx[monthName]),
		})
	}
	return out, nil
}

// =============================================================================
// CELL HELPERS
// =============================================================================

// cellAt returns a trimmed cell, tolerating the ragged row lengths
// excelize produces for trailing empty cells.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// cellDecimal parses a numeric cell, defaulting malformed or missing
// values to zero.
func cellDecimal(row []string, i int) decimal.Decimal {
	raw := cellAt(row, i)
	if raw == "" {
		return decimal.Zero
	}
	raw = strings.ReplaceAll(raw, ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
