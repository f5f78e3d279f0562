/*
week.go - Report week derivation from the source file name

PURPOSE:
  The weekly workbook embeds its report date in the file name
  (e.g. "Utilization Report 10Apr2025.xlsx"). Everything downstream keys
  off that date: the week-of-month index, the required-days target, the
  month-name column of the MTD sheet, and the prior week used for
  carry-forward.

WEEK INDEXING:
  weekIndex = (day-1)/7 + 1, so days 1-7 are week 1, 8-14 week 2, and so
  on. Days 29-31 land in week 5; required days for such a week is 25.
  That is the established business rule, not an off-by-one.
*/
package report

import (
	"path/filepath"
	"strings"
	"time"
)

// dateTokenLayout matches tokens like 10Apr2025: day, three-letter month
// abbreviation, four-digit year.
const dateTokenLayout = "02Jan2006"

// dateTokenLen bounds the prefix of each segment tried against the layout,
// so suffixes like "10Apr2025-final" still parse.
const dateTokenLen = 9

// WeekContext carries everything derived from the report date. It lives
// for one ingestion run and is never persisted.
type WeekContext struct {
	Date         time.Time
	PrevWeekDate time.Time
	WeekIndex    int
	RequiredDays int
	MonthName    string
}

// ParseWeekContext extracts the embedded date token from a workbook file
// name and derives the week context. The base name (extension stripped) is
// split on whitespace; the first segment whose leading 9 characters parse
// as DDMonYYYY wins. Returns an InvalidFilenameError when no segment
// parses.
func ParseWeekContext(filename string) (WeekContext, error) {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, segment := range strings.Fields(base) {
		token := segment
		if len(token) > dateTokenLen {
			token = token[:dateTokenLen]
		}
		parsed, err := time.Parse(dateTokenLayout, token)
		if err != nil {
			continue
		}
		return NewWeekContext(parsed), nil
	}

	return WeekContext{}, &InvalidFilenameError{Filename: filepath.Base(filename)}
}

// NewWeekContext derives the week context for a report date.
func NewWeekContext(date time.Time) WeekContext {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	weekIndex := (date.Day()-1)/7 + 1
	return WeekContext{
		Date:         date,
		PrevWeekDate: date.AddDate(0, 0, -7),
		WeekIndex:    weekIndex,
		RequiredDays: weekIndex * 5,
		MonthName:    date.Month().String(),
	}
}

// FirstWeek reports whether this is the first report week of the month,
// i.e. there is no prior week to carry forward from.
func (w WeekContext) FirstWeek() bool { return w.WeekIndex <= 1 }
