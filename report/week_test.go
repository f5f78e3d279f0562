/*
week_test.go - Tests for week context derivation

Tests for:
- Date token extraction from workbook file names
- Week-of-month indexing and required-days targets
*/
package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekContext_EmbeddedDate(t *testing.T) {
	week, err := ParseWeekContext("Utilization Report 10Apr2025.xlsx")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC), week.Date)
	assert.Equal(t, 2, week.WeekIndex)
	assert.Equal(t, 10, week.RequiredDays)
	assert.Equal(t, "April", week.MonthName)
	assert.Equal(t, time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC), week.PrevWeekDate)
}

func TestParseWeekContext_TokenWithSuffix(t *testing.T) {
	// A decorated token still parses off its leading nine characters.
	week, err := ParseWeekContext("report 17Apr2025-final.xlsx")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 17, 0, 0, 0, 0, time.UTC), week.Date)
}

func TestParseWeekContext_FullPath(t *testing.T) {
	week, err := ParseWeekContext("/uploads/2025/Utilization Report 03Jul2025.xlsx")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC), week.Date)
	assert.True(t, week.FirstWeek())
}

func TestParseWeekContext_NoDateToken(t *testing.T) {
	_, err := ParseWeekContext("Utilization Report final.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFilename))

	var ife *InvalidFilenameError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, "Utilization Report final.xlsx", ife.Filename)
}

func TestNewWeekContext_WeekIndexing(t *testing.T) {
	cases := []struct {
		day       int
		weekIndex int
		required  int
	}{
		{1, 1, 5},
		{7, 1, 5},
		{8, 2, 10},
		{14, 2, 10},
		{15, 3, 15},
		{22, 4, 20},
		{28, 4, 20},
		{29, 5, 25},
		{31, 5, 25},
	}
	for _, tc := range cases {
		week := NewWeekContext(time.Date(2025, time.May, tc.day, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, tc.weekIndex, week.WeekIndex, "day %d", tc.day)
		assert.Equal(t, tc.required, week.RequiredDays, "day %d", tc.day)
	}
}

func TestNewWeekContext_NormalizesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	week := NewWeekContext(time.Date(2025, time.April, 10, 17, 45, 12, 0, loc))
	assert.Equal(t, time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC), week.Date)
}

func TestWeekContext_FirstWeek(t *testing.T) {
	assert.True(t, NewWeekContext(time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC)).FirstWeek())
	assert.False(t, NewWeekContext(time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)).FirstWeek())
}
