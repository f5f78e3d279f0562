/*
carryforward_test.go - Tests for cross-week shortfall resolution
*/
package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FirstWeekSkipsLookup(t *testing.T) {
	called := false
	resolver := CarryForwardResolver{
		Week: NewWeekContext(time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC)),
		Lookup: PriorWeekLookupFunc(func(context.Context, ResourceID, time.Time) (decimal.Decimal, bool, error) {
			called = true
			return d(99), true, nil
		}),
	}

	carry, err := resolver.Resolve(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, carry.IsZero())
	assert.False(t, called, "week 1 never consults the lookup")
}

func TestResolve_PriorShortfallReturned(t *testing.T) {
	week := NewWeekContext(time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC))
	resolver := CarryForwardResolver{
		Week: week,
		Lookup: PriorWeekLookupFunc(func(_ context.Context, id ResourceID, date time.Time) (decimal.Decimal, bool, error) {
			assert.Equal(t, ResourceID("a@example.com"), id)
			assert.Equal(t, week.PrevWeekDate, date)
			return d(1.5), true, nil
		}),
	}

	carry, err := resolver.Resolve(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, carry.Equal(d(1.5)))
}

func TestResolve_MissingPriorRecordIsZero(t *testing.T) {
	resolver := CarryForwardResolver{
		Week: NewWeekContext(time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)),
		Lookup: PriorWeekLookupFunc(func(context.Context, ResourceID, time.Time) (decimal.Decimal, bool, error) {
			return decimal.Zero, false, nil
		}),
	}

	carry, err := resolver.Resolve(context.Background(), "new.hire@example.com")
	require.NoError(t, err)
	assert.True(t, carry.IsZero())
}

func TestResolve_NilLookupIsZero(t *testing.T) {
	resolver := CarryForwardResolver{
		Week: NewWeekContext(time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)),
	}
	carry, err := resolver.Resolve(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, carry.IsZero())
}

func TestResolve_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("store unavailable")
	resolver := CarryForwardResolver{
		Week: NewWeekContext(time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)),
		Lookup: PriorWeekLookupFunc(func(context.Context, ResourceID, time.Time) (decimal.Decimal, bool, error) {
			return decimal.Zero, false, boom
		}),
	}
	_, err := resolver.Resolve(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, boom)
}
