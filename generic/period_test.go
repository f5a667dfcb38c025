package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stipend-engine/generic"
)

func TestMonthPeriod_WorkdayCount(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		want  int
	}{
		{"Feb 2026 starts on a Sunday", 2026, time.February, 20},
		{"Sept 2025 starts on a Monday", 2025, time.September, 22},
		{"Mar 2025", 2025, time.March, 21},
		{"Feb 2024 leap year", 2024, time.February, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := generic.MonthPeriod(tt.year, tt.month)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.WorkdayCount())
			assert.Len(t, p.Workdays(), tt.want)
		})
	}
}

func TestMonthPeriod_RejectsBadMonth(t *testing.T) {
	_, err := generic.MonthPeriod(2025, 13)
	assert.True(t, generic.IsClientError(err))

	_, err = generic.MonthPeriod(2025, 0)
	assert.True(t, generic.IsClientError(err))
}

func TestPeriod_ContainsIsInclusive(t *testing.T) {
	p := generic.MonthOf(generic.NewTimePoint(2025, time.March, 15))

	assert.True(t, p.Contains(generic.NewTimePoint(2025, time.March, 1)))
	assert.True(t, p.Contains(generic.NewTimePoint(2025, time.March, 31)))
	assert.False(t, p.Contains(generic.NewTimePoint(2025, time.April, 1)))
	assert.False(t, p.Contains(generic.NewTimePoint(2025, time.February, 28)))
	assert.Len(t, p.Days(), 31)
}

func TestPeriod_Validate(t *testing.T) {
	p := generic.Period{
		Start: generic.NewTimePoint(2025, time.March, 10),
		End:   generic.NewTimePoint(2025, time.March, 1),
	}
	err := p.Validate()
	assert.True(t, errors.Is(err, generic.ErrInvalidPeriod))
	assert.True(t, generic.IsClientError(err))
}

func TestPeriod_PreviousMonth(t *testing.T) {
	jan := generic.MonthOf(generic.NewTimePoint(2026, time.January, 20))
	dec := jan.PreviousMonth()

	assert.Equal(t, generic.NewTimePoint(2025, time.December, 1), dec.Start)
	assert.Equal(t, generic.NewTimePoint(2025, time.December, 31), dec.End)
}
