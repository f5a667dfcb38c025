package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stipend-engine/generic"
)

// =============================================================================
// DATES
// =============================================================================

func TestParseDate(t *testing.T) {
	d, err := generic.ParseDate("2025-03-08")
	require.NoError(t, err)
	assert.Equal(t, generic.NewTimePoint(2025, time.March, 8), d)
	assert.Equal(t, "2025-03-08", d.String())

	_, err = generic.ParseDate("03/08/2025")
	assert.True(t, generic.IsClientError(err))
	var verr *generic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
}

func TestTimePoint_Weekdays(t *testing.T) {
	sat := generic.NewTimePoint(2025, time.March, 8)
	sun := sat.AddDays(1)
	mon := sat.AddDays(2)

	assert.True(t, sat.IsSaturday())
	assert.True(t, sat.IsWeekend())
	assert.True(t, sun.IsSunday())
	assert.True(t, sun.IsWeekend())
	assert.True(t, mon.IsWorkday())
	assert.False(t, mon.IsWeekend())
}

func TestDateOf_TruncatesToUTCMidnight(t *testing.T) {
	tp := generic.DateOf(time.Date(2025, time.March, 8, 17, 45, 12, 0, time.UTC))
	assert.Equal(t, generic.NewTimePoint(2025, time.March, 8), tp)
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, generic.NewTimePoint(2026, time.February, 28), generic.EndOfMonth(2026, time.February))
	assert.Equal(t, generic.NewTimePoint(2024, time.February, 29), generic.EndOfMonth(2024, time.February))
	assert.Equal(t, generic.NewTimePoint(2025, time.December, 31), generic.EndOfMonth(2025, time.December))
}

// =============================================================================
// CLOCK TIMES
// =============================================================================

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want generic.ClockTime
		ok   bool
	}{
		{"08:30", generic.NewClock(8, 30), true},
		{"08:30:00", generic.NewClock(8, 30), true},
		{"12:00", generic.NewClock(12, 0), true},
		{"8:5", generic.NewClock(8, 5), true},
		{"24:00", 0, false},
		{"08:60", 0, false},
		{"0830", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := generic.ParseClock(tt.in)
			if !tt.ok {
				assert.True(t, generic.IsClientError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockTime_Arithmetic(t *testing.T) {
	start := generic.NewClock(8, 30)
	end := generic.NewClock(10, 30)

	assert.Equal(t, 120, end.Sub(start))
	assert.True(t, start.Before(end))
	assert.True(t, end.After(start))
	assert.Equal(t, "08:30", start.String())
	assert.Equal(t, 510, start.Minutes())
}
