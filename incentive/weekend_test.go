package incentive

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stipend-engine/generic"
)

func TestPairFor(t *testing.T) {
	sat := generic.NewTimePoint(2025, time.March, 8)
	sun := generic.NewTimePoint(2025, time.March, 9)

	p, ok := PairFor(sat)
	require.True(t, ok)
	assert.Equal(t, Pair{Saturday: sat, Sunday: sun}, p)
	assert.Equal(t, sun, p.Other(sat))

	p, ok = PairFor(sun)
	require.True(t, ok)
	assert.Equal(t, sat, p.Saturday)
	assert.Equal(t, sat, p.Other(sun))

	_, ok = PairFor(generic.NewTimePoint(2025, time.March, 10))
	assert.False(t, ok)
}

func TestPairState_Rate(t *testing.T) {
	rates := DefaultRates()
	tests := []struct {
		state PairState
		want  decimal.Decimal
	}{
		{PairState{}, rates.Weekday},
		{PairState{Saturday: true}, rates.Weekday},
		{PairState{Sunday: true}, rates.Weekday},
		{PairState{Saturday: true, Sunday: true}, rates.Weekend},
	}
	for _, tt := range tests {
		assert.True(t, tt.state.Rate(rates).Equal(tt.want), "%+v", tt.state)
	}
}

func TestComputeEarnings(t *testing.T) {
	rate := decimal.NewFromInt(100)
	late := 5

	onTime, early, learning := ComputeEarnings(Facts{}, rate)
	assert.True(t, onTime.Equal(rate))
	assert.True(t, early.IsZero())
	assert.True(t, learning.IsZero())

	onTime, _, _ = ComputeEarnings(Facts{CameLate: true, MinutesLate: &late}, rate)
	assert.True(t, onTime.IsZero())
}
