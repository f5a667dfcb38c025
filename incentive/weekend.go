package incentive

import (
	"github.com/shopspring/decimal"
	"github.com/warp/stipend-engine/generic"
)

// =============================================================================
// WEEKEND PAIR - State machine deciding the rate of a Saturday/Sunday
// =============================================================================
//
// Every weekend date belongs to exactly one pair: the Saturday and the Sunday
// right after it. The pair has two inputs and one output:
//
//   Saturday present | Sunday present | rate
//   -----------------+----------------+---------
//   no               | no             | (nothing to price)
//   yes              | no             | weekday
//   no               | yes            | weekday
//   yes              | yes            | weekend
//
// Whenever either side changes, every present day of the pair is repriced
// with the output rate. Only the adjacent day is ever consulted, so there are
// no chains across consecutive weekends.

// Pair is the Saturday and Sunday of one weekend.
type Pair struct {
	Saturday generic.TimePoint
	Sunday   generic.TimePoint
}

// PairFor returns the weekend pair containing date. ok is false on weekdays.
func PairFor(date generic.TimePoint) (pair Pair, ok bool) {
	switch {
	case date.IsSaturday():
		return Pair{Saturday: date, Sunday: date.AddDays(1)}, true
	case date.IsSunday():
		return Pair{Saturday: date.AddDays(-1), Sunday: date}, true
	default:
		return Pair{}, false
	}
}

// Days returns Saturday then Sunday.
func (p Pair) Days() [2]generic.TimePoint {
	return [2]generic.TimePoint{p.Saturday, p.Sunday}
}

// Other returns the day of the pair that is not date.
func (p Pair) Other(date generic.TimePoint) generic.TimePoint {
	if date.Equal(p.Saturday) {
		return p.Sunday
	}
	return p.Saturday
}

// PairState records which days of a pair have attendance.
type PairState struct {
	Saturday bool
	Sunday   bool
}

// Complete reports whether both days are attended.
func (s PairState) Complete() bool {
	return s.Saturday && s.Sunday
}

// Rate is the state machine output.
func (s PairState) Rate(r Rates) decimal.Decimal {
	if s.Complete() {
		return r.Weekend
	}
	return r.Weekday
}
