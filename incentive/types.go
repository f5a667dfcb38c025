/*
Package incentive implements the Daily Incentive Engine of the Handler
program.

PURPOSE:
  Turns one day's attendance flags into three independent bonuses:
  - On-time bonus:  paid unless the user came late
  - Early bonus:    paid when the user came early
  - Learning bonus: paid when the user came early AND learned

  Each bonus is worth the day's rate. The rate is the weekday rate unless the
  day belongs to a complete weekend pair (both Saturday and Sunday attended),
  in which case both days of the pair use the weekend rate.

KEY DIFFERENCES FROM KOLLEL:
  1. Earnings are per day, not per month
  2. Recomputed eagerly on every submission and deletion
  3. A write can change the earnings of a DIFFERENT day (the paired day)

EXAMPLE FLOW:
  1. Saturday submitted (early, on time):  $100 + $100        = $200
  2. Sunday submitted (late):              $0                 = $0
     Saturday is upgraded retroactively:   $150 + $150        = $300
  3. Sunday deleted:                       Saturday back to     $200

SEE ALSO:
  - weekend.go: Weekend pair state machine
  - engine.go: Submission, deletion and ledger queries
*/
package incentive

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stipend-engine/generic"
)

// =============================================================================
// PROGRAM
// =============================================================================

// DefaultProgramID is used when no program id is configured.
const DefaultProgramID generic.ProgramID = "handler"

// Program is the Handler program as seen by the registry.
type Program struct {
	ID   generic.ProgramID
	Name string
}

func (p Program) ProgramID() generic.ProgramID { return p.ID }
func (p Program) ProgramTrack() string         { return generic.TrackHandler }
func (p Program) ProgramName() string          { return p.Name }

var _ generic.Program = Program{}

// =============================================================================
// RATES
// =============================================================================

// Rates is the per-bonus amount for a normal day and for a weekend pair day.
type Rates struct {
	Weekday decimal.Decimal
	Weekend decimal.Decimal
}

func DefaultRates() Rates {
	return Rates{
		Weekday: decimal.NewFromInt(100),
		Weekend: decimal.NewFromInt(150),
	}
}

func (r Rates) Validate() error {
	if r.Weekday.IsNegative() {
		return generic.Invalid("weekday_rate", "must not be negative")
	}
	if r.Weekend.IsNegative() {
		return generic.Invalid("weekend_rate", "must not be negative")
	}
	return nil
}

// =============================================================================
// FACTS - What the user reports for a day
// =============================================================================

type Facts struct {
	CameEarly    bool
	LearnedEarly bool // only meaningful with CameEarly
	CameLate     bool
	MinutesLate  *int // set iff CameLate
}

// Validate enforces the fact invariants:
//   - learned early implies came early
//   - came early and came late are mutually exclusive
//   - minutes late is set, and positive, iff came late
func (f Facts) Validate() error {
	if f.LearnedEarly && !f.CameEarly {
		return generic.Invalid("learned_early", "learning early requires arriving early")
	}
	if f.CameEarly && f.CameLate {
		return generic.Invalid("came_late", "cannot both arrive early and arrive late")
	}
	if f.CameLate && f.MinutesLate == nil {
		return generic.Invalid("minutes_late", "is required when arriving late")
	}
	if !f.CameLate && f.MinutesLate != nil {
		return generic.Invalid("minutes_late", "must be empty unless arriving late")
	}
	if f.MinutesLate != nil && *f.MinutesLate <= 0 {
		return generic.Invalid("minutes_late", "must be a positive number of minutes")
	}
	return nil
}

// FactsPatch is a partial update. Nil fields keep the existing value.
type FactsPatch struct {
	CameEarly    *bool
	LearnedEarly *bool
	CameLate     *bool
	MinutesLate  *int
}

// Apply merges the patch over existing facts. Clearing CameLate also clears
// MinutesLate, and clearing CameEarly clears LearnedEarly, so a patch that
// only flips one flag still yields well-formed facts.
func (p FactsPatch) Apply(existing Facts) Facts {
	merged := existing
	if p.CameEarly != nil {
		merged.CameEarly = *p.CameEarly
		if !merged.CameEarly && p.LearnedEarly == nil {
			merged.LearnedEarly = false
		}
	}
	if p.LearnedEarly != nil {
		merged.LearnedEarly = *p.LearnedEarly
	}
	if p.CameLate != nil {
		merged.CameLate = *p.CameLate
		if !merged.CameLate && p.MinutesLate == nil {
			merged.MinutesLate = nil
		}
	}
	if p.MinutesLate != nil {
		m := *p.MinutesLate
		merged.MinutesLate = &m
	}
	return merged
}

// =============================================================================
// RECORDS
// =============================================================================

// Attendance is the persisted fact, unique per (user, program, date).
type Attendance struct {
	UserID    generic.UserID
	ProgramID generic.ProgramID
	Date      generic.TimePoint
	Facts     Facts
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Earnings is derived entirely from an Attendance and the weekend pair
// state. One exists for every Attendance.
type Earnings struct {
	UserID        generic.UserID
	ProgramID     generic.ProgramID
	Date          generic.TimePoint
	OnTimeBonus   decimal.Decimal
	EarlyBonus    decimal.Decimal
	LearningBonus decimal.Decimal
	AmountEarned  decimal.Decimal
	IsWeekend     bool // weekend pair rate applied
	UpdatedAt     time.Time
}

// Day pairs a fact with its earnings for history views.
type Day struct {
	Attendance Attendance
	Earnings   *Earnings
}

// ComputeEarnings applies the bonus rules for one day at the given rate.
// Attendance alone, without lateness, earns the on-time bonus.
func ComputeEarnings(f Facts, rate decimal.Decimal) (onTime, early, learning decimal.Decimal) {
	onTime, early, learning = decimal.Zero, decimal.Zero, decimal.Zero
	if !f.CameLate {
		onTime = rate
	}
	if f.CameEarly {
		early = rate
	}
	if f.LearnedEarly {
		learning = rate
	}
	return onTime, early, learning
}
