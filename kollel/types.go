/*
Package kollel implements the Monthly Payroll Engine of the Kollel programs.

PURPOSE:
  A kollel member is paid a fixed monthly salary pro-rated by the minutes
  actually attended out of the minutes that could have been attended:

    available  = weekdays(month) * minutes per day
    rate       = salary / available
    earned     = attended * rate

  A member who attends the whole window on every weekday earns exactly the
  salary.

PROGRAMS:
  kollel       08:30-10:30, 120 minutes per day (the "half" kollel)
  kollel-full  08:45-12:00, 195 minutes per day

  Windows, minutes per day and salaries are configuration; the values above
  are the defaults.

RECOMPUTATION:
  Monthly earnings are always recomputed wholesale from every attendance
  fact of the month, never incrementally. Submitting attendance does not
  recompute payroll unless AutoRecalculate is set; payroll runs are explicit
  (per user, or per program and month for everybody).

SEE ALSO:
  - payroll.go: The pure payroll calculation
  - engine.go: Submission, recomputation and ledger queries
*/
package kollel

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stipend-engine/generic"
)

// =============================================================================
// PROGRAM
// =============================================================================

type Program struct {
	ID            generic.ProgramID
	Name          string
	Start         generic.ClockTime // earliest allowed arrival
	End           generic.ClockTime // latest allowed departure
	MinutesPerDay int
	MonthlySalary decimal.Decimal
}

func (p Program) ProgramID() generic.ProgramID { return p.ID }
func (p Program) ProgramTrack() string         { return generic.TrackKollel }
func (p Program) ProgramName() string          { return p.Name }

var _ generic.Program = Program{}

// Validate checks the program definition itself.
func (p Program) Validate() error {
	if p.ID == "" {
		return generic.Invalid("program.id", "is required")
	}
	if !p.Start.Before(p.End) {
		return generic.Invalid("program.window", "start %s must be before end %s", p.Start, p.End)
	}
	if p.MinutesPerDay < 0 {
		return generic.Invalid("program.minutes_per_day", "must not be negative")
	}
	if p.MonthlySalary.IsNegative() {
		return generic.Invalid("program.monthly_salary", "must not be negative")
	}
	return nil
}

// DailyMinutes is the configured minutes per day, or the window length when
// none is configured.
func (p Program) DailyMinutes() int {
	if p.MinutesPerDay > 0 {
		return p.MinutesPerDay
	}
	return p.End.Sub(p.Start)
}

const (
	ProgramStandard generic.ProgramID = "kollel"
	ProgramFull     generic.ProgramID = "kollel-full"
)

// DefaultPrograms returns the standard and full kollel.
func DefaultPrograms() []Program {
	return []Program{
		{
			ID:            ProgramStandard,
			Name:          "Kollel",
			Start:         generic.NewClock(8, 30),
			End:           generic.NewClock(10, 30),
			MinutesPerDay: 120,
			MonthlySalary: decimal.NewFromInt(1000),
		},
		{
			ID:            ProgramFull,
			Name:          "Full Kollel",
			Start:         generic.NewClock(8, 45),
			End:           generic.NewClock(12, 0),
			MinutesPerDay: 195,
			MonthlySalary: decimal.NewFromInt(1625),
		},
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// Attendance is one day of kollel attendance, unique per (user, program, date).
type Attendance struct {
	UserID    generic.UserID
	ProgramID generic.ProgramID
	Date      generic.TimePoint
	Arrival   generic.ClockTime
	Departure generic.ClockTime
	CreatedAt time.Time
}

// Minutes attended that day.
func (a Attendance) Minutes() int {
	return a.Departure.Sub(a.Arrival)
}

// MonthlyEarnings is unique per (user, program, month).
type MonthlyEarnings struct {
	UserID                generic.UserID
	ProgramID             generic.ProgramID
	Month                 generic.TimePoint // first day of the month
	TotalMinutesAttended  int
	TotalAvailableMinutes int
	RatePerMinute         decimal.Decimal
	AmountEarned          decimal.Decimal
	CalculatedAt          time.Time
}

// Report is the ledger view of one user in one program.
type Report struct {
	Summary         generic.Summary
	MonthlyEarnings []MonthlyEarnings
	DailyAttendance []Attendance
}
