package kollel

import (
	"github.com/shopspring/decimal"
	"github.com/warp/stipend-engine/generic"
)

// ValidateTimes rejects an arrival/departure pair outside the program window
// or out of order. It guarantees the non-negative minutes Payroll relies on.
func ValidateTimes(p Program, arrival, departure generic.ClockTime) error {
	if arrival.Before(p.Start) {
		return generic.Invalid("arrival_time", "%s is before the program starts at %s", arrival, p.Start)
	}
	if departure.After(p.End) {
		return generic.Invalid("departure_time", "%s is after the program ends at %s", departure, p.End)
	}
	if !arrival.Before(departure) {
		return generic.Invalid("departure_time", "departure %s must be after arrival %s", departure, arrival)
	}
	return nil
}

// AvailableMinutes is the payroll denominator for the month.
func AvailableMinutes(p Program, month generic.Period) int {
	return month.WorkdayCount() * p.DailyMinutes()
}

// Payroll computes a month's earnings from that month's attendance facts.
// Facts outside the month are ignored.
//
// The amount is salary * attended / available, multiplied before dividing
// so a full month pays exactly the salary, then rounded to cents. A month
// without available minutes pays nothing.
func Payroll(p Program, userID generic.UserID, month generic.Period, facts []Attendance) MonthlyEarnings {
	attended := 0
	for _, a := range facts {
		if !month.Contains(a.Date) {
			continue
		}
		attended += a.Minutes()
	}

	available := AvailableMinutes(p, month)
	rate := decimal.Zero
	amount := decimal.Zero
	if available > 0 {
		denom := decimal.NewFromInt(int64(available))
		rate = p.MonthlySalary.Div(denom)
		amount = p.MonthlySalary.Mul(decimal.NewFromInt(int64(attended))).Div(denom).Round(2)
	}

	return MonthlyEarnings{
		UserID:                userID,
		ProgramID:             p.ID,
		Month:                 month.Start,
		TotalMinutesAttended:  attended,
		TotalAvailableMinutes: available,
		RatePerMinute:         rate,
		AmountEarned:          amount,
	}
}
