/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication and decouples the
  domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND TIME:
  Amounts are decimal strings with two places ("150.00"), never JSON numbers.
  Dates are YYYY-MM-DD, clock times HH:MM, timestamps RFC 3339.

VALIDATION:
  Request types carry validator/v10 tags for shape checks (required,
  formats). Domain rules (learned early implies came early, program time
  windows) stay in the engines.

SEE ALSO:
  - handlers.go: Uses these types
  - validate.go: Tag validation and error translation
*/
package api

import (
	"time"

	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/incentive"
	"github.com/warp/stipend-engine/kollel"
)

// =============================================================================
// PROGRAMS
// =============================================================================

type ProgramDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Track         string `json:"track"`
	WeekdayRate   string `json:"weekday_rate,omitempty"`
	WeekendRate   string `json:"weekend_rate,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	MinutesPerDay int    `json:"minutes_per_day,omitempty"`
	MonthlySalary string `json:"monthly_salary,omitempty"`
}

// =============================================================================
// HANDLER ATTENDANCE
// =============================================================================

type SubmitAttendanceRequest struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	CameEarly    bool   `json:"came_early"`
	LearnedEarly bool   `json:"learned_early"`
	CameLate     bool   `json:"came_late"`
	MinutesLate  *int   `json:"minutes_late" validate:"omitempty,gt=0"`
}

func (r SubmitAttendanceRequest) Facts() incentive.Facts {
	return incentive.Facts{
		CameEarly:    r.CameEarly,
		LearnedEarly: r.LearnedEarly,
		CameLate:     r.CameLate,
		MinutesLate:  r.MinutesLate,
	}
}

// PatchAttendanceRequest updates only the fields present in the body.
type PatchAttendanceRequest struct {
	CameEarly    *bool `json:"came_early"`
	LearnedEarly *bool `json:"learned_early"`
	CameLate     *bool `json:"came_late"`
	MinutesLate  *int  `json:"minutes_late" validate:"omitempty,gt=0"`
}

func (r PatchAttendanceRequest) Patch() incentive.FactsPatch {
	return incentive.FactsPatch{
		CameEarly:    r.CameEarly,
		LearnedEarly: r.LearnedEarly,
		CameLate:     r.CameLate,
		MinutesLate:  r.MinutesLate,
	}
}

type AttendanceDTO struct {
	UserID       string `json:"user_id"`
	ProgramID    string `json:"program_id"`
	Date         string `json:"date"`
	CameEarly    bool   `json:"came_early"`
	LearnedEarly bool   `json:"learned_early"`
	CameLate     bool   `json:"came_late"`
	MinutesLate  *int   `json:"minutes_late,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type EarningsDTO struct {
	Date          string `json:"date"`
	OnTimeBonus   string `json:"on_time_bonus"`
	EarlyBonus    string `json:"early_bonus"`
	LearningBonus string `json:"learning_bonus"`
	AmountEarned  string `json:"amount_earned"`
	IsWeekend     bool   `json:"is_weekend"`
}

// AttendanceResponse is a day with its earnings.
type AttendanceResponse struct {
	Attendance AttendanceDTO `json:"attendance"`
	Earnings   *EarningsDTO  `json:"earnings,omitempty"`
}

func toAttendanceDTO(a incentive.Attendance) AttendanceDTO {
	return AttendanceDTO{
		UserID:       string(a.UserID),
		ProgramID:    string(a.ProgramID),
		Date:         a.Date.String(),
		CameEarly:    a.Facts.CameEarly,
		LearnedEarly: a.Facts.LearnedEarly,
		CameLate:     a.Facts.CameLate,
		MinutesLate:  a.Facts.MinutesLate,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
}

func toEarningsDTO(e *incentive.Earnings) *EarningsDTO {
	if e == nil {
		return nil
	}
	return &EarningsDTO{
		Date:          e.Date.String(),
		OnTimeBonus:   e.OnTimeBonus.StringFixed(2),
		EarlyBonus:    e.EarlyBonus.StringFixed(2),
		LearningBonus: e.LearningBonus.StringFixed(2),
		AmountEarned:  e.AmountEarned.StringFixed(2),
		IsWeekend:     e.IsWeekend,
	}
}

// =============================================================================
// LEDGER
// =============================================================================

type SummaryDTO struct {
	TotalEarned string `json:"total_earned"`
	TotalPaid   string `json:"total_paid"`
	TotalOwed   string `json:"total_owed"`
}

func toSummaryDTO(s generic.Summary) SummaryDTO {
	return SummaryDTO{
		TotalEarned: s.TotalEarned.Value.StringFixed(2),
		TotalPaid:   s.TotalPaid.Value.StringFixed(2),
		TotalOwed:   s.TotalOwed.Value.StringFixed(2),
	}
}

type RecordPaymentRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	ProgramID   string `json:"program_id"`
	Amount      string `json:"amount" validate:"required,numeric"`
	PaymentDate string `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Notes       string `json:"notes" validate:"max=500"`
	RecordedBy  string `json:"recorded_by"`
}

type PaymentDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	ProgramID   string `json:"program_id,omitempty"`
	Amount      string `json:"amount"`
	PaymentDate string `json:"payment_date"`
	Notes       string `json:"notes,omitempty"`
	RecordedBy  string `json:"recorded_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toPaymentDTO(p generic.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          string(p.ID),
		UserID:      string(p.UserID),
		ProgramID:   string(p.ProgramID),
		Amount:      p.Amount.StringFixed(2),
		PaymentDate: p.PaidOn.String(),
		Notes:       p.Notes,
		RecordedBy:  p.RecordedBy,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// KOLLEL
// =============================================================================

type KollelAttendanceRequest struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	ArrivalTime   string `json:"arrival_time" validate:"required"`
	DepartureTime string `json:"departure_time" validate:"required"`
}

type KollelAttendanceDTO struct {
	UserID        string `json:"user_id"`
	ProgramID     string `json:"program_id"`
	Date          string `json:"date"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
	Minutes       int    `json:"minutes"`
}

func toKollelAttendanceDTO(a kollel.Attendance) KollelAttendanceDTO {
	return KollelAttendanceDTO{
		UserID:        string(a.UserID),
		ProgramID:     string(a.ProgramID),
		Date:          a.Date.String(),
		ArrivalTime:   a.Arrival.String(),
		DepartureTime: a.Departure.String(),
		Minutes:       a.Minutes(),
	}
}

type MonthlyEarningsDTO struct {
	UserID                string `json:"user_id"`
	ProgramID             string `json:"program_id"`
	Month                 string `json:"month"`
	TotalMinutesAttended  int    `json:"total_minutes_attended"`
	TotalAvailableMinutes int    `json:"total_available_minutes"`
	RatePerMinute         string `json:"rate_per_minute"`
	AmountEarned          string `json:"amount_earned"`
	CalculatedAt          string `json:"calculated_at"`
}

func toMonthlyEarningsDTO(e kollel.MonthlyEarnings) MonthlyEarningsDTO {
	return MonthlyEarningsDTO{
		UserID:                string(e.UserID),
		ProgramID:             string(e.ProgramID),
		Month:                 e.Month.String(),
		TotalMinutesAttended:  e.TotalMinutesAttended,
		TotalAvailableMinutes: e.TotalAvailableMinutes,
		RatePerMinute:         e.RatePerMinute.StringFixed(6),
		AmountEarned:          e.AmountEarned.StringFixed(2),
		CalculatedAt:          e.CalculatedAt.Format(time.RFC3339),
	}
}

type KollelReportDTO struct {
	Summary         SummaryDTO            `json:"summary"`
	MonthlyEarnings []MonthlyEarningsDTO  `json:"monthly_earnings"`
	DailyAttendance []KollelAttendanceDTO `json:"daily_attendance"`
}

type RecalculateRequest struct {
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

type RecalculateResponse struct {
	ProgramID string               `json:"program_id"`
	Month     string               `json:"month"`
	Users     int                  `json:"users"`
	Earnings  []MonthlyEarningsDTO `json:"earnings"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
