package kollel

import (
	"context"

	"github.com/warp/stipend-engine/generic"
)

// Store persists kollel attendance and monthly earnings.
type Store interface {
	GetKollelAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*Attendance, error)
	UpsertKollelAttendance(ctx context.Context, a Attendance) error
	DeleteKollelAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error

	// KollelAttendanceInRange returns facts in [from, to] ordered by date.
	KollelAttendanceInRange(ctx context.Context, userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) ([]Attendance, error)

	// ListKollelAttendance returns every fact of the user for the program ordered by date.
	ListKollelAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID) ([]Attendance, error)

	// KollelUsers returns the distinct users with at least one fact in [from, to].
	KollelUsers(ctx context.Context, programID generic.ProgramID, from, to generic.TimePoint) ([]generic.UserID, error)

	UpsertMonthlyEarnings(ctx context.Context, e MonthlyEarnings) error

	// ListMonthlyEarnings returns the user's months ordered by month.
	ListMonthlyEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID) ([]MonthlyEarnings, error)
}
