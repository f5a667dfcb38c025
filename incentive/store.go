package incentive

import (
	"context"

	"github.com/warp/stipend-engine/generic"
)

// Store persists Handler attendance facts and their earnings.
//
// Upserts overwrite on conflict of (user, program, date). Getters return
// nil, nil when the row does not exist.
type Store interface {
	GetAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*Attendance, error)
	UpsertAttendance(ctx context.Context, a Attendance) error
	DeleteAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error

	// AttendanceInRange returns facts in [from, to] ordered by date.
	AttendanceInRange(ctx context.Context, userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) ([]Attendance, error)

	GetEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*Earnings, error)
	UpsertEarnings(ctx context.Context, e Earnings) error
	DeleteEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error

	// ListEarnings returns every entry of the user for the program ordered by date.
	ListEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID) ([]Earnings, error)

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
