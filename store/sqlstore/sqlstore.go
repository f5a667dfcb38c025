/*
Package sqlstore provides a SQL-backed implementation of the repositories.

PURPOSE:
  Implements incentive.Store, kollel.Store and generic.PaymentStore on top of
  sqlx. SQLite (mattn/go-sqlite3) is the default driver; PostgreSQL (lib/pq)
  works with the same schema because every query is written with ? and
  rebound for the driver.

KEY TABLES:
  attendance:         Handler facts, one per (user, program, day)
  earnings:           Handler earnings, one per (user, program, day)
  kollel_attendance:  Kollel arrival/departure, one per (user, program, day)
  kollel_earnings:    Kollel payroll, one per (user, program, month)
  payments:           Append-only payment ledger

STORAGE FORMATS:
  - Days as YYYY-MM-DD text (lexical order == calendar order)
  - Clock times as HH:MM text
  - Money as decimal text, summed in Go, never as REAL

UPSERTS:
  INSERT ... ON CONFLICT (...) DO UPDATE SET col = excluded.col, supported by
  SQLite >= 3.24 and PostgreSQL >= 9.5.

TRANSACTIONS:
  WithTx hands the callback a store bound to one *sqlx.Tx, so every read and
  write of a weekend pair repricing happens in the same transaction.

USAGE:
  store, err := sqlstore.Open("sqlite3", "./data/stipends.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/incentive"
	"github.com/warp/stipend-engine/kollel"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	timestampLayout = time.RFC3339Nano
)

// Store implements all repositories over a *sqlx.DB.
type Store struct {
	queries
	db *sqlx.DB
}

var (
	_ incentive.Store      = (*Store)(nil)
	_ kollel.Store         = (*Store)(nil)
	_ generic.PaymentStore = (*Store)(nil)
)

// Open connects and migrates. For sqlite3 use ":memory:" for an in-memory
// database.
func Open(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver == DriverSQLite && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if driver == DriverSQLite {
		// One connection: an in-memory database exists per connection, and
		// SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
	}

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attendance (
		user_id TEXT NOT NULL,
		program_id TEXT NOT NULL DEFAULT '',
		attended_on TEXT NOT NULL,
		came_early BOOLEAN NOT NULL DEFAULT FALSE,
		learned_early BOOLEAN NOT NULL DEFAULT FALSE,
		came_late BOOLEAN NOT NULL DEFAULT FALSE,
		minutes_late INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, program_id, attended_on)
	);

	CREATE TABLE IF NOT EXISTS earnings (
		user_id TEXT NOT NULL,
		program_id TEXT NOT NULL DEFAULT '',
		attended_on TEXT NOT NULL,
		on_time_bonus TEXT NOT NULL,
		early_bonus TEXT NOT NULL,
		learning_bonus TEXT NOT NULL,
		amount_earned TEXT NOT NULL,
		is_weekend BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, program_id, attended_on)
	);

	CREATE TABLE IF NOT EXISTS kollel_attendance (
		user_id TEXT NOT NULL,
		program_id TEXT NOT NULL,
		attended_on TEXT NOT NULL,
		arrival_time TEXT NOT NULL,
		departure_time TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (user_id, program_id, attended_on)
	);

	-- Batch payroll: distinct users of a program in a month
	CREATE INDEX IF NOT EXISTS idx_kollel_attendance_program_day
		ON kollel_attendance(program_id, attended_on);

	CREATE TABLE IF NOT EXISTS kollel_earnings (
		user_id TEXT NOT NULL,
		program_id TEXT NOT NULL,
		month TEXT NOT NULL,
		total_minutes_attended INTEGER NOT NULL,
		total_available_minutes INTEGER NOT NULL,
		rate_per_minute TEXT NOT NULL,
		amount_earned TEXT NOT NULL,
		calculated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, program_id, month)
	);

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		program_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		notes TEXT,
		recorded_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_user_program
		ON payments(user_id, program_id, payment_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(incentive.Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(&txStore{queries: queries{q: tx}}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

type txStore struct {
	queries
}

// WithTx on a store already inside a transaction reuses it.
func (ts *txStore) WithTx(_ context.Context, fn func(incentive.Store) error) error {
	return fn(ts)
}

// queries holds every statement, bound either to the DB or to a transaction.
type queries struct {
	q sqlx.ExtContext
}

func (qs queries) exec(ctx context.Context, query string, args ...any) error {
	_, err := qs.q.ExecContext(ctx, qs.q.Rebind(query), args...)
	return err
}

func (qs queries) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, qs.q, dest, qs.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (qs queries) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, qs.q, dest, qs.q.Rebind(query), args...)
}

// =============================================================================
// HANDLER ATTENDANCE
// =============================================================================

type attendanceRow struct {
	UserID       string        `db:"user_id"`
	ProgramID    string        `db:"program_id"`
	AttendedOn   string        `db:"attended_on"`
	CameEarly    bool          `db:"came_early"`
	LearnedEarly bool          `db:"learned_early"`
	CameLate     bool          `db:"came_late"`
	MinutesLate  sql.NullInt64 `db:"minutes_late"`
	CreatedAt    string        `db:"created_at"`
	UpdatedAt    string        `db:"updated_at"`
}

const attendanceColumns = `user_id, program_id, attended_on, came_early, learned_early, came_late, minutes_late, created_at, updated_at`

func (r attendanceRow) toDomain() (incentive.Attendance, error) {
	date, err := generic.ParseDate(r.AttendedOn)
	if err != nil {
		return incentive.Attendance{}, errors.Wrap(err, "scan attended_on")
	}
	a := incentive.Attendance{
		UserID:    generic.UserID(r.UserID),
		ProgramID: generic.ProgramID(r.ProgramID),
		Date:      date,
		Facts: incentive.Facts{
			CameEarly:    r.CameEarly,
			LearnedEarly: r.LearnedEarly,
			CameLate:     r.CameLate,
		},
		CreatedAt: parseTimestamp(r.CreatedAt),
		UpdatedAt: parseTimestamp(r.UpdatedAt),
	}
	if r.MinutesLate.Valid {
		m := int(r.MinutesLate.Int64)
		a.Facts.MinutesLate = &m
	}
	return a, nil
}

func (qs queries) GetAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*incentive.Attendance, error) {
	var row attendanceRow
	found, err := qs.get(ctx, &row,
		`SELECT `+attendanceColumns+` FROM attendance WHERE user_id = ? AND program_id = ? AND attended_on = ?`,
		userID, programID, date.String())
	if err != nil || !found {
		return nil, errors.Wrap(err, "failed to get attendance")
	}
	a, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (qs queries) UpsertAttendance(ctx context.Context, a incentive.Attendance) error {
	var minutesLate sql.NullInt64
	if a.Facts.MinutesLate != nil {
		minutesLate = sql.NullInt64{Int64: int64(*a.Facts.MinutesLate), Valid: true}
	}
	err := qs.exec(ctx, `
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, program_id, attended_on) DO UPDATE SET
			came_early = excluded.came_early,
			learned_early = excluded.learned_early,
			came_late = excluded.came_late,
			minutes_late = excluded.minutes_late,
			updated_at = excluded.updated_at
	`,
		a.UserID, a.ProgramID, a.Date.String(),
		a.Facts.CameEarly, a.Facts.LearnedEarly, a.Facts.CameLate, minutesLate,
		formatTimestamp(a.CreatedAt), formatTimestamp(a.UpdatedAt),
	)
	return errors.Wrap(err, "failed to upsert attendance")
}

func (qs queries) DeleteAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	err := qs.exec(ctx, `DELETE FROM attendance WHERE user_id = ? AND program_id = ? AND attended_on = ?`,
		userID, programID, date.String())
	return errors.Wrap(err, "failed to delete attendance")
}

func (qs queries) AttendanceInRange(ctx context.Context, userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) ([]incentive.Attendance, error) {
	var rows []attendanceRow
	err := qs.selectRows(ctx, &rows, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE user_id = ? AND program_id = ? AND attended_on >= ? AND attended_on <= ?
		ORDER BY attended_on ASC
	`, userID, programID, from.String(), to.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query attendance")
	}
	result := make([]incentive.Attendance, 0, len(rows))
	for _, r := range rows {
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// =============================================================================
// HANDLER EARNINGS
// =============================================================================

type earningsRow struct {
	UserID        string `db:"user_id"`
	ProgramID     string `db:"program_id"`
	AttendedOn    string `db:"attended_on"`
	OnTimeBonus   string `db:"on_time_bonus"`
	EarlyBonus    string `db:"early_bonus"`
	LearningBonus string `db:"learning_bonus"`
	AmountEarned  string `db:"amount_earned"`
	IsWeekend     bool   `db:"is_weekend"`
	UpdatedAt     string `db:"updated_at"`
}

const earningsColumns = `user_id, program_id, attended_on, on_time_bonus, early_bonus, learning_bonus, amount_earned, is_weekend, updated_at`

func (r earningsRow) toDomain() (incentive.Earnings, error) {
	date, err := generic.ParseDate(r.AttendedOn)
	if err != nil {
		return incentive.Earnings{}, errors.Wrap(err, "scan attended_on")
	}
	var e incentive.Earnings
	e.UserID = generic.UserID(r.UserID)
	e.ProgramID = generic.ProgramID(r.ProgramID)
	e.Date = date
	e.IsWeekend = r.IsWeekend
	e.UpdatedAt = parseTimestamp(r.UpdatedAt)
	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{r.OnTimeBonus, &e.OnTimeBonus},
		{r.EarlyBonus, &e.EarlyBonus},
		{r.LearningBonus, &e.LearningBonus},
		{r.AmountEarned, &e.AmountEarned},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return incentive.Earnings{}, errors.Wrapf(err, "scan amount %q", f.src)
		}
		*f.dst = d
	}
	return e, nil
}

func (qs queries) GetEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*incentive.Earnings, error) {
	var row earningsRow
	found, err := qs.get(ctx, &row,
		`SELECT `+earningsColumns+` FROM earnings WHERE user_id = ? AND program_id = ? AND attended_on = ?`,
		userID, programID, date.String())
	if err != nil || !found {
		return nil, errors.Wrap(err, "failed to get earnings")
	}
	e, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (qs queries) UpsertEarnings(ctx context.Context, e incentive.Earnings) error {
	err := qs.exec(ctx, `
		INSERT INTO earnings (`+earningsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, program_id, attended_on) DO UPDATE SET
			on_time_bonus = excluded.on_time_bonus,
			early_bonus = excluded.early_bonus,
			learning_bonus = excluded.learning_bonus,
			amount_earned = excluded.amount_earned,
			is_weekend = excluded.is_weekend,
			updated_at = excluded.updated_at
	`,
		e.UserID, e.ProgramID, e.Date.String(),
		e.OnTimeBonus.String(), e.EarlyBonus.String(), e.LearningBonus.String(), e.AmountEarned.String(),
		e.IsWeekend, formatTimestamp(e.UpdatedAt),
	)
	return errors.Wrap(err, "failed to upsert earnings")
}

func (qs queries) DeleteEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	err := qs.exec(ctx, `DELETE FROM earnings WHERE user_id = ? AND program_id = ? AND attended_on = ?`,
		userID, programID, date.String())
	return errors.Wrap(err, "failed to delete earnings")
}

func (qs queries) ListEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID) ([]incentive.Earnings, error) {
	var rows []earningsRow
	err := qs.selectRows(ctx, &rows,
		`SELECT `+earningsColumns+` FROM earnings WHERE user_id = ? AND program_id = ? ORDER BY attended_on ASC`,
		userID, programID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query earnings")
	}
	result := make([]incentive.Earnings, 0, len(rows))
	for _, r := range rows {
		e, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// =============================================================================
// KOLLEL ATTENDANCE
// =============================================================================

type kollelRow struct {
	UserID        string `db:"user_id"`
	ProgramID     string `db:"program_id"`
	AttendedOn    string `db:"attended_on"`
	ArrivalTime   string `db:"arrival_time"`
	DepartureTime string `db:"departure_time"`
	CreatedAt     string `db:"created_at"`
}

const kollelColumns = `user_id, program_id, attended_on, arrival_time, departure_time, created_at`

func (r kollelRow) toDomain() (kollel.Attendance, error) {
	date, err := generic.ParseDate(r.AttendedOn)
	if err != nil {
		return kollel.Attendance{}, errors.Wrap(err, "scan attended_on")
	}
	arrival, err := generic.ParseClock(r.ArrivalTime)
	if err != nil {
		return kollel.Attendance{}, errors.Wrap(err, "scan arrival_time")
	}
	departure, err := generic.ParseClock(r.DepartureTime)
	if err != nil {
		return kollel.Attendance{}, errors.Wrap(err, "scan departure_time")
	}
	return kollel.Attendance{
		UserID:    generic.UserID(r.UserID),
		ProgramID: generic.ProgramID(r.ProgramID),
		Date:      date,
		Arrival:   arrival,
		Departure: departure,
		CreatedAt: parseTimestamp(r.CreatedAt),
	}, nil
}

func kollelRows(rows []kollelRow) ([]kollel.Attendance, error) {
	result := make([]kollel.Attendance, 0, len(rows))
	for _, r := range rows {
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (qs queries) GetKollelAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*kollel.Attendance, error) {
	var row kollelRow
	found, err := qs.get(ctx, &row,
		`SELECT `+kollelColumns+` FROM kollel_attendance WHERE user_id = ? AND program_id = ? AND attended_on = ?`,
		userID, programID, date.String())
	if err != nil || !found {
		return nil, errors.Wrap(err, "failed to get kollel attendance")
	}
	a, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (qs queries) UpsertKollelAttendance(ctx context.Context, a kollel.Attendance) error {
	err := qs.exec(ctx, `
		INSERT INTO kollel_attendance (`+kollelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, program_id, attended_on) DO UPDATE SET
			arrival_time = excluded.arrival_time,
			departure_time = excluded.departure_time
	`,
		a.UserID, a.ProgramID, a.Date.String(),
		a.Arrival.String(), a.Departure.String(), formatTimestamp(a.CreatedAt),
	)
	return errors.Wrap(err, "failed to upsert kollel attendance")
}

func (qs queries) DeleteKollelAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	err := qs.exec(ctx, `DELETE FROM kollel_attendance WHERE user_id = ? AND program_id = ? AND attended_on = ?`,
		userID, programID, date.String())
	return errors.Wrap(err, "failed to delete kollel attendance")
}

func (qs queries) KollelAttendanceInRange(ctx context.Context, userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) ([]kollel.Attendance, error) {
	var rows []kollelRow
	err := qs.selectRows(ctx, &rows, `
		SELECT `+kollelColumns+` FROM kollel_attendance
		WHERE user_id = ? AND program_id = ? AND attended_on >= ? AND attended_on <= ?
		ORDER BY attended_on ASC
	`, userID, programID, from.String(), to.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query kollel attendance")
	}
	return kollelRows(rows)
}

func (qs queries) ListKollelAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID) ([]kollel.Attendance, error) {
	var rows []kollelRow
	err := qs.selectRows(ctx, &rows,
		`SELECT `+kollelColumns+` FROM kollel_attendance WHERE user_id = ? AND program_id = ? ORDER BY attended_on ASC`,
		userID, programID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query kollel attendance")
	}
	return kollelRows(rows)
}

func (qs queries) KollelUsers(ctx context.Context, programID generic.ProgramID, from, to generic.TimePoint) ([]generic.UserID, error) {
	var ids []string
	err := qs.selectRows(ctx, &ids, `
		SELECT DISTINCT user_id FROM kollel_attendance
		WHERE program_id = ? AND attended_on >= ? AND attended_on <= ?
		ORDER BY user_id ASC
	`, programID, from.String(), to.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query kollel users")
	}
	users := make([]generic.UserID, len(ids))
	for i, id := range ids {
		users[i] = generic.UserID(id)
	}
	return users, nil
}

// =============================================================================
// KOLLEL EARNINGS
// =============================================================================

type monthlyRow struct {
	UserID                string `db:"user_id"`
	ProgramID             string `db:"program_id"`
	Month                 string `db:"month"`
	TotalMinutesAttended  int    `db:"total_minutes_attended"`
	TotalAvailableMinutes int    `db:"total_available_minutes"`
	RatePerMinute         string `db:"rate_per_minute"`
	AmountEarned          string `db:"amount_earned"`
	CalculatedAt          string `db:"calculated_at"`
}

func (qs queries) UpsertMonthlyEarnings(ctx context.Context, e kollel.MonthlyEarnings) error {
	err := qs.exec(ctx, `
		INSERT INTO kollel_earnings
		(user_id, program_id, month, total_minutes_attended, total_available_minutes,
		 rate_per_minute, amount_earned, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, program_id, month) DO UPDATE SET
			total_minutes_attended = excluded.total_minutes_attended,
			total_available_minutes = excluded.total_available_minutes,
			rate_per_minute = excluded.rate_per_minute,
			amount_earned = excluded.amount_earned,
			calculated_at = excluded.calculated_at
	`,
		e.UserID, e.ProgramID, e.Month.String(),
		e.TotalMinutesAttended, e.TotalAvailableMinutes,
		e.RatePerMinute.String(), e.AmountEarned.String(), formatTimestamp(e.CalculatedAt),
	)
	return errors.Wrap(err, "failed to upsert kollel earnings")
}

func (qs queries) ListMonthlyEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID) ([]kollel.MonthlyEarnings, error) {
	var rows []monthlyRow
	err := qs.selectRows(ctx, &rows, `
		SELECT user_id, program_id, month, total_minutes_attended, total_available_minutes,
		       rate_per_minute, amount_earned, calculated_at
		FROM kollel_earnings
		WHERE user_id = ? AND program_id = ?
		ORDER BY month ASC
	`, userID, programID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query kollel earnings")
	}

	result := make([]kollel.MonthlyEarnings, 0, len(rows))
	for _, r := range rows {
		month, err := generic.ParseDate(r.Month)
		if err != nil {
			return nil, errors.Wrap(err, "scan month")
		}
		rate, err := decimal.NewFromString(r.RatePerMinute)
		if err != nil {
			return nil, errors.Wrap(err, "scan rate_per_minute")
		}
		amount, err := decimal.NewFromString(r.AmountEarned)
		if err != nil {
			return nil, errors.Wrap(err, "scan amount_earned")
		}
		result = append(result, kollel.MonthlyEarnings{
			UserID:                generic.UserID(r.UserID),
			ProgramID:             generic.ProgramID(r.ProgramID),
			Month:                 month,
			TotalMinutesAttended:  r.TotalMinutesAttended,
			TotalAvailableMinutes: r.TotalAvailableMinutes,
			RatePerMinute:         rate,
			AmountEarned:          amount,
			CalculatedAt:          parseTimestamp(r.CalculatedAt),
		})
	}
	return result, nil
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

type paymentRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	ProgramID   string         `db:"program_id"`
	Amount      string         `db:"amount"`
	PaymentDate string         `db:"payment_date"`
	Notes       sql.NullString `db:"notes"`
	RecordedBy  sql.NullString `db:"recorded_by"`
	CreatedAt   string         `db:"created_at"`
}

func (qs queries) AppendPayment(ctx context.Context, p generic.Payment) error {
	err := qs.exec(ctx, `
		INSERT INTO payments (id, user_id, program_id, amount, payment_date, notes, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.UserID, p.ProgramID, p.Amount.String(), p.PaidOn.String(),
		nullString(p.Notes), nullString(p.RecordedBy), formatTimestamp(p.CreatedAt),
	)
	return errors.Wrap(err, "failed to append payment")
}

func (qs queries) Payments(ctx context.Context, userID generic.UserID, programID generic.ProgramID) ([]generic.Payment, error) {
	var rows []paymentRow
	err := qs.selectRows(ctx, &rows, `
		SELECT id, user_id, program_id, amount, payment_date, notes, recorded_by, created_at
		FROM payments
		WHERE user_id = ? AND program_id = ?
		ORDER BY payment_date ASC, created_at ASC
	`, userID, programID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query payments")
	}

	result := make([]generic.Payment, 0, len(rows))
	for _, r := range rows {
		paidOn, err := generic.ParseDate(r.PaymentDate)
		if err != nil {
			return nil, errors.Wrap(err, "scan payment_date")
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, errors.Wrap(err, "scan amount")
		}
		result = append(result, generic.Payment{
			ID:         generic.PaymentID(r.ID),
			UserID:     generic.UserID(r.UserID),
			ProgramID:  generic.ProgramID(r.ProgramID),
			Amount:     amount,
			PaidOn:     paidOn,
			Notes:      r.Notes.String,
			RecordedBy: r.RecordedBy.String,
			CreatedAt:  parseTimestamp(r.CreatedAt),
		})
	}
	return result, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(timestampLayout, s)
	return t
}
