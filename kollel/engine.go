package kollel

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/stipend-engine/generic"
)

// Config lists the programs an Engine runs.
type Config struct {
	Programs []Program

	// AutoRecalculate reruns the month's payroll after every attendance
	// write. Off by default: payroll runs are explicit.
	AutoRecalculate bool
}

// Engine runs kollel payroll. Like the incentive engine it holds no state
// between calls besides the program table.
type Engine struct {
	store      Store
	payments   *generic.PaymentLedger
	programs   map[generic.ProgramID]Program
	order      []generic.ProgramID
	autoRecalc bool
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewEngine builds an engine. An empty program list means DefaultPrograms.
func NewEngine(store Store, payments *generic.PaymentLedger, cfg Config, log logrus.FieldLogger) (*Engine, error) {
	if store == nil {
		return nil, generic.ErrStoreRequired
	}
	programs := cfg.Programs
	if len(programs) == 0 {
		programs = DefaultPrograms()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	e := &Engine{
		store:      store,
		payments:   payments,
		programs:   make(map[generic.ProgramID]Program, len(programs)),
		autoRecalc: cfg.AutoRecalculate,
		log:        log,
		now:        time.Now,
	}
	for _, p := range programs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := e.programs[p.ID]; dup {
			return nil, generic.Invalid("program.id", "%q is defined twice", p.ID)
		}
		e.programs[p.ID] = p
		e.order = append(e.order, p.ID)
	}
	return e, nil
}

// Programs returns the configured programs in configuration order.
func (e *Engine) Programs() []Program {
	result := make([]Program, len(e.order))
	for i, id := range e.order {
		result[i] = e.programs[id]
	}
	return result
}

func (e *Engine) Program(id generic.ProgramID) (Program, bool) {
	p, ok := e.programs[id]
	return p, ok
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// SubmitAttendance validates the times against the program window and
// upserts the day. Payroll is not recomputed unless AutoRecalculate is set.
func (e *Engine) SubmitAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint, arrival, departure generic.ClockTime) (*Attendance, error) {
	p, err := e.lookup(programID)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, generic.Invalid("user_id", "is required")
	}
	if date.IsZero() {
		return nil, generic.Invalid("date", "is required")
	}
	if err := ValidateTimes(p, arrival, departure); err != nil {
		return nil, err
	}

	a := Attendance{
		UserID:    userID,
		ProgramID: p.ID,
		Date:      date,
		Arrival:   arrival,
		Departure: departure,
		CreatedAt: e.now().UTC(),
	}
	existing, err := e.store.GetKollelAttendance(ctx, userID, p.ID, date)
	if err != nil {
		return nil, errors.Wrap(err, "load kollel attendance")
	}
	if existing != nil {
		a.CreatedAt = existing.CreatedAt
	}
	if err := e.store.UpsertKollelAttendance(ctx, a); err != nil {
		return nil, errors.Wrap(err, "upsert kollel attendance")
	}

	if e.autoRecalc {
		if _, err := e.CalculateEarnings(ctx, userID, p.ID, date.Year(), date.Month()); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// DeleteAttendance removes one day. Missing days are a no-op.
func (e *Engine) DeleteAttendance(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	p, err := e.lookup(programID)
	if err != nil {
		return err
	}
	if userID == "" {
		return generic.Invalid("user_id", "is required")
	}
	if date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	if err := e.store.DeleteKollelAttendance(ctx, userID, p.ID, date); err != nil {
		return errors.Wrap(err, "delete kollel attendance")
	}
	if e.autoRecalc {
		_, err := e.CalculateEarnings(ctx, userID, p.ID, date.Year(), date.Month())
		return err
	}
	return nil
}

// GetAttendanceByDate returns the day, or nil when none was submitted or the
// program is unknown.
func (e *Engine) GetAttendanceByDate(ctx context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*Attendance, error) {
	if _, ok := e.programs[programID]; !ok {
		return nil, nil
	}
	return e.store.GetKollelAttendance(ctx, userID, programID, date)
}

// =============================================================================
// PAYROLL
// =============================================================================

// CalculateEarnings recomputes the user's month from scratch and stores it.
// Running it twice yields the same entry. An unknown program yields nil, nil.
func (e *Engine) CalculateEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID, year int, month time.Month) (*MonthlyEarnings, error) {
	p, ok := e.programs[programID]
	if !ok {
		return nil, nil
	}
	if userID == "" {
		return nil, generic.Invalid("user_id", "is required")
	}
	period, err := generic.MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return e.calculate(ctx, p, userID, period)
}

func (e *Engine) calculate(ctx context.Context, p Program, userID generic.UserID, period generic.Period) (*MonthlyEarnings, error) {
	facts, err := e.store.KollelAttendanceInRange(ctx, userID, p.ID, period.Start, period.End)
	if err != nil {
		return nil, errors.Wrap(err, "load month attendance")
	}

	entry := Payroll(p, userID, period, facts)
	entry.CalculatedAt = e.now().UTC()
	if err := e.store.UpsertMonthlyEarnings(ctx, entry); err != nil {
		return nil, errors.Wrap(err, "upsert monthly earnings")
	}

	e.log.WithFields(logrus.Fields{
		"user_id":           userID,
		"program_id":        p.ID,
		"month":             period.Start.String(),
		"minutes_attended":  entry.TotalMinutesAttended,
		"minutes_available": entry.TotalAvailableMinutes,
		"amount":            entry.AmountEarned.StringFixed(2),
	}).Debug("calculated kollel earnings")
	return &entry, nil
}

// RecalculateMonth reruns payroll for every user with at least one fact in
// the month. An unknown program yields nil, nil.
func (e *Engine) RecalculateMonth(ctx context.Context, programID generic.ProgramID, year int, month time.Month) ([]MonthlyEarnings, error) {
	p, ok := e.programs[programID]
	if !ok {
		return nil, nil
	}
	period, err := generic.MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	users, err := e.store.KollelUsers(ctx, p.ID, period.Start, period.End)
	if err != nil {
		return nil, errors.Wrap(err, "list kollel users")
	}

	results := make([]MonthlyEarnings, 0, len(users))
	for _, userID := range users {
		entry, err := e.calculate(ctx, p, userID, period)
		if err != nil {
			return results, errors.Wrapf(err, "recalculate %s", userID)
		}
		results = append(results, *entry)
	}

	e.log.WithFields(logrus.Fields{
		"program_id": p.ID,
		"month":      period.Start.String(),
		"users":      len(results),
	}).Info("recalculated kollel month")
	return results, nil
}

// =============================================================================
// LEDGER
// =============================================================================

// UserEarnings reports the user's earned, paid and owed totals together with
// the monthly entries and daily attendance behind them. An unknown program
// yields nil, nil.
func (e *Engine) UserEarnings(ctx context.Context, userID generic.UserID, programID generic.ProgramID) (*Report, error) {
	p, ok := e.programs[programID]
	if !ok {
		return nil, nil
	}
	months, err := e.store.ListMonthlyEarnings(ctx, userID, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load monthly earnings")
	}
	days, err := e.store.ListKollelAttendance(ctx, userID, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load kollel attendance")
	}

	amounts := make([]decimal.Decimal, len(months))
	for i, m := range months {
		amounts[i] = m.AmountEarned
	}
	earned := generic.SumDecimals(amounts)

	summary := generic.NewSummary(earned, decimal.Zero)
	if e.payments != nil {
		summary, err = e.payments.Summarize(ctx, userID, p.ID, earned)
		if err != nil {
			return nil, err
		}
	}
	return &Report{Summary: summary, MonthlyEarnings: months, DailyAttendance: days}, nil
}

func (e *Engine) lookup(id generic.ProgramID) (Program, error) {
	p, ok := e.programs[id]
	if !ok {
		return Program{}, errors.Wrapf(generic.ErrProgramNotFound, "program %q", id)
	}
	return p, nil
}
