package incentive

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/stipend-engine/generic"
)

// =============================================================================
// ENGINE
// =============================================================================

// Config selects the program and rate schedule of an Engine. A nil Rates
// means DefaultRates; zero rates are kept as given.
type Config struct {
	ProgramID   generic.ProgramID
	ProgramName string
	Rates       *Rates
}

// Engine prices Handler attendance. It keeps no state between calls; every
// operation reads the store, computes and writes back inside one store
// transaction so a weekend pair is always repriced as a unit.
type Engine struct {
	store    Store
	payments *generic.PaymentLedger
	program  Program
	rates    Rates
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewEngine builds an engine. payments may be nil, in which case every user
// is reported as never paid. log may be nil.
func NewEngine(store Store, payments *generic.PaymentLedger, cfg Config, log logrus.FieldLogger) (*Engine, error) {
	if store == nil {
		return nil, generic.ErrStoreRequired
	}
	if cfg.ProgramID == "" {
		cfg.ProgramID = DefaultProgramID
	}
	if cfg.ProgramName == "" {
		cfg.ProgramName = "Handler"
	}
	rates := DefaultRates()
	if cfg.Rates != nil {
		rates = *cfg.Rates
	}
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		store:    store,
		payments: payments,
		program:  Program{ID: cfg.ProgramID, Name: cfg.ProgramName},
		rates:    rates,
		log:      log.WithField("program_id", cfg.ProgramID),
		now:      time.Now,
	}, nil
}

func (e *Engine) Program() Program { return e.program }
func (e *Engine) Rates() Rates     { return e.rates }

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// SubmitAttendance upserts the day's facts and reprices the day. On a weekend
// the whole pair is repriced, which upgrades an earlier submitted day of the
// pair to the weekend rate, or drops a stale weekend rate back to weekday.
// It returns the stored fact and the submitted day's earnings.
func (e *Engine) SubmitAttendance(ctx context.Context, userID generic.UserID, date generic.TimePoint, facts Facts) (*Attendance, *Earnings, error) {
	if err := validateKey(userID, date); err != nil {
		return nil, nil, err
	}
	if err := facts.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		stored   Attendance
		earnings Earnings
	)
	err := e.store.WithTx(ctx, func(tx Store) error {
		now := e.now().UTC()
		stored = Attendance{
			UserID:    userID,
			ProgramID: e.program.ID,
			Date:      date,
			Facts:     facts,
			CreatedAt: now,
			UpdatedAt: now,
		}
		existing, err := tx.GetAttendance(ctx, userID, e.program.ID, date)
		if err != nil {
			return errors.Wrap(err, "load attendance")
		}
		if existing != nil {
			stored.CreatedAt = existing.CreatedAt
		}
		if err := tx.UpsertAttendance(ctx, stored); err != nil {
			return errors.Wrap(err, "upsert attendance")
		}

		repriced, err := e.reprice(ctx, tx, userID, date)
		if err != nil {
			return err
		}
		for _, r := range repriced {
			if r.Date.Equal(date) {
				earnings = r
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &stored, &earnings, nil
}

// PatchAttendance merges a partial update over the existing facts of the
// day and resubmits. A day without facts yields nil, nil, nil.
func (e *Engine) PatchAttendance(ctx context.Context, userID generic.UserID, date generic.TimePoint, patch FactsPatch) (*Attendance, *Earnings, error) {
	existing, err := e.GetAttendanceByDate(ctx, userID, date)
	if err != nil || existing == nil {
		return nil, nil, err
	}
	return e.SubmitAttendance(ctx, userID, date, patch.Apply(existing.Facts))
}

// DeleteAttendance removes the day's facts and earnings. When the day was
// half of a weekend pair the remaining day drops back to the weekday rate.
// Deleting a day that has no facts is a no-op.
func (e *Engine) DeleteAttendance(ctx context.Context, userID generic.UserID, date generic.TimePoint) error {
	if err := validateKey(userID, date); err != nil {
		return err
	}
	return e.store.WithTx(ctx, func(tx Store) error {
		if err := tx.DeleteEarnings(ctx, userID, e.program.ID, date); err != nil {
			return errors.Wrap(err, "delete earnings")
		}
		if err := tx.DeleteAttendance(ctx, userID, e.program.ID, date); err != nil {
			return errors.Wrap(err, "delete attendance")
		}
		if _, weekend := PairFor(date); !weekend {
			return nil
		}
		_, err := e.reprice(ctx, tx, userID, date)
		return err
	})
}

// reprice recomputes the earnings of date, or of every present day of its
// weekend pair, and writes them. It returns the entries written.
func (e *Engine) reprice(ctx context.Context, tx Store, userID generic.UserID, date generic.TimePoint) ([]Earnings, error) {
	pair, weekend := PairFor(date)
	if !weekend {
		a, err := tx.GetAttendance(ctx, userID, e.program.ID, date)
		if err != nil {
			return nil, errors.Wrap(err, "load attendance")
		}
		if a == nil {
			return nil, nil
		}
		entry, err := e.writeEarnings(ctx, tx, *a, e.rates.Weekday, false)
		if err != nil {
			return nil, err
		}
		return []Earnings{entry}, nil
	}

	var (
		state   PairState
		present []Attendance
	)
	for i, day := range pair.Days() {
		a, err := tx.GetAttendance(ctx, userID, e.program.ID, day)
		if err != nil {
			return nil, errors.Wrap(err, "load paired attendance")
		}
		if a == nil {
			continue
		}
		if i == 0 {
			state.Saturday = true
		} else {
			state.Sunday = true
		}
		present = append(present, *a)
	}

	rate := state.Rate(e.rates)
	written := make([]Earnings, 0, len(present))
	for _, a := range present {
		entry, err := e.writeEarnings(ctx, tx, a, rate, state.Complete())
		if err != nil {
			return nil, err
		}
		written = append(written, entry)
	}

	e.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"saturday": pair.Saturday.String(),
		"paired":   state.Complete(),
		"rate":     rate.String(),
	}).Debug("repriced weekend pair")
	return written, nil
}

func (e *Engine) writeEarnings(ctx context.Context, tx Store, a Attendance, rate decimal.Decimal, weekend bool) (Earnings, error) {
	onTime, early, learning := ComputeEarnings(a.Facts, rate)
	entry := Earnings{
		UserID:        a.UserID,
		ProgramID:     a.ProgramID,
		Date:          a.Date,
		OnTimeBonus:   onTime,
		EarlyBonus:    early,
		LearningBonus: learning,
		AmountEarned:  onTime.Add(early).Add(learning),
		IsWeekend:     weekend,
		UpdatedAt:     e.now().UTC(),
	}
	if err := tx.UpsertEarnings(ctx, entry); err != nil {
		return Earnings{}, errors.Wrapf(err, "upsert earnings for %s", a.Date)
	}
	return entry, nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// GetAttendanceByDate returns the day's facts, or nil when none were submitted.
func (e *Engine) GetAttendanceByDate(ctx context.Context, userID generic.UserID, date generic.TimePoint) (*Attendance, error) {
	if err := validateKey(userID, date); err != nil {
		return nil, err
	}
	return e.store.GetAttendance(ctx, userID, e.program.ID, date)
}

// GetEarningsByDate returns the day's earnings, or nil when none exist.
func (e *Engine) GetEarningsByDate(ctx context.Context, userID generic.UserID, date generic.TimePoint) (*Earnings, error) {
	if err := validateKey(userID, date); err != nil {
		return nil, err
	}
	return e.store.GetEarnings(ctx, userID, e.program.ID, date)
}

// History returns every attended day in the period with its earnings.
func (e *Engine) History(ctx context.Context, userID generic.UserID, period generic.Period) ([]Day, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	facts, err := e.store.AttendanceInRange(ctx, userID, e.program.ID, period.Start, period.End)
	if err != nil {
		return nil, errors.Wrap(err, "load attendance history")
	}
	entries, err := e.store.ListEarnings(ctx, userID, e.program.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load earnings")
	}
	byDate := make(map[string]Earnings, len(entries))
	for _, en := range entries {
		byDate[en.Date.String()] = en
	}

	days := make([]Day, 0, len(facts))
	for _, a := range facts {
		d := Day{Attendance: a}
		if en, ok := byDate[a.Date.String()]; ok {
			en := en
			d.Earnings = &en
		}
		days = append(days, d)
	}
	return days, nil
}

// UserEarnings sums every earnings entry of the user and subtracts the
// payments recorded against the program.
func (e *Engine) UserEarnings(ctx context.Context, userID generic.UserID) (generic.Summary, error) {
	if userID == "" {
		return generic.Summary{}, generic.Invalid("user_id", "is required")
	}
	entries, err := e.store.ListEarnings(ctx, userID, e.program.ID)
	if err != nil {
		return generic.Summary{}, errors.Wrap(err, "load earnings")
	}
	amounts := make([]decimal.Decimal, len(entries))
	for i, en := range entries {
		amounts[i] = en.AmountEarned
	}
	earned := generic.SumDecimals(amounts)
	if e.payments == nil {
		return generic.NewSummary(earned, decimal.Zero), nil
	}
	return e.payments.Summarize(ctx, userID, e.program.ID, earned)
}

func validateKey(userID generic.UserID, date generic.TimePoint) error {
	if userID == "" {
		return generic.Invalid("user_id", "is required")
	}
	if date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	return nil
}
