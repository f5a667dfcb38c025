// Package memory provides an in-memory implementation of every repository
// (incentive.Store, kollel.Store, generic.PaymentStore) for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/incentive"
	"github.com/warp/stipend-engine/kollel"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	st *state
}

type dayKey struct {
	UserID    generic.UserID
	ProgramID generic.ProgramID
	Date      string
}

type ledgerKey struct {
	UserID    generic.UserID
	ProgramID generic.ProgramID
}

type state struct {
	attendance map[dayKey]incentive.Attendance
	earnings   map[dayKey]incentive.Earnings
	kollel     map[dayKey]kollel.Attendance
	monthly    map[dayKey]kollel.MonthlyEarnings // Date is the month start
	payments   map[ledgerKey][]generic.Payment
}

func newState() *state {
	return &state{
		attendance: make(map[dayKey]incentive.Attendance),
		earnings:   make(map[dayKey]incentive.Earnings),
		kollel:     make(map[dayKey]kollel.Attendance),
		monthly:    make(map[dayKey]kollel.MonthlyEarnings),
		payments:   make(map[ledgerKey][]generic.Payment),
	}
}

func New() *Memory {
	return &Memory{st: newState()}
}

var (
	_ incentive.Store      = (*Memory)(nil)
	_ kollel.Store         = (*Memory)(nil)
	_ generic.PaymentStore = (*Memory)(nil)
)

func key(userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) dayKey {
	return dayKey{UserID: userID, ProgramID: programID, Date: date.String()}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock. Writes go straight to the
// live maps; on error the state captured before fn ran is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(incentive.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&txView{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.attendance {
		c.attendance[k] = v
	}
	for k, v := range s.earnings {
		c.earnings[k] = v
	}
	for k, v := range s.kollel {
		c.kollel[k] = v
	}
	for k, v := range s.monthly {
		c.monthly[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = append([]generic.Payment{}, v...)
	}
	return c
}

// txView is the store handed to WithTx callbacks. The lock is already held.
type txView struct {
	st *state
}

func (tv *txView) GetAttendance(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*incentive.Attendance, error) {
	return tv.st.getAttendance(key(userID, programID, date)), nil
}

func (tv *txView) UpsertAttendance(_ context.Context, a incentive.Attendance) error {
	tv.st.attendance[key(a.UserID, a.ProgramID, a.Date)] = a
	return nil
}

func (tv *txView) DeleteAttendance(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	delete(tv.st.attendance, key(userID, programID, date))
	return nil
}

func (tv *txView) AttendanceInRange(_ context.Context, userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) ([]incentive.Attendance, error) {
	return tv.st.attendanceInRange(userID, programID, from, to), nil
}

func (tv *txView) GetEarnings(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*incentive.Earnings, error) {
	return tv.st.getEarnings(key(userID, programID, date)), nil
}

func (tv *txView) UpsertEarnings(_ context.Context, e incentive.Earnings) error {
	tv.st.earnings[key(e.UserID, e.ProgramID, e.Date)] = e
	return nil
}

func (tv *txView) DeleteEarnings(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	delete(tv.st.earnings, key(userID, programID, date))
	return nil
}

func (tv *txView) ListEarnings(_ context.Context, userID generic.UserID, programID generic.ProgramID) ([]incentive.Earnings, error) {
	return tv.st.listEarnings(userID, programID), nil
}

func (tv *txView) WithTx(_ context.Context, fn func(incentive.Store) error) error {
	return fn(tv)
}

// =============================================================================
// HANDLER ATTENDANCE (incentive.Store)
// =============================================================================

func (m *Memory) GetAttendance(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*incentive.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getAttendance(key(userID, programID, date)), nil
}

func (m *Memory) UpsertAttendance(_ context.Context, a incentive.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.attendance[key(a.UserID, a.ProgramID, a.Date)] = a
	return nil
}

func (m *Memory) DeleteAttendance(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.attendance, key(userID, programID, date))
	return nil
}

func (m *Memory) AttendanceInRange(_ context.Context, userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) ([]incentive.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.attendanceInRange(userID, programID, from, to), nil
}

func (m *Memory) GetEarnings(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*incentive.Earnings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getEarnings(key(userID, programID, date)), nil
}

func (m *Memory) UpsertEarnings(_ context.Context, e incentive.Earnings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.earnings[key(e.UserID, e.ProgramID, e.Date)] = e
	return nil
}

func (m *Memory) DeleteEarnings(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.earnings, key(userID, programID, date))
	return nil
}

func (m *Memory) ListEarnings(_ context.Context, userID generic.UserID, programID generic.ProgramID) ([]incentive.Earnings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listEarnings(userID, programID), nil
}

func (s *state) getAttendance(k dayKey) *incentive.Attendance {
	a, ok := s.attendance[k]
	if !ok {
		return nil
	}
	return &a
}

func (s *state) getEarnings(k dayKey) *incentive.Earnings {
	e, ok := s.earnings[k]
	if !ok {
		return nil
	}
	return &e
}

func (s *state) attendanceInRange(userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) []incentive.Attendance {
	var result []incentive.Attendance
	for k, a := range s.attendance {
		if k.UserID != userID || k.ProgramID != programID {
			continue
		}
		if from.BeforeOrEqual(a.Date) && a.Date.BeforeOrEqual(to) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

func (s *state) listEarnings(userID generic.UserID, programID generic.ProgramID) []incentive.Earnings {
	var result []incentive.Earnings
	for k, e := range s.earnings {
		if k.UserID == userID && k.ProgramID == programID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

// =============================================================================
// KOLLEL (kollel.Store)
// =============================================================================

func (m *Memory) GetKollelAttendance(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) (*kollel.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.st.kollel[key(userID, programID, date)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) UpsertKollelAttendance(_ context.Context, a kollel.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.kollel[key(a.UserID, a.ProgramID, a.Date)] = a
	return nil
}

func (m *Memory) DeleteKollelAttendance(_ context.Context, userID generic.UserID, programID generic.ProgramID, date generic.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.kollel, key(userID, programID, date))
	return nil
}

func (m *Memory) KollelAttendanceInRange(_ context.Context, userID generic.UserID, programID generic.ProgramID, from, to generic.TimePoint) ([]kollel.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []kollel.Attendance
	for k, a := range m.st.kollel {
		if k.UserID == userID && k.ProgramID == programID && from.BeforeOrEqual(a.Date) && a.Date.BeforeOrEqual(to) {
			result = append(result, a)
		}
	}
	sortKollel(result)
	return result, nil
}

func (m *Memory) ListKollelAttendance(_ context.Context, userID generic.UserID, programID generic.ProgramID) ([]kollel.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []kollel.Attendance
	for k, a := range m.st.kollel {
		if k.UserID == userID && k.ProgramID == programID {
			result = append(result, a)
		}
	}
	sortKollel(result)
	return result, nil
}

func (m *Memory) KollelUsers(_ context.Context, programID generic.ProgramID, from, to generic.TimePoint) ([]generic.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[generic.UserID]bool)
	var users []generic.UserID
	for k, a := range m.st.kollel {
		if k.ProgramID != programID || seen[k.UserID] {
			continue
		}
		if from.BeforeOrEqual(a.Date) && a.Date.BeforeOrEqual(to) {
			seen[k.UserID] = true
			users = append(users, k.UserID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (m *Memory) UpsertMonthlyEarnings(_ context.Context, e kollel.MonthlyEarnings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.monthly[key(e.UserID, e.ProgramID, e.Month)] = e
	return nil
}

func (m *Memory) ListMonthlyEarnings(_ context.Context, userID generic.UserID, programID generic.ProgramID) ([]kollel.MonthlyEarnings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []kollel.MonthlyEarnings
	for k, e := range m.st.monthly {
		if k.UserID == userID && k.ProgramID == programID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month.Before(result[j].Month) })
	return result, nil
}

func sortKollel(days []kollel.Attendance) {
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
}

// =============================================================================
// PAYMENTS (generic.PaymentStore) - append-only
// =============================================================================

func (m *Memory) AppendPayment(_ context.Context, p generic.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ledgerKey{UserID: p.UserID, ProgramID: p.ProgramID}
	payments := m.st.payments[k]

	// Binary search for insertion point keeps payments ordered by PaidOn.
	i := sort.Search(len(payments), func(i int) bool {
		return payments[i].PaidOn.After(p.PaidOn)
	})
	payments = append(payments, generic.Payment{})
	copy(payments[i+1:], payments[i:])
	payments[i] = p
	m.st.payments[k] = payments
	return nil
}

func (m *Memory) Payments(_ context.Context, userID generic.UserID, programID generic.ProgramID) ([]generic.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := ledgerKey{UserID: userID, ProgramID: programID}
	result := make([]generic.Payment, len(m.st.payments[k]))
	copy(result, m.st.payments[k])
	return result, nil
}
