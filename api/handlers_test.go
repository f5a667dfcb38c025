/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Handler attendance submit/get/patch/delete and history
- Weekend pair repricing as seen over HTTP
- Kollel attendance, monthly payroll and batch recalculation
- Payments and the earned/paid/owed summary
- Status code mapping (400 validation, 404 absent)
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/incentive"
	"github.com/warp/stipend-engine/kollel"
	"github.com/warp/stipend-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := memory.New()
	log := quietLogger()
	payments := generic.NewPaymentLedger(store, generic.NewRegistry())

	inc, err := incentive.NewEngine(store, payments, incentive.Config{}, log)
	require.NoError(t, err)
	kol, err := kollel.NewEngine(store, payments, kollel.Config{}, log)
	require.NoError(t, err)
	return NewHandler(inc, kol, payments, log)
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(newTestHandler(t), RouterOptions{})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// GENERAL
// =============================================================================

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestListPrograms(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/programs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	programs := decode[[]ProgramDTO](t, rec)
	require.Len(t, programs, 3)

	assert.Equal(t, "handler", programs[0].ID)
	assert.Equal(t, generic.TrackHandler, programs[0].Track)
	assert.Equal(t, "100.00", programs[0].WeekdayRate)
	assert.Equal(t, "150.00", programs[0].WeekendRate)

	assert.Equal(t, "kollel", programs[1].ID)
	assert.Equal(t, "08:30", programs[1].StartTime)
	assert.Equal(t, "10:30", programs[1].EndTime)
	assert.Equal(t, 120, programs[1].MinutesPerDay)
	assert.Equal(t, "1000.00", programs[1].MonthlySalary)

	assert.Equal(t, "kollel-full", programs[2].ID)
	assert.Equal(t, 195, programs[2].MinutesPerDay)
}

// =============================================================================
// HANDLER ATTENDANCE
// =============================================================================

func TestSubmitAttendance_Weekday(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/users/u1/attendance", SubmitAttendanceRequest{
		Date: "2025-03-10", CameEarly: true, LearnedEarly: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[AttendanceResponse](t, rec)
	assert.Equal(t, "u1", resp.Attendance.UserID)
	assert.Equal(t, "handler", resp.Attendance.ProgramID)
	require.NotNil(t, resp.Earnings)
	assert.Equal(t, "100.00", resp.Earnings.OnTimeBonus)
	assert.Equal(t, "300.00", resp.Earnings.AmountEarned)
	assert.False(t, resp.Earnings.IsWeekend)
}

func TestSubmitAttendance_WeekendPairRepricesSaturday(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: Saturday alone is paid at the weekday rate
	rec := do(t, srv, http.MethodPost, "/api/users/u1/attendance", SubmitAttendanceRequest{Date: "2025-03-08", CameEarly: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200.00", decode[AttendanceResponse](t, rec).Earnings.AmountEarned)

	// WHEN: Sunday is submitted
	rec = do(t, srv, http.MethodPost, "/api/users/u1/attendance", SubmitAttendanceRequest{Date: "2025-03-09", CameEarly: true})
	require.Equal(t, http.StatusOK, rec.Code)
	sun := decode[AttendanceResponse](t, rec)
	assert.Equal(t, "300.00", sun.Earnings.AmountEarned)
	assert.True(t, sun.Earnings.IsWeekend)

	// THEN: Saturday reads back at the weekend rate
	rec = do(t, srv, http.MethodGet, "/api/users/u1/attendance/2025-03-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sat := decode[AttendanceResponse](t, rec)
	assert.Equal(t, "300.00", sat.Earnings.AmountEarned)
	assert.True(t, sat.Earnings.IsWeekend)

	// AND: Deleting Sunday drops Saturday back
	rec = do(t, srv, http.MethodDelete, "/api/users/u1/attendance/2025-03-09", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/users/u1/attendance/2025-03-08", nil)
	assert.Equal(t, "200.00", decode[AttendanceResponse](t, rec).Earnings.AmountEarned)
}

func TestSubmitAttendance_Validation(t *testing.T) {
	srv := newTestServer(t)
	late := 0
	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"malformed JSON", `{"date":`, "body"},
		{"missing date", SubmitAttendanceRequest{CameEarly: true}, "date"},
		{"bad date", SubmitAttendanceRequest{Date: "2025-13-01"}, "date"},
		{"non-positive minutes late", SubmitAttendanceRequest{Date: "2025-03-10", CameLate: true, MinutesLate: &late}, "minutes_late"},
		{"late without minutes", SubmitAttendanceRequest{Date: "2025-03-10", CameLate: true}, "minutes_late"},
		{"learned without early", SubmitAttendanceRequest{Date: "2025-03-10", LearnedEarly: true}, "learned_early"},
		{"early and late", SubmitAttendanceRequest{Date: "2025-03-10", CameEarly: true, CameLate: true, MinutesLate: intPtr(5)}, "came_late"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/users/u1/attendance", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			details, _ := resp.Details.(string)
			assert.True(t, strings.HasPrefix(details, tt.field), details)
		})
	}

	// Nothing was written
	rec := do(t, srv, http.MethodGet, "/api/users/u1/attendance/2025-03-10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAttendance_Errors(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/users/u1/attendance/2025-03-10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/users/u1/attendance/yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchAttendance(t *testing.T) {
	srv := newTestServer(t)
	yes := true

	// A day that was never submitted cannot be patched
	rec := do(t, srv, http.MethodPatch, "/api/users/u1/attendance/2025-03-10", PatchAttendanceRequest{CameEarly: &yes})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/users/u1/attendance", SubmitAttendanceRequest{Date: "2025-03-10"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100.00", decode[AttendanceResponse](t, rec).Earnings.AmountEarned)

	rec = do(t, srv, http.MethodPatch, "/api/users/u1/attendance/2025-03-10", PatchAttendanceRequest{CameEarly: &yes, LearnedEarly: &yes})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AttendanceResponse](t, rec)
	assert.True(t, resp.Attendance.CameEarly)
	assert.True(t, resp.Attendance.LearnedEarly)
	assert.Equal(t, "300.00", resp.Earnings.AmountEarned)

	// A patch that breaks the facts invariants is rejected
	rec = do(t, srv, http.MethodPatch, "/api/users/u1/attendance/2025-03-10", PatchAttendanceRequest{CameLate: &yes, MinutesLate: intPtr(3)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAttendance_Range(t *testing.T) {
	srv := newTestServer(t)
	for _, d := range []string{"2025-03-10", "2025-03-03", "2025-04-01"} {
		rec := do(t, srv, http.MethodPost, "/api/users/u1/attendance", SubmitAttendanceRequest{Date: d})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/api/users/u1/attendance?from=2025-03-01&to=2025-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]AttendanceResponse](t, rec)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-03-03", days[0].Attendance.Date)
	assert.Equal(t, "2025-03-10", days[1].Attendance.Date)
	require.NotNil(t, days[0].Earnings)

	rec = do(t, srv, http.MethodGet, "/api/users/u1/attendance?from=2025-03-31&to=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PAYMENTS AND EARNINGS
// =============================================================================

func TestPayments_AndHandlerSummary(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/users/u1/attendance", SubmitAttendanceRequest{Date: "2025-03-10", CameEarly: true, LearnedEarly: true})
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: An admin records a payment without a program
	rec = do(t, srv, http.MethodPost, "/api/admin/payments", RecordPaymentRequest{
		UserID: "u1", Amount: "250", PaymentDate: "2025-03-15", Notes: "march", RecordedBy: "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[PaymentDTO](t, rec)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "handler", p.ProgramID)
	assert.Equal(t, "250.00", p.Amount)

	// THEN: The summary nets it out
	rec = do(t, srv, http.MethodGet, "/api/users/u1/earnings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[SummaryDTO](t, rec)
	assert.Equal(t, SummaryDTO{TotalEarned: "300.00", TotalPaid: "250.00", TotalOwed: "50.00"}, summary)

	rec = do(t, srv, http.MethodGet, "/api/users/u1/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]PaymentDTO](t, rec), 1)

	rec = do(t, srv, http.MethodGet, "/api/users/u1/payments?program_id=kollel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]PaymentDTO](t, rec))
}

func TestRecordPayment_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		body   RecordPaymentRequest
		status int
	}{
		{"missing user", RecordPaymentRequest{Amount: "10", PaymentDate: "2025-03-01"}, http.StatusBadRequest},
		{"not a number", RecordPaymentRequest{UserID: "u1", Amount: "ten", PaymentDate: "2025-03-01"}, http.StatusBadRequest},
		{"zero", RecordPaymentRequest{UserID: "u1", Amount: "0", PaymentDate: "2025-03-01"}, http.StatusBadRequest},
		{"bad date", RecordPaymentRequest{UserID: "u1", Amount: "10", PaymentDate: "03/01/2025"}, http.StatusBadRequest},
		{"unknown program", RecordPaymentRequest{UserID: "u1", ProgramID: "nope", Amount: "10", PaymentDate: "2025-03-01"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/admin/payments", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// KOLLEL
// =============================================================================

func TestKollel_SubmitCalculateReport(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: Two hours on one day of February 2026
	rec := do(t, srv, http.MethodPost, "/api/users/u1/kollel/kollel/attendance", KollelAttendanceRequest{
		Date: "2026-02-02", ArrivalTime: "08:30", DepartureTime: "10:30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 120, decode[KollelAttendanceDTO](t, rec).Minutes)

	// WHEN: Calculating the month
	rec = do(t, srv, http.MethodPost, "/api/users/u1/kollel/kollel/earnings/2026/2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entry := decode[MonthlyEarningsDTO](t, rec)

	// THEN: 120 of 2400 minutes is 1/20 of the salary
	assert.Equal(t, "2026-02-01", entry.Month)
	assert.Equal(t, 120, entry.TotalMinutesAttended)
	assert.Equal(t, 2400, entry.TotalAvailableMinutes)
	assert.Equal(t, "0.416667", entry.RatePerMinute)
	assert.Equal(t, "50.00", entry.AmountEarned)

	// AND: The report carries the summary and the details
	rec = do(t, srv, http.MethodGet, "/api/users/u1/kollel/kollel/earnings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[KollelReportDTO](t, rec)
	assert.Equal(t, "50.00", report.Summary.TotalEarned)
	assert.Equal(t, "50.00", report.Summary.TotalOwed)
	assert.Len(t, report.MonthlyEarnings, 1)
	require.Len(t, report.DailyAttendance, 1)
	assert.Equal(t, "08:30", report.DailyAttendance[0].ArrivalTime)

	// AND: Deleting the day leaves the stored month until it is recalculated
	rec = do(t, srv, http.MethodDelete, "/api/users/u1/kollel/kollel/attendance/2026-02-02", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/users/u1/kollel/kollel/earnings", nil)
	report = decode[KollelReportDTO](t, rec)
	assert.Empty(t, report.DailyAttendance)
	assert.Equal(t, "50.00", report.Summary.TotalEarned)
}

func TestKollel_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"arrival before window", http.MethodPost, "/api/users/u1/kollel/kollel/attendance",
			KollelAttendanceRequest{Date: "2026-02-02", ArrivalTime: "08:00", DepartureTime: "10:00"}, http.StatusBadRequest},
		{"departure after window", http.MethodPost, "/api/users/u1/kollel/kollel/attendance",
			KollelAttendanceRequest{Date: "2026-02-02", ArrivalTime: "09:00", DepartureTime: "11:00"}, http.StatusBadRequest},
		{"unparseable time", http.MethodPost, "/api/users/u1/kollel/kollel/attendance",
			KollelAttendanceRequest{Date: "2026-02-02", ArrivalTime: "25:00", DepartureTime: "10:00"}, http.StatusBadRequest},
		{"missing departure", http.MethodPost, "/api/users/u1/kollel/kollel/attendance",
			KollelAttendanceRequest{Date: "2026-02-02", ArrivalTime: "09:00"}, http.StatusBadRequest},
		{"unknown program submit", http.MethodPost, "/api/users/u1/kollel/nope/attendance",
			KollelAttendanceRequest{Date: "2026-02-02", ArrivalTime: "09:00", DepartureTime: "10:00"}, http.StatusNotFound},
		{"unknown program calculate", http.MethodPost, "/api/users/u1/kollel/nope/earnings/2026/2", nil, http.StatusNotFound},
		{"unknown program report", http.MethodGet, "/api/users/u1/kollel/nope/earnings", nil, http.StatusNotFound},
		{"bad month", http.MethodPost, "/api/users/u1/kollel/kollel/earnings/2026/13", nil, http.StatusBadRequest},
		{"bad year", http.MethodPost, "/api/users/u1/kollel/kollel/earnings/next/2", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRecalculateKollelMonth(t *testing.T) {
	srv := newTestServer(t)
	for _, user := range []string{"u1", "u2"} {
		rec := do(t, srv, http.MethodPost, "/api/users/"+user+"/kollel/kollel/attendance", KollelAttendanceRequest{
			Date: "2026-02-03", ArrivalTime: "09:00", DepartureTime: "10:00",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, srv, http.MethodPost, "/api/admin/kollel/kollel/recalculate", RecalculateRequest{Year: 2026, Month: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[RecalculateResponse](t, rec)
	assert.Equal(t, "kollel", resp.ProgramID)
	assert.Equal(t, "2026-02-01", resp.Month)
	assert.Equal(t, 2, resp.Users)
	require.Len(t, resp.Earnings, 2)
	assert.Equal(t, "25.00", resp.Earnings[0].AmountEarned)

	rec = do(t, srv, http.MethodPost, "/api/admin/kollel/nope/recalculate", RecalculateRequest{Year: 2026, Month: 2})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/admin/kollel/kollel/recalculate", RecalculateRequest{Year: 2026, Month: 13})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func intPtr(v int) *int { return &v }
