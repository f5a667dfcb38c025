/*
handlers.go - HTTP API handlers for the stipend engine

PURPOSE:
  Exposes the incentive engine, the kollel payroll engine and the payment
  ledger over a REST API. Handlers parse and validate, call one engine
  operation and serialize the result. No business rules live here.

ENDPOINTS:
  Programs:
    GET    /api/programs                                   List programs

  Handler attendance:
    POST   /api/users/{userID}/attendance                  Submit a day
    GET    /api/users/{userID}/attendance?from=&to=        History
    GET    /api/users/{userID}/attendance/{date}           One day
    PATCH  /api/users/{userID}/attendance/{date}           Partial update
    DELETE /api/users/{userID}/attendance/{date}           Remove a day
    GET    /api/users/{userID}/earnings                    Earned/paid/owed

  Kollel:
    POST   /api/users/{userID}/kollel/{programID}/attendance
    DELETE /api/users/{userID}/kollel/{programID}/attendance/{date}
    POST   /api/users/{userID}/kollel/{programID}/earnings/{year}/{month}
    GET    /api/users/{userID}/kollel/{programID}/earnings

  Payments:
    GET    /api/users/{userID}/payments?program_id=
    POST   /api/admin/payments

  Admin:
    POST   /api/admin/kollel/{programID}/recalculate       Batch payroll

ERROR HANDLING:
  Errors are returned as JSON {error, details} with:
  - 400: Validation errors (generic.ErrValidation)
  - 404: Absent records, unknown programs
  - 500: Everything else, logged with the request id

SECURITY NOTE:
  No authentication or authorization. Put the API behind an authenticating
  proxy; RecordedBy on payments is whatever the caller sends.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/incentive"
	"github.com/warp/stipend-engine/kollel"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Incentive *incentive.Engine
	Kollel    *kollel.Engine
	Payments  *generic.PaymentLedger
	Programs  *generic.Registry
	Log       logrus.FieldLogger
}

// NewHandler wires the engines and registers their programs.
func NewHandler(inc *incentive.Engine, kol *kollel.Engine, payments *generic.PaymentLedger, log logrus.FieldLogger) *Handler {
	programs := generic.NewRegistry()
	if payments != nil && payments.Programs != nil {
		programs = payments.Programs
	}
	programs.Register(inc.Program())
	for _, p := range kol.Programs() {
		programs.Register(p)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Incentive: inc,
		Kollel:    kol,
		Payments:  payments,
		Programs:  programs,
		Log:       log,
	}
}

// =============================================================================
// PROGRAM HANDLERS
// =============================================================================

// ListPrograms returns every registered program.
// GET /api/programs
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs := h.Programs.List()
	dtos := make([]ProgramDTO, 0, len(programs))
	for _, p := range programs {
		dto := ProgramDTO{
			ID:    string(p.ProgramID()),
			Name:  p.ProgramName(),
			Track: p.ProgramTrack(),
		}
		switch prog := p.(type) {
		case incentive.Program:
			rates := h.Incentive.Rates()
			dto.WeekdayRate = rates.Weekday.StringFixed(2)
			dto.WeekendRate = rates.Weekend.StringFixed(2)
		case kollel.Program:
			dto.StartTime = prog.Start.String()
			dto.EndTime = prog.End.String()
			dto.MinutesPerDay = prog.DailyMinutes()
			dto.MonthlySalary = prog.MonthlySalary.StringFixed(2)
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HANDLER ATTENDANCE
// =============================================================================

// SubmitAttendance upserts a day and returns it with its earnings.
// POST /api/users/{userID}/attendance
func (h *Handler) SubmitAttendance(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))

	var req SubmitAttendanceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, "Invalid attendance", err)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	a, e, err := h.Incentive.SubmitAttendance(r.Context(), userID, date, req.Facts())
	if err != nil {
		h.fail(w, r, "Failed to submit attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceResponse{Attendance: toAttendanceDTO(*a), Earnings: toEarningsDTO(e)})
}

// GetAttendance returns one day, 404 when nothing was submitted.
// GET /api/users/{userID}/attendance/{date}
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	a, err := h.Incentive.GetAttendanceByDate(r.Context(), userID, date)
	if err != nil {
		h.fail(w, r, "Failed to get attendance", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Attendance not found", nil)
		return
	}
	e, err := h.Incentive.GetEarningsByDate(r.Context(), userID, date)
	if err != nil {
		h.fail(w, r, "Failed to get earnings", err)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceResponse{Attendance: toAttendanceDTO(*a), Earnings: toEarningsDTO(e)})
}

// PatchAttendance merges the body over the stored day.
// PATCH /api/users/{userID}/attendance/{date}
func (h *Handler) PatchAttendance(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	var req PatchAttendanceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, "Invalid attendance", err)
		return
	}

	a, e, err := h.Incentive.PatchAttendance(r.Context(), userID, date, req.Patch())
	if err != nil {
		h.fail(w, r, "Failed to update attendance", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Attendance not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceResponse{Attendance: toAttendanceDTO(*a), Earnings: toEarningsDTO(e)})
}

// DeleteAttendance removes a day.
// DELETE /api/users/{userID}/attendance/{date}
func (h *Handler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	if err := h.Incentive.DeleteAttendance(r.Context(), userID, date); err != nil {
		h.fail(w, r, "Failed to delete attendance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAttendance returns the history of a range, the current month by default.
// GET /api/users/{userID}/attendance?from=&to=
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))

	period := generic.MonthOf(generic.Today())
	if from := r.URL.Query().Get("from"); from != "" {
		d, err := generic.ParseDate(from)
		if err != nil {
			h.fail(w, r, "Invalid from", err)
			return
		}
		period.Start = d
	}
	if to := r.URL.Query().Get("to"); to != "" {
		d, err := generic.ParseDate(to)
		if err != nil {
			h.fail(w, r, "Invalid to", err)
			return
		}
		period.End = d
	}

	days, err := h.Incentive.History(r.Context(), userID, period)
	if err != nil {
		h.fail(w, r, "Failed to list attendance", err)
		return
	}
	dtos := make([]AttendanceResponse, len(days))
	for i, d := range days {
		dtos[i] = AttendanceResponse{Attendance: toAttendanceDTO(d.Attendance), Earnings: toEarningsDTO(d.Earnings)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEarnings returns the Handler ledger summary.
// GET /api/users/{userID}/earnings
func (h *Handler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))

	summary, err := h.Incentive.UserEarnings(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "Failed to get earnings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// KOLLEL
// =============================================================================

// SubmitKollelAttendance validates the window and upserts the day.
// POST /api/users/{userID}/kollel/{programID}/attendance
func (h *Handler) SubmitKollelAttendance(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	programID := generic.ProgramID(chi.URLParam(r, "programID"))

	var req KollelAttendanceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, "Invalid attendance", err)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}
	arrival, err := generic.ParseClock(req.ArrivalTime)
	if err != nil {
		h.fail(w, r, "Invalid arrival_time", err)
		return
	}
	departure, err := generic.ParseClock(req.DepartureTime)
	if err != nil {
		h.fail(w, r, "Invalid departure_time", err)
		return
	}

	a, err := h.Kollel.SubmitAttendance(r.Context(), userID, programID, date, arrival, departure)
	if err != nil {
		h.fail(w, r, "Failed to submit kollel attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toKollelAttendanceDTO(*a))
}

// DeleteKollelAttendance removes a day.
// DELETE /api/users/{userID}/kollel/{programID}/attendance/{date}
func (h *Handler) DeleteKollelAttendance(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	programID := generic.ProgramID(chi.URLParam(r, "programID"))
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return
	}

	if err := h.Kollel.DeleteAttendance(r.Context(), userID, programID, date); err != nil {
		h.fail(w, r, "Failed to delete kollel attendance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CalculateKollelEarnings recomputes one user's month.
// POST /api/users/{userID}/kollel/{programID}/earnings/{year}/{month}
func (h *Handler) CalculateKollelEarnings(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	programID := generic.ProgramID(chi.URLParam(r, "programID"))
	year, month, err := parseYearMonth(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
	if err != nil {
		h.fail(w, r, "Invalid month", err)
		return
	}

	entry, err := h.Kollel.CalculateEarnings(r.Context(), userID, programID, year, month)
	if err != nil {
		h.fail(w, r, "Failed to calculate earnings", err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "Program not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyEarningsDTO(*entry))
}

// GetKollelEarnings returns the kollel ledger of one program.
// GET /api/users/{userID}/kollel/{programID}/earnings
func (h *Handler) GetKollelEarnings(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	programID := generic.ProgramID(chi.URLParam(r, "programID"))

	report, err := h.Kollel.UserEarnings(r.Context(), userID, programID)
	if err != nil {
		h.fail(w, r, "Failed to get kollel earnings", err)
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "Program not found", nil)
		return
	}

	resp := KollelReportDTO{
		Summary:         toSummaryDTO(report.Summary),
		MonthlyEarnings: make([]MonthlyEarningsDTO, len(report.MonthlyEarnings)),
		DailyAttendance: make([]KollelAttendanceDTO, len(report.DailyAttendance)),
	}
	for i, m := range report.MonthlyEarnings {
		resp.MonthlyEarnings[i] = toMonthlyEarningsDTO(m)
	}
	for i, a := range report.DailyAttendance {
		resp.DailyAttendance[i] = toKollelAttendanceDTO(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// RecalculateKollelMonth reruns payroll for every user of the month.
// POST /api/admin/kollel/{programID}/recalculate
func (h *Handler) RecalculateKollelMonth(w http.ResponseWriter, r *http.Request) {
	programID := generic.ProgramID(chi.URLParam(r, "programID"))

	var req RecalculateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	if _, ok := h.Kollel.Program(programID); !ok {
		writeError(w, http.StatusNotFound, "Program not found", nil)
		return
	}

	entries, err := h.Kollel.RecalculateMonth(r.Context(), programID, req.Year, time.Month(req.Month))
	if err != nil {
		h.fail(w, r, "Failed to recalculate", err)
		return
	}
	resp := RecalculateResponse{
		ProgramID: string(programID),
		Month:     generic.StartOfMonth(req.Year, time.Month(req.Month)).String(),
		Users:     len(entries),
		Earnings:  make([]MonthlyEarningsDTO, len(entries)),
	}
	for i, e := range entries {
		resp.Earnings[i] = toMonthlyEarningsDTO(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment appends a payment to the ledger.
// POST /api/admin/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, "Invalid payment", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.fail(w, r, "Invalid payment", generic.Invalid("amount", "%q is not a decimal amount", req.Amount))
		return
	}
	paidOn, err := generic.ParseDate(req.PaymentDate)
	if err != nil {
		h.fail(w, r, "Invalid payment_date", err)
		return
	}
	programID := generic.ProgramID(req.ProgramID)
	if programID == "" {
		programID = h.Incentive.Program().ID
	}

	p, err := h.Payments.Record(r.Context(), generic.Payment{
		UserID:     generic.UserID(req.UserID),
		ProgramID:  programID,
		Amount:     amount,
		PaidOn:     paidOn,
		Notes:      req.Notes,
		RecordedBy: req.RecordedBy,
	})
	if err != nil {
		h.fail(w, r, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// ListPayments returns a user's payments for one program, the Handler
// program by default.
// GET /api/users/{userID}/payments?program_id=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID := generic.UserID(chi.URLParam(r, "userID"))
	programID := generic.ProgramID(r.URL.Query().Get("program_id"))
	if programID == "" {
		programID = h.Incentive.Program().ID
	}

	payments, err := h.Payments.Payments(r.Context(), userID, programID)
	if err != nil {
		h.fail(w, r, "Failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseYearMonth(y, m string) (int, time.Month, error) {
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, generic.Invalid("year", "%q is not a year", y)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, generic.Invalid("month", "%q is not a month", m)
	}
	return year, time.Month(month), nil
}

// fail maps an engine error onto a status code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		h.Log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
