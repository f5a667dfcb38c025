/*
ledger.go - Append-only payment ledger and earned/paid/owed summary

PURPOSE:
  Payments are the only money records an admin writes by hand. They are
  independent of earnings: the engines never create a payment, and a
  recomputation of earnings never touches one.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. NEVER DERIVED: Payments are recorded by an admin, not generated.
  3. OWED IS DERIVED: TotalOwed = TotalEarned - TotalPaid, computed on read.
     A negative TotalOwed means the user was overpaid and is shown as-is.

CORRECTIONS:
  A mistaken payment is corrected by recording another payment with the
  opposite sign. Both remain in the ledger.

SEE ALSO:
  - store.go: PaymentStore persistence interface
  - incentive/engine.go, kollel/engine.go: produce TotalEarned
*/
package generic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT
// =============================================================================

type Payment struct {
	ID         PaymentID
	UserID     UserID
	ProgramID  ProgramID
	Amount     decimal.Decimal
	PaidOn     TimePoint
	Notes      string
	RecordedBy string // admin who recorded the payment
	CreatedAt  time.Time
}

// =============================================================================
// SUMMARY - Earned vs paid, never persisted
// =============================================================================

type Summary struct {
	TotalEarned Amount
	TotalPaid   Amount
	TotalOwed   Amount
}

func NewSummary(earned, paid decimal.Decimal) Summary {
	return Summary{
		TotalEarned: Dollars(earned),
		TotalPaid:   Dollars(paid),
		TotalOwed:   Dollars(earned.Sub(paid)),
	}
}

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

type PaymentLedger struct {
	Store    PaymentStore
	Programs *Registry // optional; when set, unknown programs are rejected
	now      func() time.Time
}

func NewPaymentLedger(store PaymentStore, programs *Registry) *PaymentLedger {
	return &PaymentLedger{Store: store, Programs: programs, now: time.Now}
}

// Record validates and appends a payment. The ID and CreatedAt are assigned
// here when the caller leaves them empty.
func (l *PaymentLedger) Record(ctx context.Context, p Payment) (Payment, error) {
	if p.UserID == "" {
		return Payment{}, Invalid("user_id", "is required")
	}
	if p.Amount.IsZero() {
		return Payment{}, Invalid("amount", "must not be zero")
	}
	if p.PaidOn.IsZero() {
		return Payment{}, Invalid("payment_date", "is required")
	}
	if l.Programs != nil && p.ProgramID != "" {
		if _, ok := l.Programs.Lookup(p.ProgramID); !ok {
			return Payment{}, errors.Wrapf(ErrProgramNotFound, "program %q", p.ProgramID)
		}
	}
	if p.ID == "" {
		p.ID = PaymentID(uuid.NewString())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = l.now().UTC()
	}
	if err := l.Store.AppendPayment(ctx, p); err != nil {
		return Payment{}, errors.Wrap(err, "append payment")
	}
	return p, nil
}

// Payments returns the user's payments for a program, oldest first.
func (l *PaymentLedger) Payments(ctx context.Context, userID UserID, programID ProgramID) ([]Payment, error) {
	return l.Store.Payments(ctx, userID, programID)
}

// TotalPaid sums the user's payments for a program.
func (l *PaymentLedger) TotalPaid(ctx context.Context, userID UserID, programID ProgramID) (decimal.Decimal, error) {
	payments, err := l.Store.Payments(ctx, userID, programID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load payments")
	}
	amounts := make([]decimal.Decimal, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	return SumDecimals(amounts), nil
}

// Summarize pairs an earned total with the user's payments for the program.
func (l *PaymentLedger) Summarize(ctx context.Context, userID UserID, programID ProgramID, earned decimal.Decimal) (Summary, error) {
	paid, err := l.TotalPaid(ctx, userID, programID)
	if err != nil {
		return Summary{}, err
	}
	return NewSummary(earned, paid), nil
}
