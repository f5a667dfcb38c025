package generic_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/store/memory"
)

type testProgram struct {
	id    generic.ProgramID
	track string
}

func (p testProgram) ProgramID() generic.ProgramID { return p.id }
func (p testProgram) ProgramTrack() string         { return p.track }
func (p testProgram) ProgramName() string          { return string(p.id) }

func newTestPaymentLedger(t *testing.T) *generic.PaymentLedger {
	t.Helper()
	registry := generic.NewRegistry()
	registry.Register(testProgram{id: "handler", track: generic.TrackHandler})
	registry.Register(testProgram{id: "kollel", track: generic.TrackKollel})
	return generic.NewPaymentLedger(memory.New(), registry)
}

func payment(user string, program generic.ProgramID, amount string, paidOn generic.TimePoint) generic.Payment {
	return generic.Payment{
		UserID:    generic.UserID(user),
		ProgramID: program,
		Amount:    decimal.RequireFromString(amount),
		PaidOn:    paidOn,
	}
}

// =============================================================================
// RECORD
// =============================================================================

func TestPaymentLedger_RecordAssignsIDAndTimestamp(t *testing.T) {
	ledger := newTestPaymentLedger(t)
	ctx := context.Background()

	p, err := ledger.Record(ctx, payment("u1", "handler", "200", generic.NewTimePoint(2025, time.March, 1)))
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	stored, err := ledger.Payments(ctx, "u1", "handler")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, p.ID, stored[0].ID)
}

func TestPaymentLedger_RecordValidation(t *testing.T) {
	ledger := newTestPaymentLedger(t)
	ctx := context.Background()
	day := generic.NewTimePoint(2025, time.March, 1)

	_, err := ledger.Record(ctx, payment("", "handler", "10", day))
	assert.True(t, generic.IsClientError(err), "user is required")

	_, err = ledger.Record(ctx, payment("u1", "handler", "0", day))
	assert.True(t, generic.IsClientError(err), "zero payments are rejected")

	_, err = ledger.Record(ctx, payment("u1", "handler", "10", generic.TimePoint{}))
	assert.True(t, generic.IsClientError(err), "payment date is required")

	_, err = ledger.Record(ctx, payment("u1", "nope", "10", day))
	assert.True(t, errors.Is(err, generic.ErrProgramNotFound))
	assert.True(t, generic.IsNotFound(err))
}

func TestPaymentLedger_CorrectionIsAnotherPayment(t *testing.T) {
	// GIVEN: A payment recorded by mistake
	ledger := newTestPaymentLedger(t)
	ctx := context.Background()
	day := generic.NewTimePoint(2025, time.March, 1)
	_, err := ledger.Record(ctx, payment("u1", "handler", "300", day))
	require.NoError(t, err)

	// WHEN: It is reversed with a negative payment
	_, err = ledger.Record(ctx, payment("u1", "handler", "-300", day.AddDays(1)))
	require.NoError(t, err)

	// THEN: Both remain and the total is zero
	all, err := ledger.Payments(ctx, "u1", "handler")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	total, err := ledger.TotalPaid(ctx, "u1", "handler")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestPaymentLedger_SummarizeByProgram(t *testing.T) {
	// GIVEN: Payments under two programs
	ledger := newTestPaymentLedger(t)
	ctx := context.Background()
	day := generic.NewTimePoint(2025, time.March, 1)
	for _, p := range []generic.Payment{
		payment("u1", "handler", "100", day),
		payment("u1", "handler", "50.25", day.AddDays(3)),
		payment("u1", "kollel", "999", day),
		payment("u2", "handler", "1", day),
	} {
		_, err := ledger.Record(ctx, p)
		require.NoError(t, err)
	}

	// WHEN: Summarizing u1's handler ledger against 120 earned
	s, err := ledger.Summarize(ctx, "u1", "handler", decimal.NewFromInt(120))
	require.NoError(t, err)

	// THEN: Only handler payments count and owed goes negative unclamped
	assert.Equal(t, "120.00", s.TotalEarned.String())
	assert.Equal(t, "150.25", s.TotalPaid.String())
	assert.Equal(t, "-30.25", s.TotalOwed.String())
	assert.Equal(t, generic.UnitDollars, s.TotalOwed.Unit)
}

func TestPaymentLedger_PaymentsOrderedByDate(t *testing.T) {
	ledger := newTestPaymentLedger(t)
	ctx := context.Background()

	for _, d := range []int{15, 1, 10} {
		_, err := ledger.Record(ctx, payment("u1", "handler", "10", generic.NewTimePoint(2025, time.March, d)))
		require.NoError(t, err)
	}

	all, err := ledger.Payments(ctx, "u1", "handler")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].PaidOn.Day())
	assert.Equal(t, 10, all[1].PaidOn.Day())
	assert.Equal(t, 15, all[2].PaidOn.Day())
}

func TestRegistry_ListByTrack(t *testing.T) {
	r := generic.NewRegistry()
	r.Register(testProgram{id: "kollel-full", track: generic.TrackKollel})
	r.Register(testProgram{id: "handler", track: generic.TrackHandler})
	r.Register(testProgram{id: "kollel", track: generic.TrackKollel})

	all := r.List()
	require.Len(t, all, 3)
	assert.Equal(t, generic.ProgramID("handler"), all[0].ProgramID())

	kollels := r.ListByTrack(generic.TrackKollel)
	require.Len(t, kollels, 2)
	assert.Equal(t, generic.ProgramID("kollel"), kollels[0].ProgramID())
	assert.Equal(t, generic.ProgramID("kollel-full"), kollels[1].ProgramID())

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}
