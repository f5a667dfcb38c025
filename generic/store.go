/*
store.go - Persistence interface for payments

PURPOSE:
  Defines the interface between the payment ledger and the database.
  Program packages define their own repository interfaces next to the
  engines that consume them (incentive.Store, kollel.Store); the store
  implementations satisfy all of them.

APPEND-ONLY CONTRACT:
  - AppendPayment(): Single payment write
  - NO Update() or Delete() methods exist

IMPLEMENTATIONS:
  - store/sqlstore: SQLite (default) or PostgreSQL
  - store/memory: In-memory for testing
*/
package generic

import "context"

// PaymentStore handles persistence of payments.
type PaymentStore interface {
	// AppendPayment persists a payment. This is the ONLY write operation.
	AppendPayment(ctx context.Context, p Payment) error

	// Payments returns all payments for user+program ordered by PaidOn.
	Payments(ctx context.Context, userID UserID, programID ProgramID) ([]Payment, error)
}
