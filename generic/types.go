/*
Package generic provides the program-agnostic core of the stipend engine.

PURPOSE:
  This package contains the types and helpers shared by every attendance
  program. Whether a user earns daily bonuses (Handler) or a pro-rated
  monthly salary (Kollel), the same money, calendar, payment ledger and
  error types are used.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A money quantity tagged with its unit
  - UserID / ProgramID / PaymentID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Money is decimal.Decimal, never float64
  2. Type Safety: Strong typing prevents mixing user and program IDs
  3. Recomputation: Earnings are derived and may be recomputed at will;
     payments are append-only and never derived

USAGE:
  owed := generic.Dollars(earned.Sub(paid))
  fmt.Println(owed) // "-30.25"

SEE ALSO:
  - time.go: Calendar dates and clock times
  - period.go: Month periods and workday counting
  - ledger.go: Payment ledger and earned/paid/owed summary
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const UnitDollars Unit = "dollars"

// Dollars is shorthand for a money amount.
func Dollars(value decimal.Decimal) Amount {
	return Amount{Value: value, Unit: UnitDollars}
}

// String renders money with two decimals and other units as-is.
func (a Amount) String() string {
	if a.Unit == UnitDollars {
		return a.Value.StringFixed(2)
	}
	return a.Value.String()
}

// SumDecimals adds up a slice of decimals. Stores hand back amounts as text
// and we add them here rather than in SQL so no float ever touches money.
func SumDecimals(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type ProgramID string
type PaymentID string
