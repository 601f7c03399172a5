package invoicing

import (
	"github.com/shopspring/decimal"
)

// Ledger aggregates an invoice total against its payment records.
type Ledger struct {
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`

	// outstanding keeps the unclamped signed difference so overpayment is
	// not silently hidden by the display clamp.
	outstanding decimal.Decimal
}

// BuildLedger sums the payment amounts and computes the remaining balance.
// Remaining is clamped at zero for display; the signed difference stays
// queryable through Outstanding and Overpaid.
func BuildLedger(total decimal.Decimal, payments []Payment) Ledger {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	outstanding := total.Sub(paid)
	remaining := outstanding
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Ledger{
		Total:       total,
		Paid:        paid,
		Remaining:   remaining,
		outstanding: outstanding,
	}
}

// Outstanding returns the signed total minus paid difference, negative when
// the invoice is overpaid.
func (l Ledger) Outstanding() decimal.Decimal {
	return l.outstanding
}

// Overpaid reports whether payments exceed the invoice total.
func (l Ledger) Overpaid() bool {
	return l.outstanding.IsNegative()
}

// Overpayment returns the overpaid amount, zero when not overpaid.
func (l Ledger) Overpayment() decimal.Decimal {
	if !l.Overpaid() {
		return decimal.Zero
	}
	return l.outstanding.Neg()
}
