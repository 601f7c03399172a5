package invoicing

import (
	"errors"
	"fmt"
)

var (
	// ErrCrossPartnerOffset rejects netting against another partner's invoice.
	ErrCrossPartnerOffset = errors.New("offset invoice belongs to a different partner")
	// ErrOffsetUnknownInvoice rejects netting against an invoice that is not
	// an offerable candidate.
	ErrOffsetUnknownInvoice = errors.New("offset invoice is not an open counter-party invoice")
	// ErrOffsetRequired rejects a netting payment without offset invoices.
	ErrOffsetRequired = errors.New("netting payment requires at least one offset invoice")
)

// OffsetCandidates filters counter-party invoices down to the set that may
// be offered for debt netting against inv: same partner, opposite
// direction, and an open balance. Cross-partner invoices are never offered.
func OffsetCandidates(inv Invoice, counterInvoices []Invoice) []Invoice {
	var out []Invoice
	for _, c := range counterInvoices {
		if c.PartnerID != inv.PartnerID {
			continue
		}
		if c.Kind != inv.Kind.Opposite() {
			continue
		}
		ledger := BuildLedger(c.Total(), c.Payments)
		if !ledger.Remaining.IsPositive() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ValidateOffset checks a chosen set of offset invoice ids against the
// offerable candidates before anything is sent to the backend. It
// distinguishes cross-partner picks from plain unknown ids.
func ValidateOffset(inv Invoice, counterInvoices []Invoice, offsetIDs []int64) error {
	if len(offsetIDs) == 0 {
		return ErrOffsetRequired
	}
	candidates := make(map[int64]struct{})
	partners := make(map[int64]int64)
	for _, c := range OffsetCandidates(inv, counterInvoices) {
		candidates[c.ID] = struct{}{}
	}
	for _, c := range counterInvoices {
		partners[c.ID] = c.PartnerID
	}
	for _, id := range offsetIDs {
		if _, ok := candidates[id]; ok {
			continue
		}
		if partner, known := partners[id]; known && partner != inv.PartnerID {
			return fmt.Errorf("invoice %d: %w", id, ErrCrossPartnerOffset)
		}
		return fmt.Errorf("invoice %d: %w", id, ErrOffsetUnknownInvoice)
	}
	return nil
}
