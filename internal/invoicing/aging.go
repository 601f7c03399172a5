package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgingBuckets summarises open balances by how long they are overdue.
type AgingBuckets struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket_30"`
	Bucket60  decimal.Decimal `json:"bucket_60"`
	Bucket90  decimal.Decimal `json:"bucket_90"`
	Bucket120 decimal.Decimal `json:"bucket_120"`
}

// Total returns the sum across all buckets.
func (b AgingBuckets) Total() decimal.Decimal {
	return b.Current.Add(b.Bucket30).Add(b.Bucket60).Add(b.Bucket90).Add(b.Bucket120)
}

// ComputeAging groups the remaining balances of the given invoices into
// overdue buckets as of the reference date. Fully paid invoices contribute
// nothing.
func ComputeAging(invoices []Invoice, asOf time.Time) AgingBuckets {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	buckets := AgingBuckets{
		Current:   decimal.Zero,
		Bucket30:  decimal.Zero,
		Bucket60:  decimal.Zero,
		Bucket90:  decimal.Zero,
		Bucket120: decimal.Zero,
	}
	for _, inv := range invoices {
		ledger := BuildLedger(inv.Total(), inv.Payments)
		if !ledger.Remaining.IsPositive() {
			continue
		}
		c := ClassifyInvoice(inv, asOf)
		switch {
		case c.OverdueDays <= 0:
			buckets.Current = buckets.Current.Add(ledger.Remaining)
		case c.OverdueDays <= 30:
			buckets.Bucket30 = buckets.Bucket30.Add(ledger.Remaining)
		case c.OverdueDays <= 60:
			buckets.Bucket60 = buckets.Bucket60.Add(ledger.Remaining)
		case c.OverdueDays <= 90:
			buckets.Bucket90 = buckets.Bucket90.Add(ledger.Remaining)
		default:
			buckets.Bucket120 = buckets.Bucket120.Add(ledger.Remaining)
		}
	}
	return buckets
}
