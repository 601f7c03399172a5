package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKind distinguishes the two invoice directions.
type InvoiceKind string

const (
	KindSales    InvoiceKind = "sales"
	KindPurchase InvoiceKind = "purchase"
)

// Valid reports whether the kind is one of the known directions.
func (k InvoiceKind) Valid() bool {
	return k == KindSales || k == KindPurchase
}

// Opposite returns the counter-party direction used for debt netting.
func (k InvoiceKind) Opposite() InvoiceKind {
	if k == KindSales {
		return KindPurchase
	}
	return KindSales
}

// PaymentMethod enumerates how a payment was settled.
type PaymentMethod string

const (
	MethodTransfer PaymentMethod = "transfer"
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	// MethodNetting settles an invoice against counter-party invoices
	// instead of a cash movement.
	MethodNetting PaymentMethod = "netting"
)

// PaymentStatus enumerates the stored categorical payment statuses.
type PaymentStatus string

const (
	StatusUnpaid        PaymentStatus = "unpaid"
	StatusPartiallyPaid PaymentStatus = "partially_paid"
	StatusPaid          PaymentStatus = "paid"
	// StatusOverdue is a display-only classification, never stored.
	StatusOverdue PaymentStatus = "overdue"
)

// Payment is one ledger entry against an invoice.
type Payment struct {
	ID     int64           `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	PaidOn time.Time       `json:"paid_on"`
	Method PaymentMethod   `json:"method"`
	Notes  string          `json:"notes"`
	// OffsetInvoiceIDs lists the counter-party invoices a netting payment
	// was settled against.
	OffsetInvoiceIDs []int64   `json:"offset_invoice_ids,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Invoice is a sales or purchase invoice snapshot as returned by the
// back-office backend.
type Invoice struct {
	ID        int64       `json:"id"`
	Kind      InvoiceKind `json:"kind"`
	Number    string      `json:"number"`
	PartnerID int64       `json:"partner_id"`

	AmountNet   decimal.Decimal `json:"amount_net"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	AmountTotal decimal.Decimal `json:"amount_total"`

	// Dates are kept as the raw backend strings; due dates are known to
	// arrive malformed and are repaired at classification time.
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date"`
	PaymentDate string `json:"payment_date,omitempty"`

	Status   PaymentStatus `json:"payment_status"`
	OrderIDs []int64       `json:"order_ids,omitempty"`
	Payments []Payment     `json:"payments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceDraft carries the editable invoice fields for create and update
// operations. Amounts are net; the backend computes the gross total from
// the VAT rate.
type InvoiceDraft struct {
	Number    string          `json:"number" validate:"required,max=64"`
	PartnerID int64           `json:"partner_id" validate:"required,gt=0"`
	AmountNet decimal.Decimal `json:"amount_net" validate:"-"`
	VATRate   decimal.Decimal `json:"vat_rate" validate:"-"`
	IssueDate string          `json:"issue_date" validate:"required"`
	DueDate   string          `json:"due_date" validate:"required"`
	OrderIDs  []int64         `json:"order_ids,omitempty" validate:"dive,gt=0"`
}

// Total returns the gross invoice amount, deriving it from the net amount
// and VAT rate when the backend omitted it.
func (inv Invoice) Total() decimal.Decimal {
	if !inv.AmountTotal.IsZero() {
		return inv.AmountTotal
	}
	if inv.AmountNet.IsZero() {
		return decimal.Zero
	}
	vat := inv.VATRate.Div(decimal.NewFromInt(100))
	return inv.AmountNet.Mul(decimal.NewFromInt(1).Add(vat)).Round(2)
}

// LastPaymentDate returns the latest payment date on the invoice, or the
// zero time when no payment exists.
func (inv Invoice) LastPaymentDate() time.Time {
	var last time.Time
	for _, p := range inv.Payments {
		if p.PaidOn.After(last) {
			last = p.PaidOn
		}
	}
	return last
}
