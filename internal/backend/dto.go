package backend

import (
	"time"

	"github.com/freightdesk/freightdesk/internal/invoicing"
	"github.com/freightdesk/freightdesk/internal/money"
	"github.com/freightdesk/freightdesk/internal/orders"
)

// Wire types. Amount fields are decoded as any because the backend emits
// a mix of numbers and numeric strings; everything goes through
// money.Normalize exactly once, here.

type invoiceDTO struct {
	ID          int64        `json:"id"`
	Number      string       `json:"number"`
	PartnerID   int64        `json:"partner_id"`
	AmountNet   any          `json:"amount_net"`
	VATRate     any          `json:"vat_rate"`
	AmountTotal any          `json:"amount_total"`
	IssueDate   string       `json:"issue_date"`
	DueDate     string       `json:"due_date"`
	PaymentDate string       `json:"payment_date"`
	Status      string       `json:"payment_status"`
	OrderIDs    []int64      `json:"order_ids"`
	Payments    []paymentDTO `json:"payments"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

type paymentDTO struct {
	ID               int64   `json:"id"`
	Amount           any     `json:"amount"`
	PaymentDate      string  `json:"payment_date"`
	PaymentMethod    string  `json:"payment_method"`
	Notes            string  `json:"notes"`
	OffsetInvoiceIDs []int64 `json:"offset_invoice_ids"`
	CreatedAt        string  `json:"created_at"`
}

type paymentRequestDTO struct {
	Amount           string  `json:"amount"`
	PaymentDate      string  `json:"payment_date"`
	PaymentMethod    string  `json:"payment_method"`
	Notes            string  `json:"notes"`
	OffsetInvoiceIDs []int64 `json:"offset_invoice_ids,omitempty"`
}

type invoiceDraftDTO struct {
	Number    string  `json:"number"`
	PartnerID int64   `json:"partner_id"`
	AmountNet string  `json:"amount_net"`
	VATRate   string  `json:"vat_rate"`
	IssueDate string  `json:"issue_date"`
	DueDate   string  `json:"due_date"`
	OrderIDs  []int64 `json:"order_ids,omitempty"`
}

func draftDTO(d invoicing.InvoiceDraft) invoiceDraftDTO {
	return invoiceDraftDTO{
		Number:    d.Number,
		PartnerID: d.PartnerID,
		AmountNet: d.AmountNet.String(),
		VATRate:   d.VATRate.String(),
		IssueDate: d.IssueDate,
		DueDate:   d.DueDate,
		OrderIDs:  d.OrderIDs,
	}
}

type orderDTO struct {
	ID       int64         `json:"id"`
	Number   string        `json:"number"`
	Carriers []carrierDTO  `json:"carriers"`
	Costs    []costLineDTO `json:"other_costs"`
}

type carrierDTO struct {
	PartnerID int64 `json:"partner_id"`
	PriceNet  any   `json:"price_net"`
}

type costLineDTO struct {
	Description string `json:"description"`
	Amount      any    `json:"amount"`
}

func (d invoiceDTO) toDomain(kind invoicing.InvoiceKind) invoicing.Invoice {
	payments := make([]invoicing.Payment, 0, len(d.Payments))
	for _, p := range d.Payments {
		payments = append(payments, p.toDomain())
	}
	return invoicing.Invoice{
		ID:          d.ID,
		Kind:        kind,
		Number:      d.Number,
		PartnerID:   d.PartnerID,
		AmountNet:   money.Normalize(d.AmountNet),
		VATRate:     money.Normalize(d.VATRate),
		AmountTotal: money.Normalize(d.AmountTotal),
		IssueDate:   d.IssueDate,
		DueDate:     d.DueDate,
		PaymentDate: d.PaymentDate,
		Status:      invoicing.PaymentStatus(d.Status),
		OrderIDs:    d.OrderIDs,
		Payments:    payments,
		CreatedAt:   parseTimestamp(d.CreatedAt),
		UpdatedAt:   parseTimestamp(d.UpdatedAt),
	}
}

func (p paymentDTO) toDomain() invoicing.Payment {
	offsetIDs := p.OffsetInvoiceIDs
	notes := p.Notes
	if len(offsetIDs) == 0 {
		// Older backends encode offset ids inside the notes text.
		offsetIDs = parseLegacyOffsetIDs(p.Notes)
		if len(offsetIDs) > 0 {
			notes = stripLegacyOffsetTag(p.Notes)
		}
	}
	return invoicing.Payment{
		ID:               p.ID,
		Amount:           money.Normalize(p.Amount),
		PaidOn:           parseDay(p.PaymentDate),
		Method:           invoicing.PaymentMethod(p.PaymentMethod),
		Notes:            notes,
		OffsetInvoiceIDs: offsetIDs,
		CreatedAt:        parseTimestamp(p.CreatedAt),
	}
}

func (d orderDTO) toDomain() orders.Order {
	carriers := make([]orders.CarrierAssignment, 0, len(d.Carriers))
	for _, c := range d.Carriers {
		carriers = append(carriers, orders.CarrierAssignment{
			PartnerID: c.PartnerID,
			PriceNet:  money.Normalize(c.PriceNet),
		})
	}
	costs := make([]orders.OtherCost, 0, len(d.Costs))
	for _, c := range d.Costs {
		costs = append(costs, orders.OtherCost{
			Description: c.Description,
			Amount:      money.Normalize(c.Amount),
		})
	}
	return orders.Order{
		ID:                 d.ID,
		Number:             d.Number,
		CarrierAssignments: carriers,
		OtherCosts:         costs,
	}
}

func parseDay(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return parseDay(raw)
}
