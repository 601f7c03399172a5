package invoicing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/freightdesk/freightdesk/internal/money"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler manages invoice reconciliation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{kind}", h.createInvoice)
	r.Get("/{kind}/aging", h.aging)
	r.Get("/{kind}/{id}", h.overview)
	r.Put("/{kind}/{id}", h.updateInvoice)
	r.Get("/{kind}/{id}/payments", h.listPayments)
	r.Post("/{kind}/{id}/payments", h.addPayment)
	r.Delete("/{kind}/{id}/payments/{paymentID}", h.deletePayment)
	r.Post("/{kind}/{id}/mark-paid", h.markPaid)
	r.Post("/{kind}/{id}/mark-unpaid", h.markUnpaid)
	r.Get("/{kind}/{id}/offset-candidates", h.offsetCandidates)
}

var displayPrinter = message.NewPrinter(language.English)

func formatAmount(d decimal.Decimal) string {
	f, _ := d.Float64()
	return displayPrinter.Sprintf("%.2f", f)
}

type overviewResponse struct {
	*InvoiceOverview
	DisplayRemaining string `json:"display_remaining"`
	DisplayPaid      string `json:"display_paid"`
}

// overview returns an invoice snapshot with its derived ledger and status.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	ov, err := h.service.Overview(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, "invoice overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, overviewResponse{
		InvoiceOverview:  ov,
		DisplayRemaining: formatAmount(ov.Ledger.Remaining),
		DisplayPaid:      formatAmount(ov.Ledger.Paid),
	})
}

type invoiceDraftRequest struct {
	Number    string  `json:"number"`
	PartnerID int64   `json:"partner_id"`
	AmountNet any     `json:"amount_net"`
	VATRate   any     `json:"vat_rate"`
	IssueDate string  `json:"issue_date"`
	DueDate   string  `json:"due_date"`
	OrderIDs  []int64 `json:"order_ids"`
}

func (req invoiceDraftRequest) toDraft() InvoiceDraft {
	return InvoiceDraft{
		Number:    req.Number,
		PartnerID: req.PartnerID,
		AmountNet: money.Normalize(req.AmountNet),
		VATRate:   money.Normalize(req.VATRate),
		IssueDate: req.IssueDate,
		DueDate:   req.DueDate,
		OrderIDs:  req.OrderIDs,
	}
}

// createInvoice creates an invoice from a draft.
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	kind := InvoiceKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrInvalidKind.Error())
		return
	}
	var req invoiceDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), kind, req.toDraft())
	if err != nil {
		h.respondError(w, r, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// updateInvoice replaces an invoice's editable fields.
func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	var req invoiceDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	inv, err := h.service.UpdateInvoice(r.Context(), kind, id, req.toDraft())
	if err != nil {
		h.respondError(w, r, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

type paymentsResponse struct {
	Payments         []Payment `json:"payments"`
	Ledger           Ledger    `json:"ledger"`
	Overpaid         bool      `json:"overpaid"`
	DisplayRemaining string    `json:"display_remaining"`
}

// listPayments returns the payment history with ledger totals.
func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, "list payments", err)
		return
	}
	ledger := BuildLedger(inv.Total(), inv.Payments)
	httpx.JSON(w, http.StatusOK, paymentsResponse{
		Payments:         inv.Payments,
		Ledger:           ledger,
		Overpaid:         ledger.Overpaid(),
		DisplayRemaining: formatAmount(ledger.Remaining),
	})
}

type addPaymentRequest struct {
	Amount           any     `json:"amount"`
	PaymentDate      string  `json:"payment_date"`
	Method           string  `json:"payment_method"`
	Notes            string  `json:"notes"`
	OffsetInvoiceIDs []int64 `json:"offset_invoice_ids"`
}

// addPayment records a payment against an invoice.
func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	var req addPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	var paidOn time.Time
	if req.PaymentDate != "" {
		var err error
		paidOn, err = time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
			return
		}
	}

	inv, err := h.service.AddPayment(r.Context(), AddPaymentInput{
		Kind:             kind,
		InvoiceID:        id,
		Amount:           money.Normalize(req.Amount),
		PaidOn:           paidOn,
		Method:           PaymentMethod(req.Method),
		Notes:            req.Notes,
		OffsetInvoiceIDs: req.OffsetInvoiceIDs,
	})
	if err != nil {
		h.respondError(w, r, "add payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// deletePayment removes a payment and returns the updated snapshot.
func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	paymentID, err := strconv.ParseInt(chi.URLParam(r, "paymentID"), 10, 64)
	if err != nil || paymentID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payment ID")
		return
	}
	inv, err := h.service.DeletePayment(r.Context(), kind, id, paymentID)
	if err != nil {
		h.respondError(w, r, "delete payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// markPaid settles the remaining balance in one step.
func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	inv, err := h.service.MarkPaid(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, "mark paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// markUnpaid reverts a mark-as-paid.
func (h *Handler) markUnpaid(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	inv, err := h.service.MarkUnpaid(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, "mark unpaid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// offsetCandidates lists counter-party invoices offerable for netting.
func (h *Handler) offsetCandidates(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.invoiceParams(w, r)
	if !ok {
		return
	}
	candidates, err := h.service.OffsetCandidatesFor(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, "offset candidates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// aging returns overdue buckets for a partner's open invoices.
func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	kind := InvoiceKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrInvalidKind.Error())
		return
	}
	var partnerID int64
	if raw := r.URL.Query().Get("partner_id"); raw != "" {
		partnerID, _ = strconv.ParseInt(raw, 10, 64)
	}
	buckets, err := h.service.Aging(r.Context(), kind, partnerID)
	if err != nil {
		h.respondError(w, r, "aging", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"buckets":       buckets,
		"total":         buckets.Total(),
		"display_total": formatAmount(buckets.Total()),
	})
}

func (h *Handler) invoiceParams(w http.ResponseWriter, r *http.Request) (InvoiceKind, int64, bool) {
	kind := InvoiceKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrInvalidKind.Error())
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice ID")
		return "", 0, false
	}
	return kind, id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var upstream *UpstreamError
	switch {
	case IsValidationError(err):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvoiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &upstream):
		if upstream.NotFound() {
			httpx.Problem(w, http.StatusNotFound, "Not Found", upstream.Error())
			return
		}
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusBadGateway, "Backend Error", upstream.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.RespondError(w, err)
	}
}
