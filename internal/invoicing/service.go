package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvalidKind     = errors.New("invoice kind must be sales or purchase")
	ErrInvalidInput    = errors.New("invalid payment input")
	// ErrNonPositiveAmount rejects zero and negative payment amounts before
	// anything reaches the backend.
	ErrNonPositiveAmount = errors.New("payment amount must be positive")
)

// PaymentRequest is the payload written to the backend when recording a
// payment.
type PaymentRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	PaidOn           time.Time       `json:"payment_date"`
	Method           PaymentMethod   `json:"payment_method"`
	Notes            string          `json:"notes"`
	OffsetInvoiceIDs []int64         `json:"offset_invoice_ids,omitempty"`
}

// BackendPort is the external REST collaborator that owns all persistence.
// Every mutation returns the server's updated invoice snapshot, which is
// accepted as the new source of truth.
type BackendPort interface {
	FetchInvoice(ctx context.Context, kind InvoiceKind, id int64) (*Invoice, error)
	CreateInvoice(ctx context.Context, kind InvoiceKind, draft InvoiceDraft) (*Invoice, error)
	UpdateInvoice(ctx context.Context, kind InvoiceKind, id int64, draft InvoiceDraft) (*Invoice, error)
	// ListPartnerInvoices lists open invoices of the given kind; partnerID
	// zero means no partner filter.
	ListPartnerInvoices(ctx context.Context, kind InvoiceKind, partnerID int64) ([]Invoice, error)
	AddPayment(ctx context.Context, kind InvoiceKind, invoiceID int64, req PaymentRequest) (*Invoice, error)
	DeletePayment(ctx context.Context, kind InvoiceKind, invoiceID, paymentID int64) (*Invoice, error)
	MarkPaid(ctx context.Context, kind InvoiceKind, invoiceID int64) (*Invoice, error)
	MarkUnpaid(ctx context.Context, kind InvoiceKind, invoiceID int64) (*Invoice, error)
}

// Service handles invoice reconciliation business logic.
type Service struct {
	logger    *slog.Logger
	backend   BackendPort
	snapshots SnapshotStore
	notifier  *Notifier
	validate  *validator.Validate
	now       func() time.Time
}

// NewService builds a Service instance. snapshots may be nil to disable
// caching; notifier may be nil when nothing observes changes.
func NewService(logger *slog.Logger, backend BackendPort, snapshots SnapshotStore, notifier *Notifier) *Service {
	return &Service{
		logger:    logger,
		backend:   backend,
		snapshots: snapshots,
		notifier:  notifier,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// InvoiceOverview bundles a snapshot with its derived ledger and status.
type InvoiceOverview struct {
	Invoice        Invoice         `json:"invoice"`
	Ledger         Ledger          `json:"ledger"`
	Overpaid       bool            `json:"overpaid"`
	Overpayment    decimal.Decimal `json:"overpayment"`
	Classification Classification  `json:"classification"`
}

// GetInvoice returns an invoice snapshot, serving from the snapshot cache
// when possible.
func (s *Service) GetInvoice(ctx context.Context, kind InvoiceKind, id int64) (*Invoice, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if id <= 0 {
		return nil, ErrInvoiceNotFound
	}
	if s.snapshots != nil {
		if inv, ok := s.snapshots.Get(ctx, kind, id); ok {
			return inv, nil
		}
	}
	inv, err := s.backend.FetchInvoice(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvoiceNotFound
	}
	if s.snapshots != nil {
		s.snapshots.Set(ctx, inv)
	}
	return inv, nil
}

// Overview fetches an invoice and derives its ledger and classification.
func (s *Service) Overview(ctx context.Context, kind InvoiceKind, id int64) (*InvoiceOverview, error) {
	inv, err := s.GetInvoice(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	ledger := BuildLedger(inv.Total(), inv.Payments)
	return &InvoiceOverview{
		Invoice:        *inv,
		Ledger:         ledger,
		Overpaid:       ledger.Overpaid(),
		Overpayment:    ledger.Overpayment(),
		Classification: ClassifyInvoice(*inv, s.now()),
	}, nil
}

// CreateInvoice validates a draft and creates the invoice through the
// backend.
func (s *Service) CreateInvoice(ctx context.Context, kind InvoiceKind, draft InvoiceDraft) (*Invoice, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}
	inv, err := s.backend.CreateInvoice(ctx, kind, draft)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, inv, ReasonCreated)
	return inv, nil
}

// UpdateInvoice validates a draft and replaces the invoice's editable
// fields through the backend.
func (s *Service) UpdateInvoice(ctx context.Context, kind InvoiceKind, id int64, draft InvoiceDraft) (*Invoice, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if id <= 0 {
		return nil, ErrInvoiceNotFound
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}
	inv, err := s.backend.UpdateInvoice(ctx, kind, id, draft)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, inv, ReasonUpdated)
	return inv, nil
}

func (s *Service) validateDraft(draft InvoiceDraft) error {
	if err := s.validate.Struct(draft); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !draft.AmountNet.IsPositive() {
		return ErrNonPositiveAmount
	}
	if draft.VATRate.IsNegative() {
		return fmt.Errorf("%w: vat_rate must not be negative", ErrInvalidInput)
	}
	return nil
}

// AddPaymentInput carries a new payment to record against an invoice.
type AddPaymentInput struct {
	Kind             InvoiceKind     `validate:"required,oneof=sales purchase"`
	InvoiceID        int64           `validate:"required,gt=0"`
	Amount           decimal.Decimal `validate:"-"`
	PaidOn           time.Time       `validate:"-"`
	Method           PaymentMethod   `validate:"required,oneof=transfer cash card netting"`
	Notes            string          `validate:"max=2000"`
	OffsetInvoiceIDs []int64         `validate:"dive,gt=0"`
}

// AddPayment validates and records a payment, returning the backend's
// updated invoice snapshot. Netting payments are checked against the
// offerable counter-party invoices before any write is issued.
func (s *Service) AddPayment(ctx context.Context, input AddPaymentInput) (*Invoice, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !input.Amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if input.PaidOn.IsZero() {
		input.PaidOn = s.now()
	}

	if input.Method == MethodNetting {
		if err := s.checkOffset(ctx, input); err != nil {
			return nil, err
		}
	} else if len(input.OffsetInvoiceIDs) > 0 {
		input.OffsetInvoiceIDs = nil
	}

	inv, err := s.backend.AddPayment(ctx, input.Kind, input.InvoiceID, PaymentRequest{
		Amount:           input.Amount,
		PaidOn:           input.PaidOn,
		Method:           input.Method,
		Notes:            input.Notes,
		OffsetInvoiceIDs: input.OffsetInvoiceIDs,
	})
	if err != nil {
		return nil, err
	}
	s.commit(ctx, inv, ReasonPaymentAdded)
	return inv, nil
}

// DeletePayment removes a payment and returns the updated snapshot.
func (s *Service) DeletePayment(ctx context.Context, kind InvoiceKind, invoiceID, paymentID int64) (*Invoice, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if invoiceID <= 0 || paymentID <= 0 {
		return nil, ErrInvoiceNotFound
	}
	inv, err := s.backend.DeletePayment(ctx, kind, invoiceID, paymentID)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, inv, ReasonPaymentDeleted)
	return inv, nil
}

// MarkPaid settles the full remaining balance through the backend
// convenience endpoint.
func (s *Service) MarkPaid(ctx context.Context, kind InvoiceKind, invoiceID int64) (*Invoice, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	inv, err := s.backend.MarkPaid(ctx, kind, invoiceID)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, inv, ReasonMarkedPaid)
	return inv, nil
}

// MarkUnpaid reverts a mark-as-paid through the backend convenience
// endpoint.
func (s *Service) MarkUnpaid(ctx context.Context, kind InvoiceKind, invoiceID int64) (*Invoice, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	inv, err := s.backend.MarkUnpaid(ctx, kind, invoiceID)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, inv, ReasonMarkedUnpaid)
	return inv, nil
}

// OffsetCandidatesFor lists the counter-party invoices offerable for
// netting against the given invoice.
func (s *Service) OffsetCandidatesFor(ctx context.Context, kind InvoiceKind, invoiceID int64) ([]Invoice, error) {
	inv, err := s.GetInvoice(ctx, kind, invoiceID)
	if err != nil {
		return nil, err
	}
	counter, err := s.backend.ListPartnerInvoices(ctx, kind.Opposite(), inv.PartnerID)
	if err != nil {
		return nil, err
	}
	return OffsetCandidates(*inv, counter), nil
}

// Aging classifies a partner's open invoices into overdue buckets.
func (s *Service) Aging(ctx context.Context, kind InvoiceKind, partnerID int64) (AgingBuckets, error) {
	if !kind.Valid() {
		return AgingBuckets{}, ErrInvalidKind
	}
	invoices, err := s.backend.ListPartnerInvoices(ctx, kind, partnerID)
	if err != nil {
		return AgingBuckets{}, err
	}
	return ComputeAging(invoices, s.now()), nil
}

func (s *Service) checkOffset(ctx context.Context, input AddPaymentInput) error {
	if len(input.OffsetInvoiceIDs) == 0 {
		return ErrOffsetRequired
	}
	inv, err := s.GetInvoice(ctx, input.Kind, input.InvoiceID)
	if err != nil {
		return err
	}
	// Listed without a partner filter so a cross-partner pick is reported
	// as such instead of as an unknown invoice.
	counter, err := s.backend.ListPartnerInvoices(ctx, input.Kind.Opposite(), 0)
	if err != nil {
		return err
	}
	return ValidateOffset(*inv, counter, input.OffsetInvoiceIDs)
}

// commit accepts a mutation's returned snapshot as the new truth: re-cache
// it and notify observers.
func (s *Service) commit(ctx context.Context, inv *Invoice, reason ChangeReason) {
	if inv == nil {
		return
	}
	if s.snapshots != nil {
		s.snapshots.Set(ctx, inv)
	}
	if s.notifier != nil {
		s.notifier.Publish(InvoiceChange{Kind: inv.Kind, InvoiceID: inv.ID, Reason: reason})
	}
	if s.logger != nil {
		s.logger.Info("invoice changed",
			slog.String("kind", string(inv.Kind)),
			slog.Int64("id", inv.ID),
			slog.String("reason", string(reason)))
	}
}

// IsValidationError reports whether err was rejected before any backend
// call, meaning the operation is retryable with corrected input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrOffsetRequired) ||
		errors.Is(err, ErrCrossPartnerOffset) ||
		errors.Is(err, ErrOffsetUnknownInvoice)
}
