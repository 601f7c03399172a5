package invoicing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	invoices        map[string]*Invoice
	partnerInvoices map[InvoiceKind][]Invoice

	fetchCalls      int
	addPaymentCalls int
	lastPaymentReq  PaymentRequest
	nextPaymentID   int64
	nextInvoiceID   int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		invoices:        make(map[string]*Invoice),
		partnerInvoices: make(map[InvoiceKind][]Invoice),
	}
}

func key(kind InvoiceKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (b *fakeBackend) put(inv Invoice) {
	b.invoices[key(inv.Kind, inv.ID)] = &inv
}

func (b *fakeBackend) FetchInvoice(ctx context.Context, kind InvoiceKind, id int64) (*Invoice, error) {
	b.fetchCalls++
	inv, ok := b.invoices[key(kind, id)]
	if !ok {
		return nil, &UpstreamError{Status: 404, Message: "invoice not found"}
	}
	snapshot := *inv
	return &snapshot, nil
}

func (b *fakeBackend) CreateInvoice(ctx context.Context, kind InvoiceKind, draft InvoiceDraft) (*Invoice, error) {
	b.nextInvoiceID++
	inv := Invoice{
		ID:        b.nextInvoiceID,
		Kind:      kind,
		Number:    draft.Number,
		PartnerID: draft.PartnerID,
		AmountNet: draft.AmountNet,
		VATRate:   draft.VATRate,
		IssueDate: draft.IssueDate,
		DueDate:   draft.DueDate,
		OrderIDs:  draft.OrderIDs,
		Status:    StatusUnpaid,
	}
	b.put(inv)
	return &inv, nil
}

func (b *fakeBackend) UpdateInvoice(ctx context.Context, kind InvoiceKind, id int64, draft InvoiceDraft) (*Invoice, error) {
	inv, ok := b.invoices[key(kind, id)]
	if !ok {
		return nil, &UpstreamError{Status: 404, Message: "invoice not found"}
	}
	inv.Number = draft.Number
	inv.PartnerID = draft.PartnerID
	inv.AmountNet = draft.AmountNet
	inv.VATRate = draft.VATRate
	inv.IssueDate = draft.IssueDate
	inv.DueDate = draft.DueDate
	inv.OrderIDs = draft.OrderIDs
	snapshot := *inv
	return &snapshot, nil
}

func (b *fakeBackend) ListPartnerInvoices(ctx context.Context, kind InvoiceKind, partnerID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range b.partnerInvoices[kind] {
		if partnerID != 0 && inv.PartnerID != partnerID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (b *fakeBackend) AddPayment(ctx context.Context, kind InvoiceKind, invoiceID int64, req PaymentRequest) (*Invoice, error) {
	b.addPaymentCalls++
	b.lastPaymentReq = req
	inv, ok := b.invoices[key(kind, invoiceID)]
	if !ok {
		return nil, &UpstreamError{Status: 404, Message: "invoice not found"}
	}
	b.nextPaymentID++
	inv.Payments = append(inv.Payments, Payment{
		ID:               b.nextPaymentID,
		Amount:           req.Amount,
		PaidOn:           req.PaidOn,
		Method:           req.Method,
		Notes:            req.Notes,
		OffsetInvoiceIDs: req.OffsetInvoiceIDs,
		CreatedAt:        time.Now(),
	})
	snapshot := *inv
	return &snapshot, nil
}

func (b *fakeBackend) DeletePayment(ctx context.Context, kind InvoiceKind, invoiceID, paymentID int64) (*Invoice, error) {
	inv, ok := b.invoices[key(kind, invoiceID)]
	if !ok {
		return nil, &UpstreamError{Status: 404, Message: "invoice not found"}
	}
	kept := inv.Payments[:0]
	for _, p := range inv.Payments {
		if p.ID != paymentID {
			kept = append(kept, p)
		}
	}
	inv.Payments = kept
	snapshot := *inv
	return &snapshot, nil
}

func (b *fakeBackend) MarkPaid(ctx context.Context, kind InvoiceKind, invoiceID int64) (*Invoice, error) {
	inv, ok := b.invoices[key(kind, invoiceID)]
	if !ok {
		return nil, &UpstreamError{Status: 404, Message: "invoice not found"}
	}
	ledger := BuildLedger(inv.Total(), inv.Payments)
	b.nextPaymentID++
	inv.Payments = append(inv.Payments, Payment{ID: b.nextPaymentID, Amount: ledger.Remaining, Method: MethodTransfer})
	inv.Status = StatusPaid
	snapshot := *inv
	return &snapshot, nil
}

func (b *fakeBackend) MarkUnpaid(ctx context.Context, kind InvoiceKind, invoiceID int64) (*Invoice, error) {
	inv, ok := b.invoices[key(kind, invoiceID)]
	if !ok {
		return nil, &UpstreamError{Status: 404, Message: "invoice not found"}
	}
	inv.Payments = nil
	inv.Status = StatusUnpaid
	snapshot := *inv
	return &snapshot, nil
}

type memorySnapshots struct {
	entries map[string]*Invoice
	sets    int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{entries: make(map[string]*Invoice)}
}

func (m *memorySnapshots) Get(ctx context.Context, kind InvoiceKind, id int64) (*Invoice, bool) {
	inv, ok := m.entries[key(kind, id)]
	return inv, ok
}

func (m *memorySnapshots) Set(ctx context.Context, inv *Invoice) {
	m.sets++
	m.entries[key(inv.Kind, inv.ID)] = inv
}

func (m *memorySnapshots) Delete(ctx context.Context, kind InvoiceKind, id int64) {
	delete(m.entries, key(kind, id))
}

func testService(backend *fakeBackend, snapshots SnapshotStore, notifier *Notifier) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), backend, snapshots, notifier)
}

func TestAddPaymentRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	svc := testService(backend, nil, nil)

	_, err := svc.AddPayment(ctx, AddPaymentInput{
		Kind:      KindSales,
		InvoiceID: 1,
		Amount:    dec("0"),
		Method:    MethodTransfer,
	})
	require.ErrorIs(t, err, ErrNonPositiveAmount)
	require.True(t, IsValidationError(err))
	require.Zero(t, backend.addPaymentCalls, "rejected before any backend call")
}

func TestAddPaymentRejectsUnknownMethod(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	svc := testService(backend, nil, nil)

	_, err := svc.AddPayment(ctx, AddPaymentInput{
		Kind:      KindSales,
		InvoiceID: 1,
		Amount:    dec("100"),
		Method:    PaymentMethod("barter"),
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Zero(t, backend.addPaymentCalls)
}

func TestAddPaymentRecordsAndNotifies(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	snapshots := newMemorySnapshots()
	notifier := &Notifier{}
	var changes []InvoiceChange
	notifier.Subscribe(func(c InvoiceChange) { changes = append(changes, c) })
	svc := testService(backend, snapshots, notifier)

	inv, err := svc.AddPayment(ctx, AddPaymentInput{
		Kind:      KindSales,
		InvoiceID: 12,
		Amount:    dec("400.00"),
		Method:    MethodTransfer,
		Notes:     "first instalment",
	})
	require.NoError(t, err)
	require.Len(t, inv.Payments, 1)
	require.Equal(t, "400", backend.lastPaymentReq.Amount.String())

	require.Len(t, changes, 1)
	require.Equal(t, ReasonPaymentAdded, changes[0].Reason)
	require.Equal(t, int64(12), changes[0].InvoiceID)

	cached, ok := snapshots.Get(ctx, KindSales, 12)
	require.True(t, ok, "mutation snapshot re-cached")
	require.Len(t, cached.Payments, 1)
}

func TestAddPaymentNettingRejectsCrossPartner(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	backend.partnerInvoices[KindPurchase] = []Invoice{
		purchaseInvoice(30, 7, "400", ""),
		purchaseInvoice(31, 9, "400", ""),
	}
	svc := testService(backend, nil, nil)

	_, err := svc.AddPayment(ctx, AddPaymentInput{
		Kind:             KindSales,
		InvoiceID:        12,
		Amount:           dec("400"),
		Method:           MethodNetting,
		OffsetInvoiceIDs: []int64{31},
	})
	require.ErrorIs(t, err, ErrCrossPartnerOffset)
	require.True(t, IsValidationError(err))
	require.Zero(t, backend.addPaymentCalls, "rejected before the write")
}

func TestAddPaymentNettingRoundTripsOffsetIDs(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	backend.partnerInvoices[KindPurchase] = []Invoice{purchaseInvoice(30, 7, "400", "")}
	svc := testService(backend, nil, nil)

	inv, err := svc.AddPayment(ctx, AddPaymentInput{
		Kind:             KindSales,
		InvoiceID:        12,
		Amount:           dec("400"),
		Method:           MethodNetting,
		OffsetInvoiceIDs: []int64{30},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{30}, backend.lastPaymentReq.OffsetInvoiceIDs)
	require.Equal(t, []int64{30}, inv.Payments[0].OffsetInvoiceIDs, "association survives the round trip")
}

func TestAddPaymentNettingRequiresOffsets(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	svc := testService(backend, nil, nil)

	_, err := svc.AddPayment(ctx, AddPaymentInput{
		Kind:      KindSales,
		InvoiceID: 12,
		Amount:    dec("400"),
		Method:    MethodNetting,
	})
	require.ErrorIs(t, err, ErrOffsetRequired)
}

func TestAddPaymentDropsOffsetsForCashMethods(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	svc := testService(backend, nil, nil)

	_, err := svc.AddPayment(ctx, AddPaymentInput{
		Kind:             KindSales,
		InvoiceID:        12,
		Amount:           dec("100"),
		Method:           MethodCash,
		OffsetInvoiceIDs: []int64{30},
	})
	require.NoError(t, err)
	require.Empty(t, backend.lastPaymentReq.OffsetInvoiceIDs)
}

func TestGetInvoiceServesFromCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	snapshots := newMemorySnapshots()
	cached := salesInvoice(12, 7, "1000", "")
	snapshots.Set(ctx, &cached)
	svc := testService(backend, snapshots, nil)

	inv, err := svc.GetInvoice(ctx, KindSales, 12)
	require.NoError(t, err)
	require.Equal(t, int64(12), inv.ID)
	require.Zero(t, backend.fetchCalls, "cache hit skips the backend")
}

func TestGetInvoiceFillsCacheOnMiss(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	snapshots := newMemorySnapshots()
	svc := testService(backend, snapshots, nil)

	_, err := svc.GetInvoice(ctx, KindSales, 12)
	require.NoError(t, err)
	require.Equal(t, 1, backend.fetchCalls)

	_, err = svc.GetInvoice(ctx, KindSales, 12)
	require.NoError(t, err)
	require.Equal(t, 1, backend.fetchCalls, "second read served from cache")
}

func TestGetInvoiceNotFound(t *testing.T) {
	ctx := context.Background()
	svc := testService(newFakeBackend(), nil, nil)

	_, err := svc.GetInvoice(ctx, KindSales, 99)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.True(t, upstream.NotFound())
}

func TestOverviewDerivesLedgerAndStatus(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	inv := salesInvoice(12, 7, "1000.00", "")
	inv.Payments = []Payment{{ID: 1, Amount: dec("400.00")}, {ID: 2, Amount: dec("200.00")}}
	inv.DueDate = "2099-01-01"
	backend.put(inv)
	svc := testService(backend, nil, nil)

	ov, err := svc.Overview(ctx, KindSales, 12)
	require.NoError(t, err)
	require.Equal(t, "600", ov.Ledger.Paid.String())
	require.Equal(t, "400", ov.Ledger.Remaining.String())
	require.False(t, ov.Overpaid)
	require.Equal(t, StatusPartiallyPaid, ov.Classification.Status)
}

func TestDeletePaymentUpdatesSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	inv := salesInvoice(12, 7, "1000", "")
	inv.Payments = []Payment{{ID: 4, Amount: dec("400")}}
	backend.put(inv)
	notifier := &Notifier{}
	var reasons []ChangeReason
	notifier.Subscribe(func(c InvoiceChange) { reasons = append(reasons, c.Reason) })
	svc := testService(backend, nil, notifier)

	updated, err := svc.DeletePayment(ctx, KindSales, 12, 4)
	require.NoError(t, err)
	require.Empty(t, updated.Payments)
	require.Equal(t, []ChangeReason{ReasonPaymentDeleted}, reasons)
}

func TestMarkPaidSettlesRemaining(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	inv := salesInvoice(12, 7, "1000", "")
	inv.Payments = []Payment{{ID: 1, Amount: dec("600")}}
	backend.put(inv)
	svc := testService(backend, nil, nil)

	updated, err := svc.MarkPaid(ctx, KindSales, 12)
	require.NoError(t, err)
	ledger := BuildLedger(updated.Total(), updated.Payments)
	require.True(t, ledger.Remaining.IsZero())
	require.Equal(t, StatusPaid, updated.Status)
}

func TestMarkUnpaidClearsPayments(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	inv := salesInvoice(12, 7, "1000", "1000")
	backend.put(inv)
	svc := testService(backend, nil, nil)

	updated, err := svc.MarkUnpaid(ctx, KindSales, 12)
	require.NoError(t, err)
	require.Empty(t, updated.Payments)
	require.Equal(t, StatusUnpaid, updated.Status)
}

func TestCreateInvoiceValidatesDraft(t *testing.T) {
	ctx := context.Background()
	svc := testService(newFakeBackend(), nil, nil)

	_, err := svc.CreateInvoice(ctx, KindSales, InvoiceDraft{
		PartnerID: 7,
		AmountNet: dec("1000"),
		IssueDate: "2026-02-01",
		DueDate:   "2026-03-01",
	})
	require.ErrorIs(t, err, ErrInvalidInput, "missing invoice number")

	_, err = svc.CreateInvoice(ctx, KindSales, InvoiceDraft{
		Number:    "SF-2026-0001",
		PartnerID: 7,
		AmountNet: dec("0"),
		IssueDate: "2026-02-01",
		DueDate:   "2026-03-01",
	})
	require.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestCreateInvoiceCommitsSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	snapshots := newMemorySnapshots()
	notifier := &Notifier{}
	var reasons []ChangeReason
	notifier.Subscribe(func(c InvoiceChange) { reasons = append(reasons, c.Reason) })
	svc := testService(backend, snapshots, notifier)

	inv, err := svc.CreateInvoice(ctx, KindSales, InvoiceDraft{
		Number:    "SF-2026-0001",
		PartnerID: 7,
		AmountNet: dec("1000"),
		VATRate:   dec("21"),
		IssueDate: "2026-02-01",
		DueDate:   "2026-03-01",
	})
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, inv.Status)
	require.Equal(t, []ChangeReason{ReasonCreated}, reasons)

	cached, ok := snapshots.Get(ctx, KindSales, inv.ID)
	require.True(t, ok)
	require.Equal(t, "SF-2026-0001", cached.Number)
}

func TestUpdateInvoiceReplacesEditableFields(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	svc := testService(backend, nil, nil)

	updated, err := svc.UpdateInvoice(ctx, KindSales, 12, InvoiceDraft{
		Number:    "SF-2026-0012R",
		PartnerID: 7,
		AmountNet: dec("1200"),
		VATRate:   dec("21"),
		IssueDate: "2026-02-01",
		DueDate:   "2026-03-15",
	})
	require.NoError(t, err)
	require.Equal(t, "SF-2026-0012R", updated.Number)
	require.Equal(t, "1200", updated.AmountNet.String())
	require.Equal(t, "2026-03-15", updated.DueDate)
}

func TestOffsetCandidatesForFiltersByPartner(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put(salesInvoice(12, 7, "1000", ""))
	backend.partnerInvoices[KindPurchase] = []Invoice{
		purchaseInvoice(30, 7, "400", ""),
		purchaseInvoice(31, 9, "400", ""),
	}
	svc := testService(backend, nil, nil)

	got, err := svc.OffsetCandidatesFor(ctx, KindSales, 12)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(30), got[0].ID)
}

func TestAgingBucketsOpenBalances(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	overdue20 := salesInvoice(40, 7, "200", "")
	overdue20.DueDate = time.Now().AddDate(0, 0, -20).Format("2006-01-02")
	current := salesInvoice(41, 7, "100", "")
	current.DueDate = time.Now().AddDate(0, 0, 5).Format("2006-01-02")
	backend.partnerInvoices[KindSales] = []Invoice{overdue20, current}
	svc := testService(backend, nil, nil)

	buckets, err := svc.Aging(ctx, KindSales, 7)
	require.NoError(t, err)
	require.Equal(t, "100", buckets.Current.String())
	require.Equal(t, "200", buckets.Bucket30.String())
	require.Equal(t, "300", buckets.Total().String())
}
