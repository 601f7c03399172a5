// Package backend is the HTTP client for the back-office REST backend that
// owns all invoice, payment and order persistence.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk/internal/invoicing"
	"github.com/freightdesk/freightdesk/internal/orders"
)

// Client wraps interactions with the back-office API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks if the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	return nil
}

// FetchInvoice returns a full invoice snapshot including payment history.
func (c *Client) FetchInvoice(ctx context.Context, kind invoicing.InvoiceKind, id int64) (*invoicing.Invoice, error) {
	var dto invoiceDTO
	if err := c.getJSON(ctx, invoicePath(kind, id), &dto); err != nil {
		return nil, err
	}
	inv := dto.toDomain(kind)
	return &inv, nil
}

// ListPartnerInvoices lists open invoices of a kind; partnerID zero means
// no partner filter.
func (c *Client) ListPartnerInvoices(ctx context.Context, kind invoicing.InvoiceKind, partnerID int64) ([]invoicing.Invoice, error) {
	path := fmt.Sprintf("/api/%s-invoices", kind)
	query := url.Values{"open": []string{"1"}}
	if partnerID > 0 {
		query.Set("partner_id", strconv.FormatInt(partnerID, 10))
	}
	var dtos []invoiceDTO
	if err := c.getJSON(ctx, path+"?"+query.Encode(), &dtos); err != nil {
		return nil, err
	}
	out := make([]invoicing.Invoice, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.toDomain(kind))
	}
	return out, nil
}

// CreateInvoice creates an invoice and returns the backend's snapshot.
func (c *Client) CreateInvoice(ctx context.Context, kind invoicing.InvoiceKind, draft invoicing.InvoiceDraft) (*invoicing.Invoice, error) {
	path := fmt.Sprintf("/api/%s-invoices", kind)
	return c.mutateInvoice(ctx, http.MethodPost, path, draftDTO(draft), kind)
}

// UpdateInvoice replaces an invoice's editable fields and returns the
// updated snapshot.
func (c *Client) UpdateInvoice(ctx context.Context, kind invoicing.InvoiceKind, id int64, draft invoicing.InvoiceDraft) (*invoicing.Invoice, error) {
	return c.mutateInvoice(ctx, http.MethodPut, invoicePath(kind, id), draftDTO(draft), kind)
}

// AddPayment records a payment and returns the updated invoice snapshot.
func (c *Client) AddPayment(ctx context.Context, kind invoicing.InvoiceKind, invoiceID int64, req invoicing.PaymentRequest) (*invoicing.Invoice, error) {
	body := paymentRequestDTO{
		Amount:           req.Amount.String(),
		PaymentDate:      req.PaidOn.Format("2006-01-02"),
		PaymentMethod:    string(req.Method),
		Notes:            req.Notes,
		OffsetInvoiceIDs: req.OffsetInvoiceIDs,
	}
	return c.mutateInvoice(ctx, http.MethodPost, invoicePath(kind, invoiceID)+"/payments", body, kind)
}

// DeletePayment removes a payment and returns the updated invoice snapshot.
func (c *Client) DeletePayment(ctx context.Context, kind invoicing.InvoiceKind, invoiceID, paymentID int64) (*invoicing.Invoice, error) {
	path := fmt.Sprintf("%s/payments/%d", invoicePath(kind, invoiceID), paymentID)
	return c.mutateInvoice(ctx, http.MethodDelete, path, nil, kind)
}

// MarkPaid asks the backend to create a payment covering the full
// remaining balance.
func (c *Client) MarkPaid(ctx context.Context, kind invoicing.InvoiceKind, invoiceID int64) (*invoicing.Invoice, error) {
	return c.mutateInvoice(ctx, http.MethodPost, invoicePath(kind, invoiceID)+"/mark-paid", nil, kind)
}

// MarkUnpaid asks the backend to remove the balancing payment again.
func (c *Client) MarkUnpaid(ctx context.Context, kind invoicing.InvoiceKind, invoiceID int64) (*invoicing.Invoice, error) {
	return c.mutateInvoice(ctx, http.MethodPost, invoicePath(kind, invoiceID)+"/mark-unpaid", nil, kind)
}

// FetchOrder returns an order with carrier assignments and other costs.
func (c *Client) FetchOrder(ctx context.Context, id int64) (*orders.Order, error) {
	var dto orderDTO
	if err := c.getJSON(ctx, fmt.Sprintf("/api/orders/%d", id), &dto); err != nil {
		return nil, err
	}
	order := dto.toDomain()
	return &order, nil
}

func invoicePath(kind invoicing.InvoiceKind, id int64) string {
	return fmt.Sprintf("/api/%s-invoices/%d", kind, id)
}

func (c *Client) mutateInvoice(ctx context.Context, method, path string, body any, kind invoicing.InvoiceKind) (*invoicing.Invoice, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}
	var dto invoiceDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode invoice snapshot: %w", err)
	}
	inv := dto.toDomain(kind)
	return &inv, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.httpClient.Do(req)
}

// decodeError turns a backend error response into a tagged failure with
// the human-readable message when the payload carries one.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	message := ""
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Message != "":
			message = payload.Message
		case payload.Detail != "":
			message = payload.Detail
		}
	}
	return &invoicing.UpstreamError{Status: resp.StatusCode, Message: message}
}
