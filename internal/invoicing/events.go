package invoicing

import "sync"

// ChangeReason says why an invoice snapshot changed.
type ChangeReason string

const (
	ReasonPaymentAdded   ChangeReason = "payment_added"
	ReasonPaymentDeleted ChangeReason = "payment_deleted"
	ReasonMarkedPaid     ChangeReason = "marked_paid"
	ReasonMarkedUnpaid   ChangeReason = "marked_unpaid"
	ReasonCreated        ChangeReason = "invoice_created"
	ReasonUpdated        ChangeReason = "invoice_updated"
)

// InvoiceChange is delivered to subscribers after every confirmed mutation.
type InvoiceChange struct {
	Kind      InvoiceKind
	InvoiceID int64
	Reason    ChangeReason
}

// Notifier fans invoice-change events out to subscribers. It replaces the
// legacy global window-event broadcast with an explicit observer interface.
type Notifier struct {
	mu   sync.RWMutex
	subs []func(InvoiceChange)
}

// Subscribe registers a handler invoked on every invoice change.
func (n *Notifier) Subscribe(fn func(InvoiceChange)) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	n.subs = append(n.subs, fn)
	n.mu.Unlock()
}

// Publish delivers a change to all subscribers, synchronously and in
// subscription order.
func (n *Notifier) Publish(change InvoiceChange) {
	n.mu.RLock()
	subs := make([]func(InvoiceChange), len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()
	for _, fn := range subs {
		fn(change)
	}
}
