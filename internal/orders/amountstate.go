package orders

import (
	"sync"

	"github.com/shopspring/decimal"
)

// AmountState names the lifecycle states of an invoice amount field.
type AmountState int

const (
	// StateUninitialized means no order selection has happened yet.
	StateUninitialized AmountState = iota
	// StateLoading means a derived amount is being fetched for the current
	// selection.
	StateLoading
	// StateReadyDerived means the field shows an automatically derived
	// amount.
	StateReadyDerived
	// StateReadyManual means the user typed the amount; automatic
	// recalculation must not overwrite it.
	StateReadyManual
)

// AmountField is the amount input of an invoice form, modelled as an
// explicit state machine instead of ad hoc booleans. Two guards protect
// the displayed value: a manual edit pins it until the order selection
// changes, and an async derived result is applied only when it still
// belongs to the current selection.
type AmountField struct {
	mu       sync.Mutex
	state    AmountState
	revision uint64
	amount   decimal.Decimal
}

// NewAmountField starts in the uninitialized state with a zero amount.
func NewAmountField() *AmountField {
	return &AmountField{amount: decimal.Zero}
}

// SelectOrders records a new order selection: the manual pin is cleared,
// the field moves to loading, and the returned revision token identifies
// the derivation that is now allowed to commit.
func (f *AmountField) SelectOrders() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revision++
	f.state = StateLoading
	return f.revision
}

// MarkManual pins a user-typed amount. Derived results stop applying until
// the next SelectOrders.
func (f *AmountField) MarkManual(amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateReadyManual
	f.amount = amount
}

// CommitDerived applies an async derivation result. It reports false and
// leaves the field untouched when the token is stale or the user edited
// the amount in the meantime.
func (f *AmountField) CommitDerived(token uint64, amount decimal.Decimal) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != f.revision {
		return false
	}
	if f.state == StateReadyManual {
		return false
	}
	f.state = StateReadyDerived
	f.amount = amount
	return true
}

// Amount returns the displayed amount and the current state.
func (f *AmountField) Amount() (decimal.Decimal, AmountState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.amount, f.state
}
