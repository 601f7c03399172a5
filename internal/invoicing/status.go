package invoicing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// statusEpsilon absorbs rounding noise when comparing paid against total.
var statusEpsilon = decimal.New(5, -3) // 0.005

// dueSoonWindow is how many days before the due date an open invoice is
// flagged as due soon.
const dueSoonWindow = 3

// ClassifyInput carries everything the status classifier looks at.
type ClassifyInput struct {
	Total decimal.Decimal
	Paid  decimal.Decimal
	// DueDate is the raw backend string; it may be malformed.
	DueDate         string
	LastPaymentDate time.Time
	// Today overrides the reference date; zero means time.Now().
	Today time.Time
}

// Classification is the derived payment state of an invoice. Status is the
// categorical value that gets stored; Display adds the due-date-relative
// overdue modifier used for filtering and coloring.
type Classification struct {
	Status      PaymentStatus `json:"status"`
	Display     PaymentStatus `json:"display_status"`
	OverdueDays int           `json:"overdue_days"`
	PaidLate    bool          `json:"paid_late"`
	DueSoon     bool          `json:"due_soon"`
}

// Classify derives the payment status of an invoice from its ledger totals
// and due date. It is pure and idempotent; malformed or missing dates
// degrade to "not overdue" rather than failing.
func Classify(in ClassifyInput) Classification {
	today := in.Today
	if today.IsZero() {
		today = time.Now()
	}
	today = truncateToDay(today)

	var status PaymentStatus
	switch {
	case in.Total.Sub(in.Paid).LessThanOrEqual(statusEpsilon):
		status = StatusPaid
	case in.Paid.GreaterThan(statusEpsilon):
		status = StatusPartiallyPaid
	default:
		status = StatusUnpaid
	}

	out := Classification{Status: status, Display: status}

	due, ok := ParseDueDate(in.DueDate)
	if !ok {
		return out
	}
	due = truncateToDay(due)

	if due.Before(today) {
		out.OverdueDays = int(today.Sub(due).Hours() / 24)
	}

	if status == StatusPaid {
		if !in.LastPaymentDate.IsZero() && truncateToDay(in.LastPaymentDate).After(due) {
			out.PaidLate = true
		}
		return out
	}

	if out.OverdueDays > 0 {
		out.Display = StatusOverdue
		return out
	}
	if !due.Before(today) && !due.After(today.AddDate(0, 0, dueSoonWindow)) {
		out.DueSoon = true
	}
	return out
}

// ClassifyInvoice runs the classifier over a fetched invoice snapshot.
func ClassifyInvoice(inv Invoice, today time.Time) Classification {
	ledger := BuildLedger(inv.Total(), inv.Payments)
	return Classify(ClassifyInput{
		Total:           ledger.Total,
		Paid:            ledger.Paid,
		DueDate:         inv.DueDate,
		LastPaymentDate: inv.LastPaymentDate(),
		Today:           today,
	})
}

// ParseDueDate parses a backend due-date string. Day components with extra
// digits (a recurring data-quality issue, e.g. "2025-12-130") are repaired
// by taking the first two digits and clamping the result into a valid
// day-of-month. Anything still unparseable reports ok=false.
func ParseDueDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}

	parts := strings.SplitN(raw, "-", 3)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	dayDigits := strings.TrimLeft(parts[2], "0")
	if dayDigits == "" {
		dayDigits = "0"
	}
	if len(dayDigits) > 2 {
		dayDigits = dayDigits[:2]
	}
	day, err := strconv.Atoi(dayDigits)
	if err != nil {
		return time.Time{}, false
	}
	if day < 1 {
		day = 1
	}
	if day > 31 {
		day = 31
	}
	if max := daysInMonth(year, time.Month(month)); day > max {
		day = max
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%02d-%02d", year, month, day))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
