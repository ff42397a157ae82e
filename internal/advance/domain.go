// Package advance keeps the append-only ledger of advance payments and
// derives analytics over it.
package advance

import (
	"errors"
	"time"

	"github.com/terrapos/terrapos/internal/pricing"
)

var (
	ErrNotFound  = errors.New("ledger record not found")
	ErrDuplicate = errors.New("ledger record already exists")
)

// Ledger entry kinds. A seed entry records the initial advance taken at
// order creation; payment entries record each later installment.
const (
	KindSeed    = "seed"
	KindPayment = "payment"
)

// PaymentRecord is one immutable ledger entry. Balance fields capture
// the order's remaining amount around this entry so the ledger replays
// without consulting the order.
type PaymentRecord struct {
	ID            int64                `json:"id" db:"id"`
	Kind          string               `json:"kind" db:"kind"`
	OrderID       int64                `json:"order_id" db:"order_id"`
	OrderNumber   string               `json:"order_number" db:"order_number"`
	CustomerID    int64                `json:"customer_id" db:"customer_id"`
	Branch        string               `json:"branch" db:"branch"`
	BusinessType  pricing.BusinessType `json:"business_type" db:"business_type"`
	Amount        float64              `json:"amount" db:"amount"`
	BalanceBefore float64              `json:"balance_before" db:"balance_before"`
	BalanceAfter  float64              `json:"balance_after" db:"balance_after"`
	Method        string               `json:"method,omitempty" db:"method"`
	BankDetails   string               `json:"bank_details,omitempty" db:"bank_details"`
	Notes         string               `json:"notes,omitempty" db:"notes"`
	IsCompleting  bool                 `json:"is_completing" db:"is_completing"`
	DueDate       *time.Time           `json:"due_date,omitempty" db:"due_date"`
	Refunded      bool                 `json:"refunded" db:"refunded"`
	ClientRef     string               `json:"client_ref" db:"client_ref"`
	CreatedAt     time.Time            `json:"created_at" db:"created_at"`
}

// CompletionRecord marks an order's advance as fully settled. At most
// one exists per order; the store enforces this with a unique index.
type CompletionRecord struct {
	ID           int64     `json:"id" db:"id"`
	OrderID      int64     `json:"order_id" db:"order_id"`
	OrderNumber  string    `json:"order_number" db:"order_number"`
	CustomerID   int64     `json:"customer_id" db:"customer_id"`
	TotalPaid    float64   `json:"total_paid" db:"total_paid"`
	FinalPayment float64   `json:"final_payment" db:"final_payment"`
	Method       string    `json:"method,omitempty" db:"method"`
	CompletedAt  time.Time `json:"completed_at" db:"completed_at"`
}

// Due date offsets from order creation before an advance counts as
// overdue.
const (
	RetailDueAfter    = 7 * 24 * time.Hour
	WholesaleDueAfter = 30 * 24 * time.Hour
)

// DueDateFor derives the payment due date from the order's creation
// time and business type.
func DueDateFor(createdAt time.Time, bt pricing.BusinessType) time.Time {
	if bt == pricing.Wholesale {
		return createdAt.Add(WholesaleDueAfter)
	}
	return createdAt.Add(RetailDueAfter)
}
