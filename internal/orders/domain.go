// Package orders implements the order lifecycle: creation with
// authoritative totals, advance payment completion, and cancellation
// with stock reversal.
package orders

import (
	"errors"
	"time"

	"github.com/terrapos/terrapos/internal/cart"
	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/pricing"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrDuplicate        = errors.New("order already exists")
	ErrInvalidAdvance   = errors.New("invalid advance amount")
	ErrNotAdvance       = errors.New("order is not an advance billing order")
	ErrNothingRemaining = errors.New("no remaining amount on this order")
	ErrInvalidAmount    = errors.New("payment amount must be positive")
	ErrExceedsRemaining = errors.New("payment amount exceeds remaining amount")
	ErrAlreadyCancelled = errors.New("order is already cancelled")
)

// Order statuses. An order is completed at creation; cancellation is
// the only other terminal state.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPartial  = "partial"
	PaymentComplete = "complete"
)

// Notification delivery outcomes persisted on the order. The outcome is
// metadata only and never alters business status.
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifySkipped = "skipped"
	NotifyError   = "error"
)

// Item is one sold line with prices snapshotted at creation.
type Item struct {
	ID              int64           `json:"id" db:"id"`
	Product         cart.ProductRef `json:"product"`
	Quantity        int             `json:"quantity" db:"quantity"`
	OriginalPrice   float64         `json:"original_price" db:"original_price"`
	CurrentPrice    float64         `json:"current_price" db:"current_price"`
	DiscountPercent float64         `json:"discount_percent" db:"discount_percent"`
	LineTotal       float64         `json:"line_total" db:"line_total"`
}

// Order is a finalized sale. Totals are recomputed from the items at
// creation; whatever the client sent is ignored.
type Order struct {
	ID                 int64                `json:"id" db:"id"`
	OrderNumber        string               `json:"order_number" db:"order_number"`
	CustomerID         int64                `json:"customer_id" db:"customer_id"`
	BranchID           int64                `json:"branch_id" db:"branch_id"`
	Branch             catalog.BranchInfo   `json:"branch"`
	BusinessType       pricing.BusinessType `json:"business_type" db:"business_type"`
	Items              []Item               `json:"items"`
	Totals             pricing.Totals       `json:"totals"`
	Status             string               `json:"status" db:"status"`
	PaymentStatus      string               `json:"payment_status" db:"payment_status"`
	IsAdvanceBilling   bool                 `json:"is_advance_billing" db:"is_advance_billing"`
	AdvanceAmount      float64              `json:"advance_amount" db:"advance_amount"`
	RemainingAmount    float64              `json:"remaining_amount" db:"remaining_amount"`
	PaymentMethod      string               `json:"payment_method,omitempty" db:"payment_method"`
	BankDetails        string               `json:"bank_details,omitempty" db:"bank_details"`
	Notes              string               `json:"notes,omitempty" db:"notes"`
	BillToken          string               `json:"bill_token" db:"bill_token"`
	ShareToken         string               `json:"share_token" db:"share_token"`
	ShareLink          string               `json:"share_link,omitempty" db:"-"`
	NotificationStatus string               `json:"notification_status,omitempty" db:"notification_status"`
	EstimateID         *int64               `json:"estimate_id,omitempty" db:"estimate_id"`
	CancelReason       string               `json:"cancel_reason,omitempty" db:"cancel_reason"`
	RefundAdvance      bool                 `json:"refund_advance,omitempty" db:"refund_advance"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt          time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" db:"updated_at"`
}

type CreateOrderItem struct {
	ProductID     *int64   `json:"product_id,omitempty"`
	Name          string   `json:"name,omitempty" validate:"omitempty,max=200"`
	Category      string   `json:"category,omitempty" validate:"omitempty,max=100"`
	Quantity      int      `json:"quantity" validate:"required,gt=0"`
	OriginalPrice float64  `json:"original_price,omitempty" validate:"omitempty,gte=0"`
	CurrentPrice  *float64 `json:"current_price,omitempty" validate:"omitempty,gt=0"`
}

type CreateOrderRequest struct {
	CustomerID       int64                `json:"customer_id" validate:"required,gt=0"`
	BranchID         int64                `json:"branch_id" validate:"required,gt=0"`
	BusinessType     pricing.BusinessType `json:"business_type" validate:"required"`
	Items            []CreateOrderItem    `json:"items" validate:"required,min=1,dive"`
	IsAdvanceBilling bool                 `json:"is_advance_billing"`
	AdvanceAmount    float64              `json:"advance_amount,omitempty"`
	PaymentMethod    string               `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	BankDetails      string               `json:"bank_details,omitempty" validate:"omitempty,max=300"`
	Notes            string               `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type CompletePaymentRequest struct {
	Amount      float64 `json:"amount"`
	Method      string  `json:"method,omitempty" validate:"omitempty,max=50"`
	BankDetails string  `json:"bank_details,omitempty" validate:"omitempty,max=300"`
	Notes       string  `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type CancelOrderRequest struct {
	Reason        string `json:"reason,omitempty" validate:"omitempty,max=500"`
	RefundAdvance bool   `json:"refund_advance"`
}

type ConvertEstimateRequest struct {
	IsAdvanceBilling bool    `json:"is_advance_billing"`
	AdvanceAmount    float64 `json:"advance_amount,omitempty"`
	PaymentMethod    string  `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	BankDetails      string  `json:"bank_details,omitempty" validate:"omitempty,max=300"`
}

// ListFilters narrows order listings.
type ListFilters struct {
	BranchID      int64
	BusinessType  pricing.BusinessType
	Status        string
	PaymentStatus string
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}
