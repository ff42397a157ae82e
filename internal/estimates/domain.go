// Package estimates manages price quotes that may later convert into
// orders.
package estimates

import (
	"errors"
	"time"

	"github.com/terrapos/terrapos/internal/cart"
	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/pricing"
)

var (
	ErrNotFound  = errors.New("estimate not found")
	ErrConverted = errors.New("estimate already converted")
	ErrExpired   = errors.New("estimate has expired")
)

// Estimate statuses. UpdateStatus overwrites directly; only conversion
// guards against converted and expired estimates.
const (
	StatusActive    = "active"
	StatusConverted = "converted"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// ExpiryWindow is how long an estimate stays valid after creation.
// Expiry is always derived from CreatedAt at read time, never stored.
const ExpiryWindow = 90 * 24 * time.Hour

// Item is one quoted line. Prices are snapshotted at creation.
type Item struct {
	ID              int64           `json:"id" db:"id"`
	Product         cart.ProductRef `json:"product"`
	Quantity        int             `json:"quantity" db:"quantity"`
	OriginalPrice   float64         `json:"original_price" db:"original_price"`
	CurrentPrice    float64         `json:"current_price" db:"current_price"`
	DiscountPercent float64         `json:"discount_percent" db:"discount_percent"`
	LineTotal       float64         `json:"line_total" db:"line_total"`
}

// Estimate is a stored quote.
type Estimate struct {
	ID             int64                `json:"id" db:"id"`
	EstimateNumber string               `json:"estimate_number" db:"estimate_number"`
	CustomerID     int64                `json:"customer_id" db:"customer_id"`
	BranchID       int64                `json:"branch_id" db:"branch_id"`
	Branch         catalog.BranchInfo   `json:"branch"`
	BusinessType   pricing.BusinessType `json:"business_type" db:"business_type"`
	Items          []Item               `json:"items"`
	Totals         pricing.Totals       `json:"totals"`
	Status         string               `json:"status" db:"status"`
	ShareToken     string               `json:"share_token" db:"share_token"`
	Notes          string               `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" db:"updated_at"`
}

// ExpiryDate derives when this estimate lapses.
func (e Estimate) ExpiryDate() time.Time {
	return e.CreatedAt.Add(ExpiryWindow)
}

// ExpiredAt reports whether the estimate has lapsed at the given time.
func (e Estimate) ExpiredAt(now time.Time) bool {
	return now.After(e.ExpiryDate())
}

// View is the enriched read shape. Expiry fields are computed from now
// on every read.
type View struct {
	Estimate
	Customer     customers.Customer `json:"customer"`
	ShareLink    string             `json:"share_link,omitempty"`
	ExpiryDate   time.Time          `json:"expiry_date"`
	IsExpired    bool               `json:"is_expired"`
	DaysToExpiry int                `json:"days_to_expiry"`
}

// NewView derives the read shape at the given instant.
func NewView(e Estimate, c customers.Customer, now time.Time) View {
	expiry := e.ExpiryDate()
	days := int(expiry.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return View{
		Estimate:     e,
		Customer:     c,
		ExpiryDate:   expiry,
		IsExpired:    e.ExpiredAt(now),
		DaysToExpiry: days,
	}
}

type CreateEstimateItem struct {
	ProductID     *int64   `json:"product_id,omitempty"`
	Name          string   `json:"name,omitempty" validate:"omitempty,max=200"`
	Category      string   `json:"category,omitempty" validate:"omitempty,max=100"`
	Quantity      int      `json:"quantity" validate:"required,gt=0"`
	OriginalPrice float64  `json:"original_price,omitempty" validate:"omitempty,gte=0"`
	CurrentPrice  *float64 `json:"current_price,omitempty" validate:"omitempty,gt=0"`
}

type CreateEstimateRequest struct {
	CustomerID   int64                `json:"customer_id" validate:"required,gt=0"`
	BranchID     int64                `json:"branch_id" validate:"required,gt=0"`
	BusinessType pricing.BusinessType `json:"business_type" validate:"required"`
	Items        []CreateEstimateItem `json:"items" validate:"required,min=1,dive"`
	Notes        string               `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active converted cancelled expired"`
}

// ListFilters narrows estimate listings.
type ListFilters struct {
	Status       string
	BranchID     int64
	BusinessType pricing.BusinessType
	Limit        int
	Offset       int
}
