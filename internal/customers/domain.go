// Package customers manages customer records and purchase aggregates.
package customers

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/terrapos/terrapos/internal/pricing"
)

var ErrNotFound = errors.New("customer not found")

// Customer is a buyer with lifetime purchase aggregates that are
// updated best-effort after each order.
type Customer struct {
	ID               int64                `json:"id" db:"id"`
	Name             string               `json:"name" db:"name"`
	Phone            string               `json:"phone,omitempty" db:"phone"`
	Address          string               `json:"address,omitempty" db:"address"`
	TotalSpent       float64              `json:"total_spent" db:"total_spent"`
	OrderCount       int                  `json:"order_count" db:"order_count"`
	LastBranch       string               `json:"last_branch,omitempty" db:"last_branch"`
	LastBusinessType pricing.BusinessType `json:"last_business_type,omitempty" db:"last_business_type"`
	LastOrderAt      *time.Time           `json:"last_order_at,omitempty" db:"last_order_at"`
	CreatedAt        time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at" db:"updated_at"`
}

// Placeholder substitutes a missing customer on enriched reads so a
// dangling reference never fails the whole document.
func Placeholder(id int64) Customer {
	return Customer{ID: id, Name: "Customer Not Found"}
}

// indianMobile matches a 10-digit mobile number with an optional
// +91/91 country prefix.
var indianMobile = regexp.MustCompile(`^(?:\+?91)?[6-9]\d{9}$`)

// ValidPhone reports whether the number can receive WhatsApp/SMS
// notifications.
func ValidPhone(phone string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
	return indianMobile.MatchString(cleaned)
}

// Purchase summarizes one completed order for aggregate updates.
type Purchase struct {
	Amount       float64
	Branch       string
	BusinessType pricing.BusinessType
	At           time.Time
}

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address string `json:"address,omitempty" validate:"omitempty,max=300"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=300"`
}
