// Package catalog manages the product catalog and branch master data.
package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Product is a catalog item with retail and optional wholesale price
// tiers and a branch-agnostic stock quantity.
type Product struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Category       string    `json:"category" db:"category"`
	Price          float64   `json:"price" db:"price"`
	WholesalePrice float64   `json:"wholesale_price" db:"wholesale_price"`
	Stock          int       `json:"stock" db:"stock"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// RetailPrice implements pricing.PricedProduct.
func (p Product) RetailPrice() float64 { return p.Price }

// WholesaleTierPrice implements pricing.PricedProduct.
func (p Product) WholesaleTierPrice() float64 { return p.WholesalePrice }

// Branch is a physical or temporary sales location. Orders and
// estimates snapshot a denormalized copy of its info at creation time.
type Branch struct {
	ID        int64     `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address,omitempty" db:"address"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BranchInfo is the snapshot embedded into orders and estimates.
type BranchInfo struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Snapshot returns the denormalized copy stored on documents.
func (b Branch) Snapshot() BranchInfo {
	return BranchInfo{Name: b.Name, Address: b.Address, Phone: b.Phone}
}

type CreateProductRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Category       string  `json:"category" validate:"required,max=100"`
	Price          float64 `json:"price" validate:"gte=0"`
	WholesalePrice float64 `json:"wholesale_price" validate:"gte=0"`
	Stock          int     `json:"stock" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Category       *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Price          *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	WholesalePrice *float64 `json:"wholesale_price,omitempty" validate:"omitempty,gte=0"`
	Stock          *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	IsActive       *bool    `json:"is_active,omitempty"`
}

type CreateBranchRequest struct {
	Code    string `json:"code" validate:"required,max=20"`
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address,omitempty" validate:"omitempty,max=300"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Category string
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}
