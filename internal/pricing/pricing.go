// Package pricing derives per-item and cart-level totals. All functions
// are pure; callers recompute on every mutation rather than trusting a
// cached result.
package pricing

import "math"

// BusinessType selects the pricing and discount mode for an order or estimate.
type BusinessType string

const (
	Retail    BusinessType = "retail"
	Wholesale BusinessType = "wholesale"
)

// Valid reports whether the business type is one of the known modes.
func (bt BusinessType) Valid() bool {
	return bt == Retail || bt == Wholesale
}

const (
	// WholesaleDiscountRate is applied on top of any manual negotiation.
	WholesaleDiscountRate = 0.05
	// WholesaleDiscountThreshold is the post-negotiation total a wholesale
	// cart must exceed before the wholesale discount applies.
	WholesaleDiscountThreshold = 10000.0
)

// PricedProduct exposes the two catalog price tiers.
type PricedProduct interface {
	RetailPrice() float64
	WholesaleTierPrice() float64
}

// Line is the minimal shape the calculator needs from a line item.
type Line struct {
	OriginalPrice float64
	CurrentPrice  float64
	Quantity      int
}

// Totals aggregates cart-level amounts. TotalDiscount is signed: a
// negative value means a premium was negotiated, not a discount.
type Totals struct {
	Subtotal           float64 `json:"subtotal"`
	TotalDiscount      float64 `json:"total_discount"`
	DiscountPercentage float64 `json:"discount_percentage"`
	WholesaleDiscount  float64 `json:"wholesale_discount"`
	FinalTotal         float64 `json:"final_total"`
	ItemCount          int     `json:"item_count"`
	TotalQuantity      int     `json:"total_quantity"`
}

// UnitPrice returns the catalog price for the given business type. The
// wholesale tier is used only when it is set and nonzero.
func UnitPrice(p PricedProduct, bt BusinessType) float64 {
	if bt == Wholesale && p.WholesaleTierPrice() > 0 {
		return sanitize(p.WholesaleTierPrice())
	}
	return sanitize(p.RetailPrice())
}

// Calculate derives cart totals from the lines and business type.
func Calculate(lines []Line, bt BusinessType) Totals {
	var t Totals
	var currentTotal float64
	for _, l := range lines {
		qty := l.Quantity
		if qty < 0 {
			qty = 0
		}
		t.Subtotal += sanitize(l.OriginalPrice) * float64(qty)
		currentTotal += sanitize(l.CurrentPrice) * float64(qty)
		t.TotalQuantity += qty
	}
	t.ItemCount = len(lines)
	t.TotalDiscount = t.Subtotal - currentTotal
	if t.Subtotal > 0 {
		t.DiscountPercentage = t.TotalDiscount / t.Subtotal * 100
	}
	if bt == Wholesale && currentTotal > WholesaleDiscountThreshold {
		t.WholesaleDiscount = currentTotal * WholesaleDiscountRate
	}
	t.FinalTotal = currentTotal - t.WholesaleDiscount
	return t
}

// LineDiscountPercent returns the per-line discount relative to the
// original price, as a percentage. Zero when the original price is zero.
func LineDiscountPercent(originalPrice, currentPrice float64) float64 {
	original := sanitize(originalPrice)
	if original <= 0 {
		return 0
	}
	return (original - sanitize(currentPrice)) / original * 100
}

// sanitize coerces NaN and infinities to zero so malformed numeric
// input never propagates through aggregation.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
