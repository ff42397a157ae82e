// Package cart implements the in-memory line-item store used by a
// billing or estimate session. A Cart is owned by exactly one session
// and passed explicitly; it is not a process-wide singleton and is not
// safe for concurrent use.
package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/terrapos/terrapos/internal/pricing"
)

// ErrMaxItems is returned by the estimate cart when a new distinct line
// would exceed the item cap.
var ErrMaxItems = errors.New("maximum 8 items allowed")

// EstimateMaxItems caps the distinct lines an estimate cart may hold.
const EstimateMaxItems = 8

// ProductKind tags a product reference as catalog-backed or ad hoc.
type ProductKind string

const (
	KindCatalog ProductKind = "catalog"
	KindAdHoc   ProductKind = "adhoc"
)

// ProductRef is the product snapshot embedded in a line item. Ad-hoc
// products are created inline during billing, carry a synthetic id and
// are never matched against inventory stock.
type ProductRef struct {
	Kind      ProductKind `json:"kind"`
	ID        string      `json:"id"`
	CatalogID int64       `json:"catalog_id,omitempty"`
	Name      string      `json:"name"`
	Category  string      `json:"category,omitempty"`
}

// NewCatalogRef builds a reference to a catalog product.
func NewCatalogRef(catalogID int64, name, category string) ProductRef {
	return ProductRef{
		Kind:      KindCatalog,
		ID:        fmt.Sprintf("%d", catalogID),
		CatalogID: catalogID,
		Name:      name,
		Category:  category,
	}
}

// NewAdHocRef builds a reference for a product entered directly during
// billing. The synthetic id keeps the line addressable in the cart.
func NewAdHocRef(name, category string) ProductRef {
	return ProductRef{
		Kind:     KindAdHoc,
		ID:       fmt.Sprintf("temp_%d", time.Now().UnixNano()),
		Name:     name,
		Category: category,
	}
}

// TracksStock reports whether stock movements apply to this product.
func (p ProductRef) TracksStock() bool {
	return p.Kind == KindCatalog
}

// Line is one cart entry. OriginalPrice is the catalog price at
// add-time; CurrentPrice may be negotiated up or down without touching
// OriginalPrice so the discount or premium stays computable.
type Line struct {
	Product       ProductRef           `json:"product"`
	Quantity      int                  `json:"quantity"`
	OriginalPrice float64              `json:"original_price"`
	CurrentPrice  float64              `json:"current_price"`
	BusinessType  pricing.BusinessType `json:"business_type"`
}

// Cart is an ordered collection of lines, unique by (product id,
// business type).
type Cart struct {
	lines    []Line
	maxItems int
}

// New returns an uncapped billing cart.
func New() *Cart {
	return &Cart{}
}

// NewEstimate returns a cart capped at EstimateMaxItems distinct lines.
func NewEstimate() *Cart {
	return &Cart{maxItems: EstimateMaxItems}
}

// Add merges into an existing line with the same (product id, business
// type) by incrementing its quantity, or appends a new line. The
// estimate variant rejects a new distinct line beyond the cap without
// mutating state.
func (c *Cart) Add(product ProductRef, quantity int, originalPrice, currentPrice float64, bt pricing.BusinessType) error {
	if quantity <= 0 {
		return errors.New("cart: quantity must be positive")
	}
	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID && c.lines[i].BusinessType == bt {
			c.lines[i].Quantity += quantity
			return nil
		}
	}
	if c.maxItems > 0 && len(c.lines) >= c.maxItems {
		return ErrMaxItems
	}
	c.lines = append(c.lines, Line{
		Product:       product,
		Quantity:      quantity,
		OriginalPrice: originalPrice,
		CurrentPrice:  currentPrice,
		BusinessType:  bt,
	})
	return nil
}

// Remove deletes the line whose product id matches, regardless of
// business type. Only one match is expected per id in practice.
func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// SetQuantity overwrites a line's quantity in place. No-op when the
// quantity is not positive or the line is absent.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		return
	}
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// SetPrice overwrites a line's negotiated price. OriginalPrice is never
// touched. No-op when the price is not positive or the line is absent.
func (c *Cart) SetPrice(productID string, newPrice float64) {
	if newPrice <= 0 {
		return
	}
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].CurrentPrice = newPrice
			return
		}
	}
}

// Clear empties the collection.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Totals recomputes cart totals for display. Never cached: mutations
// are immediately visible on the next call.
func (c *Cart) Totals(bt pricing.BusinessType) pricing.Totals {
	lines := make([]pricing.Line, len(c.lines))
	for i, l := range c.lines {
		lines[i] = pricing.Line{
			OriginalPrice: l.OriginalPrice,
			CurrentPrice:  l.CurrentPrice,
			Quantity:      l.Quantity,
		}
	}
	return pricing.Calculate(lines, bt)
}
