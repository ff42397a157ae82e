package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type product struct {
	price     float64
	wholesale float64
}

func (p product) RetailPrice() float64        { return p.price }
func (p product) WholesaleTierPrice() float64 { return p.wholesale }

func TestUnitPrice(t *testing.T) {
	p := product{price: 100, wholesale: 80}
	require.Equal(t, 100.0, UnitPrice(p, Retail))
	require.Equal(t, 80.0, UnitPrice(p, Wholesale))

	noTier := product{price: 100}
	require.Equal(t, 100.0, UnitPrice(noTier, Wholesale))
}

func TestCalculateRetail(t *testing.T) {
	lines := []Line{{OriginalPrice: 100, CurrentPrice: 100, Quantity: 3}}
	totals := Calculate(lines, Retail)
	require.Equal(t, 300.0, totals.Subtotal)
	require.Equal(t, 0.0, totals.TotalDiscount)
	require.Equal(t, 0.0, totals.WholesaleDiscount)
	require.Equal(t, 300.0, totals.FinalTotal)
	require.Equal(t, 1, totals.ItemCount)
	require.Equal(t, 3, totals.TotalQuantity)
}

func TestCalculateWholesaleBelowThreshold(t *testing.T) {
	lines := []Line{{OriginalPrice: 100, CurrentPrice: 100, Quantity: 3}}
	totals := Calculate(lines, Wholesale)
	require.Equal(t, 0.0, totals.WholesaleDiscount)
	require.Equal(t, 300.0, totals.FinalTotal)
}

func TestCalculateWholesaleAboveThreshold(t *testing.T) {
	lines := []Line{{OriginalPrice: 2000, CurrentPrice: 2000, Quantity: 10}}
	totals := Calculate(lines, Wholesale)
	require.Equal(t, 20000.0, totals.Subtotal)
	require.Equal(t, 1000.0, totals.WholesaleDiscount)
	require.Equal(t, 19000.0, totals.FinalTotal)
}

func TestCalculateThresholdIsExclusive(t *testing.T) {
	lines := []Line{{OriginalPrice: 10000, CurrentPrice: 10000, Quantity: 1}}
	totals := Calculate(lines, Wholesale)
	require.Equal(t, 0.0, totals.WholesaleDiscount)
	require.Equal(t, 10000.0, totals.FinalTotal)
}

func TestCalculateNegotiatedDiscount(t *testing.T) {
	lines := []Line{
		{OriginalPrice: 500, CurrentPrice: 450, Quantity: 2},
		{OriginalPrice: 200, CurrentPrice: 200, Quantity: 1},
	}
	totals := Calculate(lines, Retail)
	require.Equal(t, 1200.0, totals.Subtotal)
	require.Equal(t, 100.0, totals.TotalDiscount)
	require.InDelta(t, 8.3333, totals.DiscountPercentage, 0.001)
	require.Equal(t, 1100.0, totals.FinalTotal)
}

func TestCalculatePremiumIsSigned(t *testing.T) {
	lines := []Line{{OriginalPrice: 100, CurrentPrice: 120, Quantity: 1}}
	totals := Calculate(lines, Retail)
	require.Equal(t, -20.0, totals.TotalDiscount)
	require.Equal(t, 120.0, totals.FinalTotal)
}

func TestCalculateEmptyCart(t *testing.T) {
	totals := Calculate(nil, Retail)
	require.Equal(t, 0.0, totals.Subtotal)
	require.Equal(t, 0.0, totals.DiscountPercentage)
	require.Equal(t, 0, totals.ItemCount)
}

func TestCalculateCoercesNaN(t *testing.T) {
	lines := []Line{
		{OriginalPrice: math.NaN(), CurrentPrice: math.Inf(1), Quantity: 2},
		{OriginalPrice: 50, CurrentPrice: 50, Quantity: 1},
	}
	totals := Calculate(lines, Retail)
	require.False(t, math.IsNaN(totals.Subtotal))
	require.Equal(t, 50.0, totals.Subtotal)
	require.Equal(t, 50.0, totals.FinalTotal)
}

func TestLineDiscountPercent(t *testing.T) {
	require.Equal(t, 10.0, LineDiscountPercent(100, 90))
	require.Equal(t, 0.0, LineDiscountPercent(0, 90))
	require.Equal(t, -20.0, LineDiscountPercent(100, 120))
}
