package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrapos/terrapos/internal/cart"
	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/orders"
	"github.com/terrapos/terrapos/internal/pricing"
)

func sampleOrder() orders.Order {
	return orders.Order{
		ID:           1,
		OrderNumber:  "MS12345678",
		Branch:       catalog.BranchInfo{Name: "Main Store", Address: "12 Kiln Road", Phone: "9876543210"},
		BusinessType: pricing.Retail,
		Items: []orders.Item{
			{
				Product:      cart.NewCatalogRef(10, "Clay Pot", "pots"),
				Quantity:     3,
				CurrentPrice: 100,
				LineTotal:    300,
			},
		},
		Totals:    pricing.Totals{Subtotal: 300, FinalTotal: 300, ItemCount: 1, TotalQuantity: 3},
		CreatedAt: time.Date(2026, 8, 29, 11, 30, 0, 0, time.UTC),
	}
}

func TestRenderBillInvoice(t *testing.T) {
	o := sampleOrder()
	inv := Invoice{Number: "INV-MS12345678", OrderID: 1, Kind: KindBill, Status: StatusIssued}

	html, err := RenderHTML(inv, o)
	require.NoError(t, err)

	assert.Contains(t, html, "Tax Invoice")
	assert.Contains(t, html, "INV-MS12345678")
	assert.Contains(t, html, "Clay Pot")
	assert.Contains(t, html, "Main Store")
	assert.Contains(t, html, "₹300.00")
	assert.NotContains(t, html, "Payment Completion")
}

func TestRenderCompletionInvoice(t *testing.T) {
	o := sampleOrder()
	o.AdvanceAmount = 300
	inv := Invoice{
		Number:    "INV-MS12345678-C",
		OrderID:   1,
		Kind:      KindCompletion,
		Status:    StatusIssued,
		RefNumber: "INV-MS12345678",
	}

	html, err := RenderHTML(inv, o)
	require.NoError(t, err)

	assert.Contains(t, html, "Payment Completion Invoice")
	assert.Contains(t, html, "Original invoice: INV-MS12345678")
}

func TestRenderAdvanceBanner(t *testing.T) {
	o := sampleOrder()
	o.IsAdvanceBilling = true
	o.AdvanceAmount = 100
	o.RemainingAmount = 200
	inv := Invoice{Number: "INV-MS12345678", Kind: KindBill}

	html, err := RenderHTML(inv, o)
	require.NoError(t, err)

	assert.Contains(t, html, "Advance received")
	assert.Contains(t, html, "₹100.00")
	assert.Contains(t, html, "₹200.00")
}
