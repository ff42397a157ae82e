package public

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/estimates"
	"github.com/terrapos/terrapos/internal/invoice"
	"github.com/terrapos/terrapos/internal/orders"
)

type fakeOrderSource struct {
	byToken map[string]orders.Order
}

func (f *fakeOrderSource) GetByBillToken(ctx context.Context, token string) (orders.Order, error) {
	o, ok := f.byToken[token]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

type fakeInvoiceSource struct {
	byOrder map[int64]invoice.Invoice
}

func (f *fakeInvoiceSource) LatestByOrder(ctx context.Context, orderID int64) (invoice.Invoice, error) {
	inv, ok := f.byOrder[orderID]
	if !ok {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	return inv, nil
}

type fakeEstimateSource struct {
	byToken map[string]estimates.View
}

func (f *fakeEstimateSource) GetByShareToken(ctx context.Context, token string) (estimates.View, error) {
	v, ok := f.byToken[token]
	if !ok {
		return estimates.View{}, estimates.ErrNotFound
	}
	return v, nil
}

type fakeCustomerSource struct {
	byID map[int64]customers.Customer
}

func (f *fakeCustomerSource) GetOrPlaceholder(ctx context.Context, id int64) (customers.Customer, error) {
	c, ok := f.byID[id]
	if !ok {
		return customers.Placeholder(id), nil
	}
	return c, nil
}

func newTestServer() (*httptest.Server, *fakeOrderSource, *fakeInvoiceSource, *fakeEstimateSource) {
	orderSource := &fakeOrderSource{byToken: map[string]orders.Order{
		"AB2C": {ID: 1, OrderNumber: "MS10000001", CustomerID: 7, BillToken: "AB2C"},
	}}
	invoiceSource := &fakeInvoiceSource{byOrder: map[int64]invoice.Invoice{
		1: {ID: 11, Number: "INV-MS10000001", OrderID: 1, Kind: invoice.KindBill, Status: invoice.StatusIssued, Rendered: true, PDF: []byte("%PDF-1.4 fake")},
	}}
	estimateSource := &fakeEstimateSource{byToken: map[string]estimates.View{
		"share-1": {Estimate: estimates.Estimate{ID: 5, EstimateNumber: "EST-1-290826"}},
	}}
	customerSource := &fakeCustomerSource{byID: map[int64]customers.Customer{
		7: {ID: 7, Name: "Asha", Phone: "9876543210"},
	}}

	h := NewHandler(orderSource, invoiceSource, estimateSource, customerSource, slog.Default())
	r := chi.NewRouter()
	h.MountRoutes(r)
	return httptest.NewServer(r), orderSource, invoiceSource, estimateSource
}

func TestPublicBillLookup(t *testing.T) {
	srv, _, _, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/i/AB2C")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestPublicBillTokenCaseInsensitive(t *testing.T) {
	srv, _, _, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/i/ab2c")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPublicBillUnknownTokenIs404(t *testing.T) {
	srv, _, _, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/i/ZZZZ")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicBillPDF(t *testing.T) {
	srv, _, _, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/i/AB2C/pdf")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
}

func TestPublicBillPDFMissingRender(t *testing.T) {
	srv, _, invoiceSource, _ := newTestServer()
	defer srv.Close()
	invoiceSource.byOrder[1] = invoice.Invoice{ID: 11, Number: "INV-MS10000001", OrderID: 1, Rendered: false}

	resp, err := http.Get(srv.URL + "/i/AB2C/pdf")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicEstimateLookup(t *testing.T) {
	srv, _, _, _ := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/public/estimate/share-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	missing, err := http.Get(srv.URL + "/public/estimate/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
