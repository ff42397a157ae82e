// Package public serves the unauthenticated views behind shared links:
// the short bill link printed on receipts and the estimate share link.
// Lookups are deduplicated with singleflight because one forwarded link
// tends to arrive as a burst of identical requests.
package public

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/estimates"
	"github.com/terrapos/terrapos/internal/invoice"
	"github.com/terrapos/terrapos/internal/orders"
	"github.com/terrapos/terrapos/internal/platform/httpx"
)

// OrderSource resolves orders by their short bill token.
type OrderSource interface {
	GetByBillToken(ctx context.Context, token string) (orders.Order, error)
}

// InvoiceSource resolves the latest issued document for an order.
type InvoiceSource interface {
	LatestByOrder(ctx context.Context, orderID int64) (invoice.Invoice, error)
}

// EstimateSource resolves estimates by share token.
type EstimateSource interface {
	GetByShareToken(ctx context.Context, token string) (estimates.View, error)
}

// CustomerSource resolves the customer shown on the bill page.
type CustomerSource interface {
	GetOrPlaceholder(ctx context.Context, id int64) (customers.Customer, error)
}

// BillView is the public bill payload. It intentionally omits internal
// ids beyond the order itself.
type BillView struct {
	Order    orders.Order       `json:"order"`
	Customer customers.Customer `json:"customer"`
	Invoice  *invoice.Invoice   `json:"invoice,omitempty"`
	PDFReady bool               `json:"pdf_ready"`
}

// Handler serves the public routes.
type Handler struct {
	orders    OrderSource
	invoices  InvoiceSource
	estimates EstimateSource
	customers CustomerSource
	logger    *slog.Logger
	group     singleflight.Group
}

// NewHandler wires the public handler.
func NewHandler(orderSource OrderSource, invoiceSource InvoiceSource, estimateSource EstimateSource, customerSource CustomerSource, logger *slog.Logger) *Handler {
	return &Handler{
		orders:    orderSource,
		invoices:  invoiceSource,
		estimates: estimateSource,
		customers: customerSource,
		logger:    logger,
	}
}

// MountRoutes attaches the public routes. These sit at the server root,
// outside the API tree, because the link shapes are printed on paper.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/i/{token}", h.bill)
	r.Get("/i/{token}/pdf", h.billPDF)
	r.Get("/public/estimate/{shareToken}", h.estimate)
}

// do collapses concurrent identical lookups into one upstream call.
func (h *Handler) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := h.group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (h *Handler) bill(w http.ResponseWriter, r *http.Request) {
	token := normalizeBillToken(chi.URLParam(r, "token"))

	result, err := h.do(r.Context(), "bill:"+token, func(ctx context.Context) (any, error) {
		return h.buildBillView(ctx, token)
	})
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result.(BillView))
}

func (h *Handler) billPDF(w http.ResponseWriter, r *http.Request) {
	token := normalizeBillToken(chi.URLParam(r, "token"))

	result, err := h.do(r.Context(), "billpdf:"+token, func(ctx context.Context) (any, error) {
		order, err := h.orders.GetByBillToken(ctx, token)
		if err != nil {
			return nil, err
		}
		inv, err := h.invoices.LatestByOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return inv, nil
	})
	if err != nil {
		h.respondLookupError(w, err)
		return
	}

	inv := result.(invoice.Invoice)
	if !inv.Rendered || len(inv.PDF) == 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no rendered document for this bill")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+inv.Number+`.pdf"`)
	_, _ = w.Write(inv.PDF)
}

func (h *Handler) estimate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "shareToken")

	result, err := h.do(r.Context(), "est:"+token, func(ctx context.Context) (any, error) {
		return h.estimates.GetByShareToken(ctx, token)
	})
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result.(estimates.View))
}

func (h *Handler) buildBillView(ctx context.Context, token string) (BillView, error) {
	order, err := h.orders.GetByBillToken(ctx, token)
	if err != nil {
		return BillView{}, err
	}

	customer, err := h.customers.GetOrPlaceholder(ctx, order.CustomerID)
	if err != nil {
		h.logger.Warn("public bill customer lookup failed",
			slog.Int64("customer_id", order.CustomerID), slog.Any("error", err))
		customer = customers.Placeholder(order.CustomerID)
	}

	view := BillView{Order: order, Customer: customer}
	inv, err := h.invoices.LatestByOrder(ctx, order.ID)
	switch {
	case err == nil:
		view.Invoice = &inv
		view.PDFReady = inv.Rendered && len(inv.PDF) > 0
		// the payload carries metadata only, bytes ship via /pdf
		view.Invoice.PDF = nil
	case errors.Is(err, invoice.ErrNotFound):
	default:
		h.logger.Warn("public bill invoice lookup failed",
			slog.Int64("order_id", order.ID), slog.Any("error", err))
	}
	return view, nil
}

// respondLookupError hides everything behind a plain 404 so tokens
// cannot be probed for structure.
func (h *Handler) respondLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, estimates.ErrNotFound), errors.Is(err, invoice.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "link not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "")
	default:
		h.logger.Error("public lookup failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// normalizeBillToken uppercases the short token so hand-typed links
// survive lowercase entry. The token alphabet is uppercase only.
func normalizeBillToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}
