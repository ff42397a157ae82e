package invoice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terrapos/terrapos/internal/orders"
)

// PDFRenderer converts HTML to PDF bytes. Satisfied by report.Client.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Service issues invoice documents. Rendering is best-effort: a failed
// PDF render still produces a stored, un-rendered invoice record.
type Service struct {
	repo   Repository
	pdf    PDFRenderer
	logger *slog.Logger
}

// NewService wires the invoice service. pdf may be nil; invoices are
// then stored without a rendered document.
func NewService(repo Repository, pdf PDFRenderer, logger *slog.Logger) *Service {
	return &Service{repo: repo, pdf: pdf, logger: logger}
}

// IssueBill stores the bill invoice for a freshly created order.
func (s *Service) IssueBill(ctx context.Context, o orders.Order) error {
	inv := Invoice{
		Number:  "INV-" + o.OrderNumber,
		OrderID: o.ID,
		Kind:    KindBill,
		Status:  StatusIssued,
	}
	return s.issue(ctx, inv, o)
}

// IssueCompletion stores the completion invoice referencing the
// original bill.
func (s *Service) IssueCompletion(ctx context.Context, o orders.Order) error {
	inv := Invoice{
		Number:    "INV-" + o.OrderNumber + "-C",
		OrderID:   o.ID,
		Kind:      KindCompletion,
		Status:    StatusIssued,
		RefNumber: "INV-" + o.OrderNumber,
	}
	return s.issue(ctx, inv, o)
}

func (s *Service) issue(ctx context.Context, inv Invoice, o orders.Order) error {
	html, err := RenderHTML(inv, o)
	if err != nil {
		s.logger.Error("invoice template failed", slog.String("number", inv.Number), slog.Any("error", err))
	} else if s.pdf != nil {
		pdf, err := s.pdf.RenderHTML(ctx, html)
		if err != nil {
			s.logger.Warn("invoice pdf render failed, storing un-rendered record",
				slog.String("number", inv.Number), slog.Any("error", err))
		} else {
			inv.Rendered = true
			inv.PDF = pdf
		}
	}

	if _, err := s.repo.Create(ctx, inv); err != nil {
		return fmt.Errorf("store invoice %s: %w", inv.Number, err)
	}
	return nil
}

// CancelForOrder marks every invoice of the order cancelled.
func (s *Service) CancelForOrder(ctx context.Context, orderID int64) error {
	return s.repo.CancelByOrder(ctx, orderID)
}

// ListByOrder returns the order's invoices in issue order.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// LatestByOrder returns the most recently issued invoice for an order.
func (s *Service) LatestByOrder(ctx context.Context, orderID int64) (Invoice, error) {
	return s.repo.LatestByOrder(ctx, orderID)
}
