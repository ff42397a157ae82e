package orders

import (
	"context"
	"log/slog"

	"github.com/terrapos/terrapos/internal/advance"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/notify"
	"github.com/terrapos/terrapos/internal/shared"
)

// runPostCreate executes the post-creation pipeline. Every step is
// independent: a failure is logged and the next step still runs. The
// stored order is never rolled back from here.
func (s *Service) runPostCreate(ctx context.Context, order *Order) {
	if s.invoices != nil {
		if err := s.invoices.IssueBill(ctx, *order); err != nil {
			s.logger.Error("issue invoice failed",
				slog.String("order_number", order.OrderNumber), slog.Any("error", err))
		}
	}

	s.decrementStock(ctx, order)

	if s.customers != nil {
		err := s.customers.RecordPurchase(ctx, order.CustomerID, customers.Purchase{
			Amount:       order.Totals.FinalTotal,
			Branch:       order.Branch.Name,
			BusinessType: order.BusinessType,
			At:           order.CreatedAt,
		})
		if err != nil {
			s.logger.Error("customer stats update failed",
				slog.Int64("customer_id", order.CustomerID), slog.Any("error", err))
		}
	}

	if s.ledger != nil && order.IsAdvanceBilling {
		due := advance.DueDateFor(order.CreatedAt, order.BusinessType)
		_, err := s.ledger.AppendPayment(ctx, advance.PaymentRecord{
			Kind:          advance.KindSeed,
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			Branch:        order.Branch.Name,
			BusinessType:  order.BusinessType,
			Amount:        order.AdvanceAmount,
			BalanceBefore: order.Totals.FinalTotal,
			BalanceAfter:  order.RemainingAmount,
			Method:        order.PaymentMethod,
			BankDetails:   order.BankDetails,
			DueDate:       &due,
			CreatedAt:     order.CreatedAt,
		})
		if err != nil {
			s.logger.Error("advance ledger seed failed",
				slog.String("order_number", order.OrderNumber), slog.Any("error", err))
		}
	}

	kind := notify.Dispatcher.SendBill
	if order.IsAdvanceBilling {
		kind = notify.Dispatcher.SendAdvance
	}
	s.dispatchNotification(ctx, order, kind)
}

// runPostCompletion runs after a payment settles an advance order.
func (s *Service) runPostCompletion(ctx context.Context, order *Order, req CompletePaymentRequest) {
	if s.ledger != nil {
		_, err := s.ledger.AppendCompletion(ctx, advance.CompletionRecord{
			OrderID:      order.ID,
			OrderNumber:  order.OrderNumber,
			CustomerID:   order.CustomerID,
			TotalPaid:    order.AdvanceAmount,
			FinalPayment: req.Amount,
			Method:       req.Method,
			CompletedAt:  s.now(),
		})
		if err != nil {
			s.logger.Error("completion record failed",
				slog.String("order_number", order.OrderNumber), slog.Any("error", err))
		}
	}

	if s.invoices != nil {
		if err := s.invoices.IssueCompletion(ctx, *order); err != nil {
			s.logger.Error("completion invoice failed",
				slog.String("order_number", order.OrderNumber), slog.Any("error", err))
		}
	}

	s.dispatchNotification(ctx, order, notify.Dispatcher.SendCompletion)
}

// runPostCancel reverses the creation side effects that have a safe
// inverse: the invoice is marked cancelled, stock returns for catalog
// lines, and ledger rows are flagged refunded when requested.
func (s *Service) runPostCancel(ctx context.Context, order *Order) {
	if s.invoices != nil {
		if err := s.invoices.CancelForOrder(ctx, order.ID); err != nil {
			s.logger.Error("invoice cancellation failed",
				slog.String("order_number", order.OrderNumber), slog.Any("error", err))
		}
	}

	for _, it := range order.Items {
		if !it.Product.TracksStock() {
			continue
		}
		if err := s.catalog.RestoreStock(ctx, it.Product.CatalogID, it.Quantity); err != nil {
			s.logger.Error("stock restore failed",
				slog.Int64("product_id", it.Product.CatalogID), slog.Any("error", err))
		}
	}

	if s.ledger != nil && order.RefundAdvance && order.AdvanceAmount > 0 {
		if err := s.ledger.MarkRefunded(ctx, order.ID); err != nil {
			s.logger.Error("ledger refund mark failed",
				slog.String("order_number", order.OrderNumber), slog.Any("error", err))
		}
	}
}

func (s *Service) decrementStock(ctx context.Context, order *Order) {
	for _, it := range order.Items {
		if !it.Product.TracksStock() {
			continue
		}
		if err := s.catalog.DecrementStock(ctx, it.Product.CatalogID, it.Quantity); err != nil {
			s.logger.Error("stock decrement failed",
				slog.Int64("product_id", it.Product.CatalogID), slog.Any("error", err))
		}
	}
}

// dispatchNotification sends one message and persists the outcome on
// the order. The outcome is informational and never changes business
// status.
func (s *Service) dispatchNotification(ctx context.Context, order *Order, send func(notify.Dispatcher, context.Context, notify.Message) notify.Result) {
	outcome := NotifySkipped
	defer func() {
		order.NotificationStatus = outcome
		if err := s.repo.Update(ctx, order.ID, map[string]any{"notification_status": outcome}); err != nil {
			s.logger.Error("notification status persist failed",
				slog.String("order_number", order.OrderNumber), slog.Any("error", err))
		}
	}()

	if s.notifier == nil || s.customers == nil {
		return
	}
	customer, err := s.customers.GetOrPlaceholder(ctx, order.CustomerID)
	if err != nil {
		s.logger.Error("notification customer lookup failed",
			slog.Int64("customer_id", order.CustomerID), slog.Any("error", err))
		outcome = NotifyError
		return
	}
	if !customers.ValidPhone(customer.Phone) {
		return
	}

	due := advance.DueDateFor(order.CreatedAt, order.BusinessType)
	result := send(s.notifier, ctx, notify.Message{
		Phone:           customer.Phone,
		CustomerName:    customer.Name,
		OrderNumber:     order.OrderNumber,
		Link:            shared.InvoiceLink(s.baseURL, order.BillToken),
		FinalTotal:      order.Totals.FinalTotal,
		AdvanceAmount:   order.AdvanceAmount,
		RemainingAmount: order.RemainingAmount,
		DueDate:         &due,
	})
	if result.Success {
		outcome = NotifySent
		return
	}
	s.logger.Warn("notification delivery failed",
		slog.String("order_number", order.OrderNumber), slog.String("reason", result.Err))
	outcome = NotifyFailed
}
