package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/terrapos/terrapos/internal/advance"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/notify"
	"github.com/terrapos/terrapos/internal/orders"
	"github.com/terrapos/terrapos/internal/shared"
)

// reminderConcurrency bounds the parallel gateway calls of one scan.
const reminderConcurrency = 5

// OrderSource resolves full orders for reminder links.
type OrderSource interface {
	Get(ctx context.Context, id int64) (orders.Order, error)
}

// CustomerSource resolves customers for reminder phone numbers.
type CustomerSource interface {
	GetOrPlaceholder(ctx context.Context, id int64) (customers.Customer, error)
}

// OverdueSource lists the advances past their due date.
type OverdueSource interface {
	Overdue(ctx context.Context) ([]advance.OverdueOrder, error)
}

// ReminderJob sends one WhatsApp reminder per overdue advance order.
// Individual failures never abort the scan.
type ReminderJob struct {
	overdue    OverdueSource
	orders     OrderSource
	customers  CustomerSource
	dispatcher notify.Dispatcher
	baseURL    string
	logger     *slog.Logger
}

// NewReminderJob constructs the advance:reminders handler.
func NewReminderJob(overdue OverdueSource, orderSource OrderSource, customerSource CustomerSource, dispatcher notify.Dispatcher, baseURL string, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{
		overdue:    overdue,
		orders:     orderSource,
		customers:  customerSource,
		dispatcher: dispatcher,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Handle processes TaskAdvanceReminders tasks.
func (j *ReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	overdueOrders, err := j.overdue.Overdue(ctx)
	if err != nil {
		return err
	}
	if len(overdueOrders) == 0 {
		j.logger.Info("no overdue advances")
		return nil
	}

	var sent, skipped, failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reminderConcurrency)
	for _, od := range overdueOrders {
		g.Go(func() error {
			order, err := j.orders.Get(ctx, od.OrderID)
			if err != nil {
				j.logger.Warn("reminder order lookup failed",
					slog.Int64("order_id", od.OrderID), slog.Any("error", err))
				failed.Add(1)
				return nil
			}
			customer, err := j.customers.GetOrPlaceholder(ctx, order.CustomerID)
			if err != nil || !customers.ValidPhone(customer.Phone) {
				skipped.Add(1)
				return nil
			}

			result := j.dispatcher.SendReminder(ctx, notify.Message{
				Phone:           customer.Phone,
				CustomerName:    customer.Name,
				OrderNumber:     order.OrderNumber,
				Link:            shared.InvoiceLink(j.baseURL, order.BillToken),
				RemainingAmount: order.RemainingAmount,
				DueDate:         &od.DueDate,
			})
			if result.Success {
				sent.Add(1)
			} else {
				j.logger.Warn("reminder delivery failed",
					slog.String("order_number", order.OrderNumber), slog.String("reason", result.Err))
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	j.logger.Info("advance reminder scan complete",
		slog.Int("overdue", len(overdueOrders)),
		slog.Int64("sent", sent.Load()),
		slog.Int64("skipped", skipped.Load()),
		slog.Int64("failed", failed.Load()))
	return nil
}
