package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrapos/terrapos/internal/advance"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/notify"
	"github.com/terrapos/terrapos/internal/orders"
)

type fakeOverdue struct {
	rows []advance.OverdueOrder
	err  error
}

func (f *fakeOverdue) Overdue(ctx context.Context) ([]advance.OverdueOrder, error) {
	return f.rows, f.err
}

type fakeOrderSource struct {
	orders map[int64]orders.Order
}

func (f *fakeOrderSource) Get(ctx context.Context, id int64) (orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

type fakeCustomerSource struct {
	customers map[int64]customers.Customer
}

func (f *fakeCustomerSource) GetOrPlaceholder(ctx context.Context, id int64) (customers.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return customers.Placeholder(id), nil
	}
	return c, nil
}

type recordingDispatcher struct {
	mu        sync.Mutex
	reminders []notify.Message
	failFor   map[string]bool
}

func (d *recordingDispatcher) SendBill(ctx context.Context, m notify.Message) notify.Result {
	return notify.Result{Success: true}
}

func (d *recordingDispatcher) SendAdvance(ctx context.Context, m notify.Message) notify.Result {
	return notify.Result{Success: true}
}

func (d *recordingDispatcher) SendCompletion(ctx context.Context, m notify.Message) notify.Result {
	return notify.Result{Success: true}
}

func (d *recordingDispatcher) SendReminder(ctx context.Context, m notify.Message) notify.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reminders = append(d.reminders, m)
	if d.failFor[m.OrderNumber] {
		return notify.Result{Err: "gateway timeout"}
	}
	return notify.Result{Success: true, MessageID: "msg-" + m.OrderNumber}
}

func overdueRow(orderID int64, dueDate time.Time) advance.OverdueOrder {
	return advance.OverdueOrder{
		PendingOrder: advance.PendingOrder{OrderID: orderID},
		DueDate:      dueDate,
		DaysOverdue:  3,
	}
}

func newReminderFixture() (*ReminderJob, *recordingDispatcher, *fakeOrderSource, *fakeCustomerSource) {
	dispatcher := &recordingDispatcher{failFor: map[string]bool{}}
	orderSource := &fakeOrderSource{orders: map[int64]orders.Order{
		1: {ID: 1, OrderNumber: "MS10000001", CustomerID: 7, BillToken: "AB2C", RemainingAmount: 600},
		2: {ID: 2, OrderNumber: "MS10000002", CustomerID: 8, BillToken: "XY9Z", RemainingAmount: 1500},
	}}
	customerSource := &fakeCustomerSource{customers: map[int64]customers.Customer{
		7: {ID: 7, Name: "Asha", Phone: "9876543210"},
		8: {ID: 8, Name: "Walk-in", Phone: ""},
	}}
	overdue := &fakeOverdue{rows: []advance.OverdueOrder{
		overdueRow(1, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)),
		overdueRow(2, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)),
	}}
	logger := slog.Default()
	job := NewReminderJob(overdue, orderSource, customerSource, dispatcher, "https://pos.example.com", logger)
	return job, dispatcher, orderSource, customerSource
}

func TestReminderScanSendsForOverdueWithValidPhone(t *testing.T) {
	job, dispatcher, _, _ := newReminderFixture()

	task, err := NewAdvanceRemindersTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, dispatcher.reminders, 1)
	msg := dispatcher.reminders[0]
	assert.Equal(t, "9876543210", msg.Phone)
	assert.Equal(t, "MS10000001", msg.OrderNumber)
	assert.Equal(t, "https://pos.example.com/i/AB2C", msg.Link)
	assert.Equal(t, 600.0, msg.RemainingAmount)
	require.NotNil(t, msg.DueDate)
	assert.Equal(t, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), *msg.DueDate)
}

func TestReminderDeliveryFailureDoesNotAbortScan(t *testing.T) {
	job, dispatcher, _, customerSource := newReminderFixture()
	customerSource.customers[8] = customers.Customer{ID: 8, Name: "Ravi", Phone: "9123456780"}
	dispatcher.failFor["MS10000001"] = true

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskAdvanceReminders, nil)))
	assert.Len(t, dispatcher.reminders, 2)
}

func TestReminderSkipsMissingOrder(t *testing.T) {
	job, dispatcher, orderSource, _ := newReminderFixture()
	delete(orderSource.orders, 1)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskAdvanceReminders, nil)))
	assert.Empty(t, dispatcher.reminders)
}

func TestReminderScanPropagatesSourceError(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	overdue := &fakeOverdue{err: errors.New("connection refused")}
	job := NewReminderJob(overdue, &fakeOrderSource{}, &fakeCustomerSource{}, dispatcher, "https://pos.example.com", slog.Default())

	err := job.Handle(context.Background(), asynq.NewTask(TaskAdvanceReminders, nil))
	require.Error(t, err)
	assert.Empty(t, dispatcher.reminders)
}

func TestNotifyJobRetriesOnDeliveryFailure(t *testing.T) {
	dispatcher := &recordingDispatcher{failFor: map[string]bool{"MS10000009": true}}
	job := NewNotifyJob(dispatcher, slog.Default())

	task, err := NewNotifySendTask(NotifySendPayload{
		Kind:    NotifyKindReminder,
		Message: notify.Message{Phone: "9876543210", OrderNumber: "MS10000009"},
	})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestNotifyJobDropsMalformedPayload(t *testing.T) {
	job := NewNotifyJob(&recordingDispatcher{}, slog.Default())

	err := job.Handle(context.Background(), asynq.NewTask(TaskNotifySend, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
