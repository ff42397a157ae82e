// Package notify sends customer-facing WhatsApp messages. Dispatchers
// never return errors or panic; delivery problems are reported inside
// the Result so callers stay on their happy path.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/terrapos/terrapos/internal/shared"
)

// Result reports one delivery attempt.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Message carries everything a template needs. Unused fields are zero.
type Message struct {
	Phone           string
	CustomerName    string
	OrderNumber     string
	Link            string
	FinalTotal      float64
	AdvanceAmount   float64
	RemainingAmount float64
	DueDate         *time.Time
}

// Dispatcher is the outbound messaging port.
type Dispatcher interface {
	SendBill(ctx context.Context, m Message) Result
	SendAdvance(ctx context.Context, m Message) Result
	SendCompletion(ctx context.Context, m Message) Result
	SendReminder(ctx context.Context, m Message) Result
}

func billText(m Message) string {
	return fmt.Sprintf("Hi %s, thank you for your purchase! Order %s, total %s. View your bill: %s",
		m.CustomerName, m.OrderNumber, shared.FormatINR(m.FinalTotal), m.Link)
}

func advanceText(m Message) string {
	text := fmt.Sprintf("Hi %s, we received an advance of %s for order %s. Balance due: %s.",
		m.CustomerName, shared.FormatINR(m.AdvanceAmount), m.OrderNumber, shared.FormatINR(m.RemainingAmount))
	if m.DueDate != nil {
		text += fmt.Sprintf(" Please clear it by %s.", m.DueDate.Format("02 Jan 2006"))
	}
	return text + " View your bill: " + m.Link
}

func completionText(m Message) string {
	return fmt.Sprintf("Hi %s, order %s is now fully paid. Total %s. Thank you! View your bill: %s",
		m.CustomerName, m.OrderNumber, shared.FormatINR(m.FinalTotal), m.Link)
}

func reminderText(m Message) string {
	return fmt.Sprintf("Hi %s, a gentle reminder: %s is still due on order %s. View your bill: %s",
		m.CustomerName, shared.FormatINR(m.RemainingAmount), m.OrderNumber, m.Link)
}

// Noop is a dispatcher that delivers nothing. Used in tests and when no
// gateway is configured.
type Noop struct{}

func (Noop) SendBill(context.Context, Message) Result       { return Result{Err: "notifications disabled"} }
func (Noop) SendAdvance(context.Context, Message) Result    { return Result{Err: "notifications disabled"} }
func (Noop) SendCompletion(context.Context, Message) Result { return Result{Err: "notifications disabled"} }
func (Noop) SendReminder(context.Context, Message) Result   { return Result{Err: "notifications disabled"} }
