package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var inr = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders a rupee amount with locale-aware digit grouping for
// invoices and customer-facing messages.
func FormatINR(amount float64) string {
	return inr.Sprintf("₹%.2f", amount)
}
