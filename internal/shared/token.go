// Package shared holds small helpers used across domain packages.
package shared

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// billTokenAlphabet excludes visually ambiguous characters (0, 1, I, O)
// so short invoice links survive being read aloud or handwritten.
const billTokenAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// BillTokenLength is the length of the short invoice token.
const BillTokenLength = 4

// NewBillToken returns a short random token for public invoice links.
func NewBillToken() (string, error) {
	buf := make([]byte, BillTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("shared: bill token: %w", err)
	}
	for i, b := range buf {
		buf[i] = billTokenAlphabet[int(b)%len(billTokenAlphabet)]
	}
	return string(buf), nil
}

// NewShareToken returns an opaque token for public estimate and invoice
// document links.
func NewShareToken() string {
	return uuid.NewString()
}

// InvoiceLink builds the short public invoice link. The shape
// <host>/i/<token> is relied on by printed bills and must not change.
func InvoiceLink(baseURL, billToken string) string {
	return fmt.Sprintf("%s/i/%s", baseURL, billToken)
}

// EstimateLink builds the full public estimate link
// <host>/public/estimate/<shareToken>.
func EstimateLink(baseURL, shareToken string) string {
	return fmt.Sprintf("%s/public/estimate/%s", baseURL, shareToken)
}
