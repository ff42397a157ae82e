package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBillToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		tok, err := NewBillToken()
		require.NoError(t, err)
		require.Len(t, tok, BillTokenLength)
		for _, r := range tok {
			require.NotContains(t, "01IO", string(r))
			require.True(t, strings.ContainsRune(billTokenAlphabet, r))
		}
		seen[tok] = true
	}
	// 4 chars over a 32-char alphabet: collisions across 200 draws are
	// possible but near-total duplication is not.
	require.Greater(t, len(seen), 150)
}

func TestLinks(t *testing.T) {
	require.Equal(t, "https://pos.example/i/AB2C", InvoiceLink("https://pos.example", "AB2C"))
	require.Equal(t,
		"https://pos.example/public/estimate/tok-123",
		EstimateLink("https://pos.example", "tok-123"))
}

func TestNewShareTokenOpaque(t *testing.T) {
	a := NewShareToken()
	b := NewShareToken()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
