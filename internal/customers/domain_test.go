package customers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhone(t *testing.T) {
	valid := []string{
		"9876543210",
		"+919876543210",
		"919876543210",
		"98765 43210",
		"98765-43210",
		" 9876543210 ",
		"6000000000",
	}
	for _, phone := range valid {
		assert.True(t, ValidPhone(phone), "expected valid: %q", phone)
	}

	invalid := []string{
		"",
		"12345",
		"5876543210",
		"98765432101",
		"abcdefghij",
		"+1 555 0100",
		"987654321",
	}
	for _, phone := range invalid {
		assert.False(t, ValidPhone(phone), "expected invalid: %q", phone)
	}
}

func TestPlaceholder(t *testing.T) {
	c := Placeholder(42)
	assert.Equal(t, int64(42), c.ID)
	assert.Equal(t, "Customer Not Found", c.Name)
	assert.Zero(t, c.TotalSpent)
	assert.Zero(t, c.OrderCount)
}
