// Package invoice issues the printable documents behind public bill
// links: one bill invoice per order, plus a completion invoice when an
// advance is fully settled.
package invoice

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("invoice not found")

// Invoice kinds.
const (
	KindBill       = "bill"
	KindCompletion = "completion"
)

// Invoice statuses.
const (
	StatusIssued    = "issued"
	StatusCancelled = "cancelled"
)

// Invoice is one issued document. PDF bytes are present only when the
// render succeeded; an un-rendered record is still a valid invoice.
type Invoice struct {
	ID        int64     `json:"id" db:"id"`
	Number    string    `json:"number" db:"number"`
	OrderID   int64     `json:"order_id" db:"order_id"`
	Kind      string    `json:"kind" db:"kind"`
	Status    string    `json:"status" db:"status"`
	RefNumber string    `json:"ref_number,omitempty" db:"ref_number"`
	Rendered  bool      `json:"rendered" db:"rendered"`
	PDF       []byte    `json:"-" db:"pdf"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
