package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists invoice records.
type Repository interface {
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error)
	LatestByOrder(ctx context.Context, orderID int64) (Invoice, error)
	CancelByOrder(ctx context.Context, orderID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO invoices (number, order_id, kind, status, ref_number, rendered, pdf, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8) RETURNING id`,
		inv.Number, inv.OrderID, inv.Kind, inv.Status, inv.RefNumber, inv.Rendered, inv.PDF, now,
	).Scan(&inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return inv, nil
}

const invoiceColumns = `id, number, order_id, kind, status, ref_number, rendered, pdf, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.Kind, &inv.Status, &inv.RefNumber,
		&inv.Rendered, &inv.PDF, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *repository) LatestByOrder(ctx context.Context, orderID int64) (Invoice, error) {
	return scanInvoice(r.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1 ORDER BY id DESC LIMIT 1`, orderID))
}

func (r *repository) CancelByOrder(ctx context.Context, orderID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE order_id = $2`, StatusCancelled, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
