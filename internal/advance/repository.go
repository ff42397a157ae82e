package advance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terrapos/terrapos/internal/pricing"
)

// Repository persists the append-only ledger.
type Repository interface {
	AppendPayment(ctx context.Context, rec PaymentRecord) (PaymentRecord, error)
	AppendCompletion(ctx context.Context, rec CompletionRecord) (CompletionRecord, error)
	MarkRefunded(ctx context.Context, orderID int64) error
	ListByOrder(ctx context.Context, orderID int64) ([]PaymentRecord, error)
}

// PendingOrder is the raw row analytics derives overdue state from.
type PendingOrder struct {
	OrderID         int64                `json:"order_id"`
	OrderNumber     string               `json:"order_number"`
	CustomerID      int64                `json:"customer_id"`
	Branch          string               `json:"branch"`
	BusinessType    pricing.BusinessType `json:"business_type"`
	AdvanceAmount   float64              `json:"advance_amount"`
	RemainingAmount float64              `json:"remaining_amount"`
	CreatedAt       time.Time            `json:"created_at"`
}

// GroupStat aggregates advance orders along one dimension.
type GroupStat struct {
	Key            string  `json:"key"`
	Count          int     `json:"count"`
	TotalAdvance   float64 `json:"total_advance"`
	AverageAdvance float64 `json:"average_advance"`
}

// AnalyticsRepository reads the raw aggregates the summary is built
// from. Everything here is derived from the order set and the ledger.
type AnalyticsRepository interface {
	PendingOrders(ctx context.Context) ([]PendingOrder, error)
	CollectedTotals(ctx context.Context) (completedCount int, collected float64, err error)
	GroupStats(ctx context.Context) (byBranch, byBusinessType []GroupStat, err error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed ledger and analytics
// repository.
func NewRepository(pool *pgxpool.Pool) *repository {
	return &repository{db: pool}
}

func (r *repository) AppendPayment(ctx context.Context, rec PaymentRecord) (PaymentRecord, error) {
	query := `INSERT INTO advance_payments (
		kind, order_id, order_number, customer_id, branch, business_type,
		amount, balance_before, balance_after, method, bank_details, notes,
		is_completing, due_date, refunded, client_ref, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,false,$15,$16)
		RETURNING id`
	err := r.db.QueryRow(ctx, query,
		rec.Kind, rec.OrderID, rec.OrderNumber, rec.CustomerID, rec.Branch, rec.BusinessType,
		rec.Amount, rec.BalanceBefore, rec.BalanceAfter, rec.Method, rec.BankDetails, rec.Notes,
		rec.IsCompleting, rec.DueDate, rec.ClientRef, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return PaymentRecord{}, err
	}
	return rec, nil
}

func (r *repository) AppendCompletion(ctx context.Context, rec CompletionRecord) (CompletionRecord, error) {
	query := `INSERT INTO advance_completions (
		order_id, order_number, customer_id, total_paid, final_payment, method, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`
	err := r.db.QueryRow(ctx, query,
		rec.OrderID, rec.OrderNumber, rec.CustomerID, rec.TotalPaid, rec.FinalPayment, rec.Method, rec.CompletedAt,
	).Scan(&rec.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return CompletionRecord{}, ErrDuplicate
		}
		return CompletionRecord{}, err
	}
	return rec, nil
}

func (r *repository) MarkRefunded(ctx context.Context, orderID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE advance_payments SET refunded = true WHERE order_id = $1`, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]PaymentRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, kind, order_id, order_number, customer_id, branch, business_type,
		amount, balance_before, balance_after, method, bank_details, notes,
		is_completing, due_date, refunded, client_ref, created_at
		FROM advance_payments WHERE order_id = $1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PaymentRecord
	for rows.Next() {
		var rec PaymentRecord
		err := rows.Scan(&rec.ID, &rec.Kind, &rec.OrderID, &rec.OrderNumber, &rec.CustomerID, &rec.Branch, &rec.BusinessType,
			&rec.Amount, &rec.BalanceBefore, &rec.BalanceAfter, &rec.Method, &rec.BankDetails, &rec.Notes,
			&rec.IsCompleting, &rec.DueDate, &rec.Refunded, &rec.ClientRef, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repository) PendingOrders(ctx context.Context) ([]PendingOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT id, order_number, customer_id, branch_name, business_type,
		advance_amount, remaining_amount, created_at
		FROM orders
		WHERE is_advance_billing AND remaining_amount > 0 AND status <> 'cancelled'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingOrder
	for rows.Next() {
		var p PendingOrder
		err := rows.Scan(&p.OrderID, &p.OrderNumber, &p.CustomerID, &p.Branch, &p.BusinessType,
			&p.AdvanceAmount, &p.RemainingAmount, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *repository) CollectedTotals(ctx context.Context) (int, float64, error) {
	var completedCount int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM advance_completions`).Scan(&completedCount); err != nil {
		return 0, 0, err
	}
	var collected float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM advance_payments WHERE NOT refunded`,
	).Scan(&collected)
	if err != nil {
		return 0, 0, err
	}
	return completedCount, collected, nil
}

func (r *repository) GroupStats(ctx context.Context) ([]GroupStat, []GroupStat, error) {
	byBranch, err := r.groupBy(ctx, "branch_name")
	if err != nil {
		return nil, nil, err
	}
	byBusinessType, err := r.groupBy(ctx, "business_type")
	if err != nil {
		return nil, nil, err
	}
	return byBranch, byBusinessType, nil
}

func (r *repository) groupBy(ctx context.Context, column string) ([]GroupStat, error) {
	rows, err := r.db.Query(ctx, `SELECT `+column+`, COUNT(*), COALESCE(SUM(advance_amount), 0), COALESCE(AVG(advance_amount), 0)
		FROM orders
		WHERE advance_amount > 0 AND status <> 'cancelled'
		GROUP BY `+column+` ORDER BY `+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []GroupStat
	for rows.Next() {
		var s GroupStat
		if err := rows.Scan(&s.Key, &s.Count, &s.TotalAdvance, &s.AverageAdvance); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

var _ Repository = (*repository)(nil)
var _ AnalyticsRepository = (*repository)(nil)
