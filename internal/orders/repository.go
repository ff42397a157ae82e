package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terrapos/terrapos/internal/platform/db"
)

// Repository provides persistence for orders and their items.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	GetByNumber(ctx context.Context, number string) (Order, error)
	GetByBillToken(ctx context.Context, token string) (Order, error)
	GetByShareToken(ctx context.Context, token string) (Order, error)
	List(ctx context.Context, filters ListFilters) ([]Order, int, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const orderColumns = `id, order_number, customer_id, branch_id, branch_name, branch_address, branch_phone,
	business_type, subtotal, total_discount, discount_percentage, wholesale_discount, final_total,
	item_count, total_quantity, status, payment_status, is_advance_billing, advance_amount,
	remaining_amount, payment_method, bank_details, notes, bill_token, share_token,
	notification_status, estimate_id, cancel_reason, refund_advance, cancelled_at, completed_at,
	created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.BranchID, &o.Branch.Name, &o.Branch.Address, &o.Branch.Phone,
		&o.BusinessType, &o.Totals.Subtotal, &o.Totals.TotalDiscount, &o.Totals.DiscountPercentage,
		&o.Totals.WholesaleDiscount, &o.Totals.FinalTotal, &o.Totals.ItemCount, &o.Totals.TotalQuantity,
		&o.Status, &o.PaymentStatus, &o.IsAdvanceBilling, &o.AdvanceAmount,
		&o.RemainingAmount, &o.PaymentMethod, &o.BankDetails, &o.Notes, &o.BillToken, &o.ShareToken,
		&o.NotificationStatus, &o.EstimateID, &o.CancelReason, &o.RefundAdvance, &o.CancelledAt, &o.CompletedAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *repository) Create(ctx context.Context, o Order) (Order, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `INSERT INTO orders (
			order_number, customer_id, branch_id, branch_name, branch_address, branch_phone,
			business_type, subtotal, total_discount, discount_percentage, wholesale_discount, final_total,
			item_count, total_quantity, status, payment_status, is_advance_billing, advance_amount,
			remaining_amount, payment_method, bank_details, notes, bill_token, share_token, estimate_id,
			created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$26)
			RETURNING id`
		err := tx.QueryRow(ctx, query,
			o.OrderNumber, o.CustomerID, o.BranchID, o.Branch.Name, o.Branch.Address, o.Branch.Phone,
			o.BusinessType, o.Totals.Subtotal, o.Totals.TotalDiscount, o.Totals.DiscountPercentage,
			o.Totals.WholesaleDiscount, o.Totals.FinalTotal, o.Totals.ItemCount, o.Totals.TotalQuantity,
			o.Status, o.PaymentStatus, o.IsAdvanceBilling, o.AdvanceAmount,
			o.RemainingAmount, o.PaymentMethod, o.BankDetails, o.Notes, o.BillToken, o.ShareToken, o.EstimateID,
			o.CreatedAt,
		).Scan(&o.ID)
		if err != nil {
			return err
		}

		for i := range o.Items {
			it := &o.Items[i]
			var catalogID *int64
			if it.Product.CatalogID != 0 {
				catalogID = &it.Product.CatalogID
			}
			err := tx.QueryRow(ctx, `INSERT INTO order_items (
				order_id, product_kind, product_ref, catalog_id, name, category,
				quantity, original_price, current_price, discount_percent, line_total)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
				o.ID, it.Product.Kind, it.Product.ID, catalogID, it.Product.Name, it.Product.Category,
				it.Quantity, it.OriginalPrice, it.CurrentPrice, it.DiscountPercent, it.LineTotal,
			).Scan(&it.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Order{}, ErrDuplicate
		}
		return Order{}, err
	}
	return o, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Order, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (Order, error) {
	return r.getBy(ctx, `order_number = $1`, number)
}

func (r *repository) GetByBillToken(ctx context.Context, token string) (Order, error) {
	return r.getBy(ctx, `bill_token = $1`, token)
}

func (r *repository) GetByShareToken(ctx context.Context, token string) (Order, error) {
	return r.getBy(ctx, `share_token = $1`, token)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err != nil {
		return Order{}, err
	}
	items, err := r.loadItems(ctx, []int64{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Order, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	addFilter := func(clause string, value any) {
		argCount++
		where += ` AND ` + clause + ` $` + strconv.Itoa(argCount)
		args = append(args, value)
	}
	if filters.BranchID > 0 {
		addFilter(`branch_id =`, filters.BranchID)
	}
	if filters.BusinessType != "" {
		addFilter(`business_type =`, filters.BusinessType)
	}
	if filters.Status != "" {
		addFilter(`status =`, filters.Status)
	}
	if filters.PaymentStatus != "" {
		addFilter(`payment_status =`, filters.PaymentStatus)
	}
	if !filters.From.IsZero() {
		addFilter(`created_at >=`, filters.From)
	}
	if !filters.To.IsZero() {
		addFilter(`created_at <=`, filters.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}
	return orders, total, nil
}

func (r *repository) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT order_id, id, product_kind, product_ref, catalog_id, name, category,
		quantity, original_price, current_price, discount_percent, line_total
		FROM order_items WHERE order_id = ANY($1) ORDER BY id ASC`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]Item)
	for rows.Next() {
		var orderID int64
		var it Item
		var catalogID *int64
		err := rows.Scan(&orderID, &it.ID, &it.Product.Kind, &it.Product.ID, &catalogID,
			&it.Product.Name, &it.Product.Category,
			&it.Quantity, &it.OriginalPrice, &it.CurrentPrice, &it.DiscountPercent, &it.LineTotal)
		if err != nil {
			return nil, err
		}
		if catalogID != nil {
			it.Product.CatalogID = *catalogID
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}

var orderUpdateColumns = []string{
	"status", "payment_status", "is_advance_billing", "advance_amount", "remaining_amount",
	"payment_method", "bank_details", "notes", "notification_status",
	"cancel_reason", "refund_advance", "cancelled_at", "completed_at",
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := `UPDATE orders SET updated_at = NOW()`
	args := []any{}
	argCount := 0
	for _, col := range orderUpdateColumns {
		if val, ok := updates[col]; ok {
			argCount++
			query += `, ` + col + ` = $` + strconv.Itoa(argCount)
			args = append(args, val)
		}
	}
	argCount++
	query += ` WHERE id = $` + strconv.Itoa(argCount)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
