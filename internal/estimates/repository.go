package estimates

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terrapos/terrapos/internal/platform/db"
)

// Repository provides persistence for estimates and their items.
type Repository interface {
	Create(ctx context.Context, e Estimate) (Estimate, error)
	Get(ctx context.Context, id int64) (Estimate, error)
	GetByShareToken(ctx context.Context, token string) (Estimate, error)
	List(ctx context.Context, filters ListFilters) ([]Estimate, int, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	LatestNumberOfDay(ctx context.Context, day time.Time) (string, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const estimateColumns = `id, estimate_number, customer_id, branch_id, branch_name, branch_address, branch_phone,
	business_type, subtotal, total_discount, discount_percentage, wholesale_discount, final_total,
	item_count, total_quantity, status, share_token, notes, created_at, updated_at`

func scanEstimate(row pgx.Row) (Estimate, error) {
	var e Estimate
	err := row.Scan(
		&e.ID, &e.EstimateNumber, &e.CustomerID, &e.BranchID, &e.Branch.Name, &e.Branch.Address, &e.Branch.Phone,
		&e.BusinessType, &e.Totals.Subtotal, &e.Totals.TotalDiscount, &e.Totals.DiscountPercentage,
		&e.Totals.WholesaleDiscount, &e.Totals.FinalTotal, &e.Totals.ItemCount, &e.Totals.TotalQuantity,
		&e.Status, &e.ShareToken, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Estimate{}, ErrNotFound
	}
	return e, err
}

func (r *repository) Create(ctx context.Context, e Estimate) (Estimate, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `INSERT INTO estimates (
			estimate_number, customer_id, branch_id, branch_name, branch_address, branch_phone,
			business_type, subtotal, total_discount, discount_percentage, wholesale_discount, final_total,
			item_count, total_quantity, status, share_token, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)
			RETURNING id`
		err := tx.QueryRow(ctx, query,
			e.EstimateNumber, e.CustomerID, e.BranchID, e.Branch.Name, e.Branch.Address, e.Branch.Phone,
			e.BusinessType, e.Totals.Subtotal, e.Totals.TotalDiscount, e.Totals.DiscountPercentage,
			e.Totals.WholesaleDiscount, e.Totals.FinalTotal, e.Totals.ItemCount, e.Totals.TotalQuantity,
			e.Status, e.ShareToken, e.Notes, e.CreatedAt,
		).Scan(&e.ID)
		if err != nil {
			return err
		}

		for i := range e.Items {
			it := &e.Items[i]
			var catalogID *int64
			if it.Product.CatalogID != 0 {
				catalogID = &it.Product.CatalogID
			}
			err := tx.QueryRow(ctx, `INSERT INTO estimate_items (
				estimate_id, product_kind, product_ref, catalog_id, name, category,
				quantity, original_price, current_price, discount_percent, line_total)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
				e.ID, it.Product.Kind, it.Product.ID, catalogID, it.Product.Name, it.Product.Category,
				it.Quantity, it.OriginalPrice, it.CurrentPrice, it.DiscountPercent, it.LineTotal,
			).Scan(&it.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Estimate{}, err
	}
	return e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Estimate, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *repository) GetByShareToken(ctx context.Context, token string) (Estimate, error) {
	return r.getBy(ctx, `share_token = $1`, token)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (Estimate, error) {
	e, err := scanEstimate(r.db.QueryRow(ctx, `SELECT `+estimateColumns+` FROM estimates WHERE `+where, arg))
	if err != nil {
		return Estimate{}, err
	}
	items, err := r.loadItems(ctx, []int64{e.ID})
	if err != nil {
		return Estimate{}, err
	}
	e.Items = items[e.ID]
	return e, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Estimate, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	addFilter := func(clause string, value any) {
		argCount++
		where += ` AND ` + clause + ` $` + strconv.Itoa(argCount)
		args = append(args, value)
	}
	if filters.Status != "" {
		addFilter(`status =`, filters.Status)
	}
	if filters.BranchID > 0 {
		addFilter(`branch_id =`, filters.BranchID)
	}
	if filters.BusinessType != "" {
		addFilter(`business_type =`, filters.BusinessType)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM estimates`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + estimateColumns + ` FROM estimates` + where + ` ORDER BY created_at DESC`
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

	var estimatesList []Estimate
	var ids []int64
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, 0, err
		}
		estimatesList = append(estimatesList, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range estimatesList {
			estimatesList[i].Items = items[estimatesList[i].ID]
		}
	}
	return estimatesList, total, nil
}

func (r *repository) loadItems(ctx context.Context, estimateIDs []int64) (map[int64][]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT estimate_id, id, product_kind, product_ref, catalog_id, name, category,
		quantity, original_price, current_price, discount_percent, line_total
		FROM estimate_items WHERE estimate_id = ANY($1) ORDER BY id ASC`, estimateIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]Item)
	for rows.Next() {
		var estimateID int64
		var it Item
		var catalogID *int64
		err := rows.Scan(&estimateID, &it.ID, &it.Product.Kind, &it.Product.ID, &catalogID,
			&it.Product.Name, &it.Product.Category,
			&it.Quantity, &it.OriginalPrice, &it.CurrentPrice, &it.DiscountPercent, &it.LineTotal)
		if err != nil {
			return nil, err
		}
		if catalogID != nil {
			it.Product.CatalogID = *catalogID
		}
		items[estimateID] = append(items[estimateID], it)
	}
	return items, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE estimates SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) LatestNumberOfDay(ctx context.Context, day time.Time) (string, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var number string
	err := r.db.QueryRow(ctx,
		`SELECT estimate_number FROM estimates WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC LIMIT 1`,
		start, end,
	).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return number, err
}
