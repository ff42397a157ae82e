package customers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides persistence for customers.
type Repository interface {
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	ApplyPurchase(ctx context.Context, id int64, p Purchase) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id, name, phone, address, total_spent, order_count, last_branch, last_business_type, last_order_at, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.TotalSpent, &c.OrderCount,
		&c.LastBranch, &c.LastBusinessType, &c.LastOrderAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *repository) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM customers WHERE 1=1`
	args := []any{}
	argCount := 0

	if search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR phone ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`
	if limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.TotalSpent, &c.OrderCount,
			&c.LastBranch, &c.LastBusinessType, &c.LastOrderAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	query := `INSERT INTO customers (name, phone, address, total_spent, order_count, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, $4) RETURNING id`
	now := time.Now().UTC()
	if err := r.db.QueryRow(ctx, query, c.Name, c.Phone, c.Address, now).Scan(&c.ID); err != nil {
		return Customer{}, err
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := `UPDATE customers SET updated_at = NOW()`
	args := []any{}
	argCount := 0
	for _, col := range []string{"name", "phone", "address"} {
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

func (r *repository) ApplyPurchase(ctx context.Context, id int64, p Purchase) error {
	query := `UPDATE customers SET
		total_spent = total_spent + $1,
		order_count = order_count + 1,
		last_branch = $2,
		last_business_type = $3,
		last_order_at = $4,
		updated_at = NOW()
		WHERE id = $5`
	tag, err := r.db.Exec(ctx, query, p.Amount, p.Branch, p.BusinessType, p.At, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
