package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides persistence for products and branches.
type Repository interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, updates map[string]any) error
	AdjustStock(ctx context.Context, productID int64, delta int) (int, error)

	ListBranches(ctx context.Context) ([]Branch, error)
	GetBranch(ctx context.Context, id int64) (Branch, error)
	CreateBranch(ctx context.Context, b Branch) (Branch, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	query := `SELECT id, name, category, price, wholesale_price, stock, is_active, created_at, updated_at FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []any{}
	argCount := 0

	appendCond := func(cond string, val any) {
		argCount++
		clause := cond + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, val)
	}

	if filters.Category != "" {
		appendCond(` AND category = $`, filters.Category)
	}
	if filters.Search != "" {
		appendCond(` AND name ILIKE $`, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		appendCond(` AND is_active = $`, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`
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

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.WholesalePrice, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	query := `SELECT id, name, category, price, wholesale_price, stock, is_active, created_at, updated_at FROM products WHERE id = $1`
	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.WholesalePrice, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	query := `INSERT INTO products (name, category, price, wholesale_price, stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, p.Name, p.Category, p.Price, p.WholesalePrice, p.Stock, p.IsActive, now).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) UpdateProduct(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := `UPDATE products SET updated_at = NOW()`
	args := []any{}
	argCount := 0
	for _, col := range []string{"name", "category", "price", "wholesale_price", "stock", "is_active"} {
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

// AdjustStock applies a delta to a product's stock, clamping at zero.
// Stock tracking is best-effort bookkeeping, not reservation.
func (r *repository) AdjustStock(ctx context.Context, productID int64, delta int) (int, error) {
	query := `UPDATE products SET stock = GREATEST(stock + $1, 0), updated_at = NOW() WHERE id = $2 RETURNING stock`
	var stock int
	err := r.db.QueryRow(ctx, query, delta, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return stock, err
}

func (r *repository) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, address, phone, is_active, created_at FROM branches ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (r *repository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	query := `SELECT id, code, name, address, phone, is_active, created_at FROM branches WHERE id = $1`
	var b Branch
	err := r.db.QueryRow(ctx, query, id).Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrNotFound
	}
	return b, err
}

func (r *repository) CreateBranch(ctx context.Context, b Branch) (Branch, error) {
	query := `INSERT INTO branches (code, name, address, phone, is_active, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query, b.Code, b.Name, b.Address, b.Phone, b.IsActive, now).Scan(&b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Branch{}, ErrDuplicate
		}
		return Branch{}, err
	}
	b.CreatedAt = now
	return b, nil
}
