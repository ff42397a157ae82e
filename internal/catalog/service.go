package catalog

import (
	"context"
	"fmt"
)

// Service provides business logic for catalog operations.
type Service struct {
	repo Repository
}

// NewService constructs a catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateProduct creates a new catalog product.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (Product, error) {
	p := Product{
		Name:           req.Name,
		Category:       req.Category,
		Price:          req.Price,
		WholesalePrice: req.WholesalePrice,
		Stock:          req.Stock,
		IsActive:       true,
	}
	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// UpdateProduct applies a partial update to an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.WholesalePrice != nil {
		updates["wholesale_price"] = *req.WholesalePrice
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateProduct(ctx, id, updates); err != nil {
			return Product{}, fmt.Errorf("update product: %w", err)
		}
	}
	return s.repo.GetProduct(ctx, id)
}

// GetProduct retrieves a product by ID.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts returns a filtered, paginated product list.
func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

// DecrementStock reduces a product's stock after a sale. Stock clamps
// at zero; an oversell is recorded as zero, not rejected.
func (s *Service) DecrementStock(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("catalog: decrement quantity must be positive")
	}
	if _, err := s.repo.AdjustStock(ctx, productID, -qty); err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

// RestoreStock returns quantity to a product after a cancellation. The
// inverse of DecrementStock.
func (s *Service) RestoreStock(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("catalog: restore quantity must be positive")
	}
	if _, err := s.repo.AdjustStock(ctx, productID, qty); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

// CreateBranch registers a new sales location.
func (s *Service) CreateBranch(ctx context.Context, req CreateBranchRequest) (Branch, error) {
	b := Branch{
		Code:     req.Code,
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: true,
	}
	created, err := s.repo.CreateBranch(ctx, b)
	if err != nil {
		return Branch{}, fmt.Errorf("create branch: %w", err)
	}
	return created, nil
}

// GetBranch retrieves a branch by ID.
func (s *Service) GetBranch(ctx context.Context, id int64) (Branch, error) {
	return s.repo.GetBranch(ctx, id)
}

// ListBranches returns all branches.
func (s *Service) ListBranches(ctx context.Context) ([]Branch, error) {
	return s.repo.ListBranches(ctx)
}
