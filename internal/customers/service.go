package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service provides business logic for customer operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a customer service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create creates a new customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	c := Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

// Update applies a partial update to an existing customer.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (Customer, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return Customer{}, fmt.Errorf("update customer: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Get retrieves a customer by ID.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// GetOrPlaceholder retrieves a customer, substituting a placeholder on
// a missing record so enriched reads never fail on a dangling
// reference. Store failures still propagate.
func (s *Service) GetOrPlaceholder(ctx context.Context, id int64) (Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Placeholder(id), nil
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// List returns a filtered, paginated customer list.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

// RecordPurchase folds an order's totals into the customer aggregates.
// Called from the order side-effect pipeline; failures are the
// caller's to swallow.
func (s *Service) RecordPurchase(ctx context.Context, id int64, p Purchase) error {
	if err := s.repo.ApplyPurchase(ctx, id, p); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	return nil
}
