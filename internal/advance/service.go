package advance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service wraps ledger writes with cache invalidation. It implements
// the ledger port the order service depends on.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService wires the ledger service. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// AppendPayment stores one immutable ledger entry. A missing client
// reference is filled in so every entry stays individually addressable.
func (s *Service) AppendPayment(ctx context.Context, rec PaymentRecord) (PaymentRecord, error) {
	if rec.ClientRef == "" {
		rec.ClientRef = uuid.NewString()
	}
	stored, err := s.repo.AppendPayment(ctx, rec)
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("append payment: %w", err)
	}
	s.bump(ctx)
	return stored, nil
}

// AppendCompletion stores the once-per-order completion marker.
func (s *Service) AppendCompletion(ctx context.Context, rec CompletionRecord) (CompletionRecord, error) {
	stored, err := s.repo.AppendCompletion(ctx, rec)
	if err != nil {
		return CompletionRecord{}, fmt.Errorf("append completion: %w", err)
	}
	s.bump(ctx)
	return stored, nil
}

// MarkRefunded flags all of an order's ledger entries as refunded.
func (s *Service) MarkRefunded(ctx context.Context, orderID int64) error {
	if err := s.repo.MarkRefunded(ctx, orderID); err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	s.bump(ctx)
	return nil
}

// ListByOrder returns an order's ledger entries in append order.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]PaymentRecord, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *Service) bump(ctx context.Context) {
	if s.cache != nil {
		s.cache.Bump(ctx)
	}
}
