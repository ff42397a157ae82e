package estimates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/terrapos/terrapos/internal/cart"
	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/platform/httpx"
	"github.com/terrapos/terrapos/internal/pricing"
	"github.com/terrapos/terrapos/internal/shared"
)

// CatalogPort is the slice of the catalog service estimates depend on.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	GetBranch(ctx context.Context, id int64) (catalog.Branch, error)
}

// CustomerPort resolves customers for enriched reads.
type CustomerPort interface {
	GetOrPlaceholder(ctx context.Context, id int64) (customers.Customer, error)
}

// Service coordinates the estimate lifecycle.
type Service struct {
	repo      Repository
	catalog   CatalogPort
	customers CustomerPort
	baseURL   string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the estimate service.
func NewService(repo Repository, catalogPort CatalogPort, customerPort CustomerPort, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalogPort,
		customers: customerPort,
		baseURL:   baseURL,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a new quote. The item cap is enforced through the
// estimate cart, so merged duplicates do not count twice.
func (s *Service) Create(ctx context.Context, req CreateEstimateRequest) (View, error) {
	if !req.BusinessType.Valid() {
		return View{}, fmt.Errorf("%w: business type must be retail or wholesale", httpx.ErrValidation)
	}
	if len(req.Items) == 0 {
		return View{}, fmt.Errorf("%w: at least one item is required", httpx.ErrValidation)
	}

	branch, err := s.catalog.GetBranch(ctx, req.BranchID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return View{}, fmt.Errorf("%w: branch %d not found", httpx.ErrValidation, req.BranchID)
		}
		return View{}, fmt.Errorf("resolve branch: %w", err)
	}

	basket := cart.NewEstimate()
	for _, ri := range req.Items {
		ref, original, err := s.resolveItem(ctx, ri, req.BusinessType)
		if err != nil {
			return View{}, err
		}
		current := original
		if ri.CurrentPrice != nil {
			current = *ri.CurrentPrice
		}
		if err := basket.Add(ref, ri.Quantity, original, current, req.BusinessType); err != nil {
			return View{}, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
		}
	}

	lines := basket.Items()
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			Product:         l.Product,
			Quantity:        l.Quantity,
			OriginalPrice:   l.OriginalPrice,
			CurrentPrice:    l.CurrentPrice,
			DiscountPercent: pricing.LineDiscountPercent(l.OriginalPrice, l.CurrentPrice),
			LineTotal:       l.CurrentPrice * float64(l.Quantity),
		}
	}

	now := s.now()
	estimate := Estimate{
		EstimateNumber: s.nextNumber(ctx, now),
		CustomerID:     req.CustomerID,
		BranchID:       branch.ID,
		Branch:         branch.Snapshot(),
		BusinessType:   req.BusinessType,
		Items:          items,
		Totals:         basket.Totals(req.BusinessType),
		Status:         StatusActive,
		ShareToken:     shared.NewShareToken(),
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, err := s.repo.Create(ctx, estimate)
	if err != nil {
		return View{}, fmt.Errorf("store estimate: %w", err)
	}
	return s.enrich(ctx, stored), nil
}

// Get returns the enriched read shape.
func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.enrich(ctx, e), nil
}

// Find returns the raw stored estimate. Used by the order conversion
// path, which needs items without enrichment.
func (s *Service) Find(ctx context.Context, id int64) (Estimate, error) {
	return s.repo.Get(ctx, id)
}

// GetByShareToken serves the public share link.
func (s *Service) GetByShareToken(ctx context.Context, token string) (View, error) {
	e, err := s.repo.GetByShareToken(ctx, token)
	if err != nil {
		return View{}, err
	}
	return s.enrich(ctx, e), nil
}

// List returns filtered, enriched estimates with a total count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]View, int, error) {
	list, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	views := make([]View, len(list))
	for i, e := range list {
		views[i] = s.enrich(ctx, e)
	}
	return views, total, nil
}

// UpdateStatus overwrites the status directly. Guards live only on the
// conversion path.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (View, error) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return View{}, err
	}
	return s.Get(ctx, id)
}

// MarkConverted flips an estimate to converted. Already-converted and
// expired estimates are rejected; nothing else changes here.
func (s *Service) MarkConverted(ctx context.Context, id int64) error {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == StatusConverted {
		return ErrConverted
	}
	if e.Status == StatusExpired || e.ExpiredAt(s.now()) {
		return ErrExpired
	}
	return s.repo.UpdateStatus(ctx, id, StatusConverted)
}

func (s *Service) resolveItem(ctx context.Context, ri CreateEstimateItem, bt pricing.BusinessType) (cart.ProductRef, float64, error) {
	if ri.ProductID != nil {
		product, err := s.catalog.GetProduct(ctx, *ri.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return cart.ProductRef{}, 0, fmt.Errorf("%w: product %d not found", httpx.ErrValidation, *ri.ProductID)
			}
			return cart.ProductRef{}, 0, fmt.Errorf("resolve product %d: %w", *ri.ProductID, err)
		}
		return cart.NewCatalogRef(product.ID, product.Name, product.Category), pricing.UnitPrice(product, bt), nil
	}
	if strings.TrimSpace(ri.Name) == "" {
		return cart.ProductRef{}, 0, fmt.Errorf("%w: ad-hoc item requires a name", httpx.ErrValidation)
	}
	return cart.NewAdHocRef(ri.Name, ri.Category), ri.OriginalPrice, nil
}

func (s *Service) enrich(ctx context.Context, e Estimate) View {
	customer := customers.Placeholder(e.CustomerID)
	if s.customers != nil {
		if c, err := s.customers.GetOrPlaceholder(ctx, e.CustomerID); err == nil {
			customer = c
		} else {
			s.logger.Warn("estimate customer lookup failed",
				slog.Int64("customer_id", e.CustomerID), slog.Any("error", err))
		}
	}
	view := NewView(e, customer, s.now())
	view.ShareLink = shared.EstimateLink(s.baseURL, e.ShareToken)
	return view
}

// nextNumber derives EST-<seq>-<ddmmyy> from the latest estimate of the
// day. When the lookup or parse fails, a random 3-digit sequence keeps
// creation going.
func (s *Service) nextNumber(ctx context.Context, now time.Time) string {
	suffix := now.Format("020106")
	latest, err := s.repo.LatestNumberOfDay(ctx, now)
	if errors.Is(err, ErrNotFound) {
		return fmt.Sprintf("EST-1-%s", suffix)
	}
	if err != nil {
		s.logger.Warn("estimate number lookup failed", slog.Any("error", err))
		return fmt.Sprintf("EST-%d-%s", 100+rand.IntN(900), suffix)
	}
	parts := strings.Split(latest, "-")
	if len(parts) == 3 {
		if n, perr := strconv.Atoi(parts[1]); perr == nil {
			return fmt.Sprintf("EST-%d-%s", n+1, suffix)
		}
	}
	return fmt.Sprintf("EST-%d-%s", 100+rand.IntN(900), suffix)
}
