package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/terrapos/terrapos/internal/advance"
	"github.com/terrapos/terrapos/internal/cart"
	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/estimates"
	"github.com/terrapos/terrapos/internal/notify"
	"github.com/terrapos/terrapos/internal/platform/httpx"
	"github.com/terrapos/terrapos/internal/pricing"
	"github.com/terrapos/terrapos/internal/shared"
)

// CatalogPort is the slice of the catalog service orders depend on.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	GetBranch(ctx context.Context, id int64) (catalog.Branch, error)
	DecrementStock(ctx context.Context, productID int64, qty int) error
	RestoreStock(ctx context.Context, productID int64, qty int) error
}

// CustomerPort exposes customer reads and the purchase aggregate update.
type CustomerPort interface {
	GetOrPlaceholder(ctx context.Context, id int64) (customers.Customer, error)
	RecordPurchase(ctx context.Context, id int64, p customers.Purchase) error
}

// LedgerPort appends to the advance payment ledger.
type LedgerPort interface {
	AppendPayment(ctx context.Context, rec advance.PaymentRecord) (advance.PaymentRecord, error)
	AppendCompletion(ctx context.Context, rec advance.CompletionRecord) (advance.CompletionRecord, error)
	MarkRefunded(ctx context.Context, orderID int64) error
}

// InvoicePort issues and cancels invoice documents for an order.
type InvoicePort interface {
	IssueBill(ctx context.Context, o Order) error
	IssueCompletion(ctx context.Context, o Order) error
	CancelForOrder(ctx context.Context, orderID int64) error
}

// EstimatePort is the slice of the estimate service used for
// conversion.
type EstimatePort interface {
	Find(ctx context.Context, id int64) (estimates.Estimate, error)
	MarkConverted(ctx context.Context, id int64) error
}

// Service coordinates the order lifecycle and its side effects.
type Service struct {
	repo      Repository
	catalog   CatalogPort
	customers CustomerPort
	ledger    LedgerPort
	invoices  InvoicePort
	estimates EstimatePort
	notifier  notify.Dispatcher
	baseURL   string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the order service. Any port except the repository
// and catalog may be nil; the corresponding side effect is skipped.
func NewService(
	repo Repository,
	catalogPort CatalogPort,
	customerPort CustomerPort,
	ledger LedgerPort,
	invoices InvoicePort,
	estimatePort EstimatePort,
	notifier notify.Dispatcher,
	baseURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalogPort,
		customers: customerPort,
		ledger:    ledger,
		invoices:  invoices,
		estimates: estimatePort,
		notifier:  notifier,
		baseURL:   baseURL,
		logger:    logger,
		now:       time.Now,
	}
}

// Create finalizes a sale. Totals are recomputed from the items; the
// advance amount, when advance billing is on, must satisfy
// 0 < amount <= finalTotal. Side effects run after the order is stored
// and never roll it back.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if !req.BusinessType.Valid() {
		return Order{}, fmt.Errorf("%w: business type must be retail or wholesale", httpx.ErrValidation)
	}
	if len(req.Items) == 0 {
		return Order{}, fmt.Errorf("%w: at least one item is required", httpx.ErrValidation)
	}

	branch, err := s.catalog.GetBranch(ctx, req.BranchID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Order{}, fmt.Errorf("%w: branch %d not found", httpx.ErrValidation, req.BranchID)
		}
		return Order{}, fmt.Errorf("resolve branch: %w", err)
	}

	items, err := s.resolveItems(ctx, req.Items, req.BusinessType)
	if err != nil {
		return Order{}, err
	}

	return s.create(ctx, createParams{
		customerID:       req.CustomerID,
		branch:           branch,
		businessType:     req.BusinessType,
		items:            items,
		isAdvanceBilling: req.IsAdvanceBilling,
		advanceAmount:    req.AdvanceAmount,
		paymentMethod:    req.PaymentMethod,
		bankDetails:      req.BankDetails,
		notes:            req.Notes,
	})
}

// CreateOrderFromEstimate converts an estimate into an order. The
// estimate is marked converted first; the two steps are deliberately
// separate writes, so a failed order creation leaves the estimate
// converted rather than silently rolling it back.
func (s *Service) CreateOrderFromEstimate(ctx context.Context, estimateID int64, req ConvertEstimateRequest) (Order, error) {
	if s.estimates == nil {
		return Order{}, fmt.Errorf("estimate conversion is not configured")
	}
	est, err := s.estimates.Find(ctx, estimateID)
	if err != nil {
		return Order{}, fmt.Errorf("load estimate: %w", err)
	}
	if err := s.estimates.MarkConverted(ctx, estimateID); err != nil {
		return Order{}, fmt.Errorf("mark estimate converted: %w", err)
	}

	branch, err := s.catalog.GetBranch(ctx, est.BranchID)
	if err != nil {
		return Order{}, fmt.Errorf("resolve branch: %w", err)
	}

	items := make([]Item, len(est.Items))
	for i, it := range est.Items {
		items[i] = Item{
			Product:         it.Product,
			Quantity:        it.Quantity,
			OriginalPrice:   it.OriginalPrice,
			CurrentPrice:    it.CurrentPrice,
			DiscountPercent: pricing.LineDiscountPercent(it.OriginalPrice, it.CurrentPrice),
			LineTotal:       it.CurrentPrice * float64(it.Quantity),
		}
	}

	return s.create(ctx, createParams{
		customerID:       est.CustomerID,
		branch:           branch,
		businessType:     est.BusinessType,
		items:            items,
		isAdvanceBilling: req.IsAdvanceBilling,
		advanceAmount:    req.AdvanceAmount,
		paymentMethod:    req.PaymentMethod,
		bankDetails:      req.BankDetails,
		notes:            est.Notes,
		estimateID:       &est.ID,
	})
}

type createParams struct {
	customerID       int64
	branch           catalog.Branch
	businessType     pricing.BusinessType
	items            []Item
	isAdvanceBilling bool
	advanceAmount    float64
	paymentMethod    string
	bankDetails      string
	notes            string
	estimateID       *int64
}

func (s *Service) create(ctx context.Context, p createParams) (Order, error) {
	totals := totalsFor(p.items, p.businessType)

	advanceAmount := 0.0
	remaining := 0.0
	paymentStatus := PaymentComplete
	if p.isAdvanceBilling {
		if p.advanceAmount <= 0 || p.advanceAmount > totals.FinalTotal {
			return Order{}, ErrInvalidAdvance
		}
		advanceAmount = p.advanceAmount
		remaining = totals.FinalTotal - advanceAmount
		if remaining > 0 {
			paymentStatus = PaymentPartial
		}
	}

	now := s.now()
	order := Order{
		CustomerID:       p.customerID,
		BranchID:         p.branch.ID,
		Branch:           p.branch.Snapshot(),
		BusinessType:     p.businessType,
		Items:            p.items,
		Totals:           totals,
		Status:           StatusCompleted,
		PaymentStatus:    paymentStatus,
		IsAdvanceBilling: p.isAdvanceBilling && remaining > 0,
		AdvanceAmount:    advanceAmount,
		RemainingAmount:  remaining,
		PaymentMethod:    p.paymentMethod,
		BankDetails:      p.bankDetails,
		Notes:            p.notes,
		EstimateID:       p.estimateID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	stored, err := s.storeWithRetry(ctx, order, p.branch.Name)
	if err != nil {
		return Order{}, err
	}
	stored.ShareLink = shared.InvoiceLink(s.baseURL, stored.BillToken)

	s.runPostCreate(ctx, &stored)
	return stored, nil
}

// storeWithRetry inserts the order, regenerating the number and tokens
// once if the store reports a unique violation. Collisions on the
// timestamp-derived number are possible when two terminals bill in the
// same nanosecond window.
func (s *Service) storeWithRetry(ctx context.Context, order Order, branchName string) (Order, error) {
	for attempt := 0; attempt < 2; attempt++ {
		billToken, err := shared.NewBillToken()
		if err != nil {
			return Order{}, err
		}
		order.OrderNumber = newOrderNumber(branchName, s.now())
		order.BillToken = billToken
		order.ShareToken = shared.NewShareToken()

		stored, err := s.repo.Create(ctx, order)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, ErrDuplicate) || attempt == 1 {
			return Order{}, fmt.Errorf("store order: %w", err)
		}
		s.logger.Warn("order number collision, regenerating",
			slog.String("order_number", order.OrderNumber))
	}
	return Order{}, ErrDuplicate
}

// CompleteAdvancePayment records one payment against an advance order.
// The returned flag reports whether this payment settled the order.
func (s *Service) CompleteAdvancePayment(ctx context.Context, orderID int64, req CompletePaymentRequest) (Order, bool, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, false, err
	}
	if !order.IsAdvanceBilling {
		return Order{}, false, ErrNotAdvance
	}
	if order.RemainingAmount <= 0 {
		return Order{}, false, ErrNothingRemaining
	}
	if req.Amount <= 0 {
		return Order{}, false, ErrInvalidAmount
	}
	if req.Amount > order.RemainingAmount {
		return Order{}, false, ErrExceedsRemaining
	}

	now := s.now()
	balanceBefore := order.RemainingAmount
	balanceAfter := balanceBefore - req.Amount
	completing := balanceAfter <= 0

	if s.ledger != nil {
		_, err := s.ledger.AppendPayment(ctx, advance.PaymentRecord{
			Kind:          advance.KindPayment,
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			Branch:        order.Branch.Name,
			BusinessType:  order.BusinessType,
			Amount:        req.Amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			Method:        req.Method,
			BankDetails:   req.BankDetails,
			Notes:         req.Notes,
			IsCompleting:  completing,
			CreatedAt:     now,
		})
		if err != nil {
			return Order{}, false, fmt.Errorf("append payment record: %w", err)
		}
	}

	updates := map[string]any{
		"advance_amount":   order.AdvanceAmount + req.Amount,
		"remaining_amount": balanceAfter,
	}
	if completing {
		updates["payment_status"] = PaymentComplete
		updates["is_advance_billing"] = false
		updates["status"] = StatusCompleted
		updates["completed_at"] = now
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return Order{}, false, fmt.Errorf("update order: %w", err)
	}

	order.AdvanceAmount += req.Amount
	order.RemainingAmount = balanceAfter
	if completing {
		order.PaymentStatus = PaymentComplete
		order.IsAdvanceBilling = false
		order.Status = StatusCompleted
		order.CompletedAt = &now
		s.runPostCompletion(ctx, &order, req)
	}
	order.ShareLink = shared.InvoiceLink(s.baseURL, order.BillToken)
	return order, completing, nil
}

// Cancel marks an order cancelled and reverses its stock movements.
// Only an already-cancelled order is rejected.
func (s *Service) Cancel(ctx context.Context, orderID int64, req CancelOrderRequest) (Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status == StatusCancelled {
		return Order{}, ErrAlreadyCancelled
	}

	now := s.now()
	updates := map[string]any{
		"status":         StatusCancelled,
		"cancel_reason":  req.Reason,
		"refund_advance": req.RefundAdvance,
		"cancelled_at":   now,
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return Order{}, fmt.Errorf("cancel order: %w", err)
	}

	order.Status = StatusCancelled
	order.CancelReason = req.Reason
	order.RefundAdvance = req.RefundAdvance
	order.CancelledAt = &now

	s.runPostCancel(ctx, &order)
	return order, nil
}

// Get returns one order by id.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	order.ShareLink = shared.InvoiceLink(s.baseURL, order.BillToken)
	return order, nil
}

// GetByNumber returns one order by its human-facing number.
func (s *Service) GetByNumber(ctx context.Context, number string) (Order, error) {
	order, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return Order{}, err
	}
	order.ShareLink = shared.InvoiceLink(s.baseURL, order.BillToken)
	return order, nil
}

// GetByBillToken returns the order behind a short public bill token.
func (s *Service) GetByBillToken(ctx context.Context, token string) (Order, error) {
	order, err := s.repo.GetByBillToken(ctx, token)
	if err != nil {
		return Order{}, err
	}
	order.ShareLink = shared.InvoiceLink(s.baseURL, order.BillToken)
	return order, nil
}

// List returns filtered orders with a total count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Order, int, error) {
	return s.repo.List(ctx, filters)
}

// resolveItems builds stored items from the request. Catalog items take
// their name, category and original price from the catalog; ad-hoc
// items carry what the request supplied.
func (s *Service) resolveItems(ctx context.Context, reqItems []CreateOrderItem, bt pricing.BusinessType) ([]Item, error) {
	items := make([]Item, 0, len(reqItems))
	for _, ri := range reqItems {
		var ref cart.ProductRef
		original := ri.OriginalPrice
		if ri.ProductID != nil {
			product, err := s.catalog.GetProduct(ctx, *ri.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return nil, fmt.Errorf("%w: product %d not found", httpx.ErrValidation, *ri.ProductID)
				}
				return nil, fmt.Errorf("resolve product %d: %w", *ri.ProductID, err)
			}
			ref = cart.NewCatalogRef(product.ID, product.Name, product.Category)
			original = pricing.UnitPrice(product, bt)
		} else {
			if strings.TrimSpace(ri.Name) == "" {
				return nil, fmt.Errorf("%w: ad-hoc item requires a name", httpx.ErrValidation)
			}
			ref = cart.NewAdHocRef(ri.Name, ri.Category)
		}

		current := original
		if ri.CurrentPrice != nil {
			current = *ri.CurrentPrice
		}
		items = append(items, Item{
			Product:         ref,
			Quantity:        ri.Quantity,
			OriginalPrice:   original,
			CurrentPrice:    current,
			DiscountPercent: pricing.LineDiscountPercent(original, current),
			LineTotal:       current * float64(ri.Quantity),
		})
	}
	return items, nil
}

func totalsFor(items []Item, bt pricing.BusinessType) pricing.Totals {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{
			OriginalPrice: it.OriginalPrice,
			CurrentPrice:  it.CurrentPrice,
			Quantity:      it.Quantity,
		}
	}
	return pricing.Calculate(lines, bt)
}

// newOrderNumber derives the order number from the branch name and the
// wall clock: a 1-2 letter branch prefix plus the last 8 digits of the
// nanosecond timestamp. The format is relied on by printed receipts.
func newOrderNumber(branchName string, now time.Time) string {
	nano := fmt.Sprintf("%d", now.UnixNano())
	return branchPrefix(branchName) + nano[len(nano)-8:]
}

func branchPrefix(name string) string {
	var b strings.Builder
	for i, word := range strings.Fields(name) {
		if i == 2 {
			break
		}
		for _, r := range word {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	if b.Len() == 0 {
		return "BR"
	}
	return b.String()
}
