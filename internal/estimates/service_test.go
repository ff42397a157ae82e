package estimates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrapos/terrapos/internal/catalog"
	"github.com/terrapos/terrapos/internal/customers"
	"github.com/terrapos/terrapos/internal/platform/httpx"
	"github.com/terrapos/terrapos/internal/pricing"
)

type fakeRepo struct {
	nextID       int64
	estimates    map[int64]Estimate
	latestNumber string
	latestErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, estimates: make(map[int64]Estimate), latestErr: ErrNotFound}
}

func (f *fakeRepo) Create(_ context.Context, e Estimate) (Estimate, error) {
	e.ID = f.nextID
	f.nextID++
	f.estimates[e.ID] = e
	return e, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Estimate, error) {
	e, ok := f.estimates[id]
	if !ok {
		return Estimate{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeRepo) GetByShareToken(_ context.Context, token string) (Estimate, error) {
	for _, e := range f.estimates {
		if e.ShareToken == token {
			return e, nil
		}
	}
	return Estimate{}, ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, _ ListFilters) ([]Estimate, int, error) {
	out := make([]Estimate, 0, len(f.estimates))
	for _, e := range f.estimates {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	e, ok := f.estimates[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	f.estimates[id] = e
	return nil
}

func (f *fakeRepo) LatestNumberOfDay(_ context.Context, _ time.Time) (string, error) {
	return f.latestNumber, f.latestErr
}

type fakeCatalog struct {
	products map[int64]catalog.Product
	branches map[int64]catalog.Branch
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetBranch(_ context.Context, id int64) (catalog.Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return catalog.Branch{}, catalog.ErrNotFound
	}
	return b, nil
}

type fakeCustomers struct {
	customers map[int64]customers.Customer
}

func (f *fakeCustomers) GetOrPlaceholder(_ context.Context, id int64) (customers.Customer, error) {
	if c, ok := f.customers[id]; ok {
		return c, nil
	}
	return customers.Placeholder(id), nil
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	catalog *fakeCatalog
}

func newFixture() *fixture {
	f := &fixture{
		repo: newFakeRepo(),
		catalog: &fakeCatalog{
			products: map[int64]catalog.Product{
				10: {ID: 10, Name: "Clay Pot", Category: "pots", Price: 100, WholesalePrice: 80},
			},
			branches: map[int64]catalog.Branch{
				1: {ID: 1, Code: "MS", Name: "Main Store"},
			},
		},
	}
	custs := &fakeCustomers{customers: map[int64]customers.Customer{
		7: {ID: 7, Name: "Asha", Phone: "9876543210"},
	}}
	f.svc = NewService(f.repo, f.catalog, custs, "https://pos.example.com", slog.Default())
	return f
}

func intPtr(v int64) *int64 { return &v }

func catalogItem(id int64, qty int) CreateEstimateItem {
	return CreateEstimateItem{ProductID: intPtr(id), Quantity: qty}
}

func TestCreateEstimate(t *testing.T) {
	f := newFixture()

	view, err := f.svc.Create(context.Background(), CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        []CreateEstimateItem{catalogItem(10, 3)},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, view.Status)
	assert.Equal(t, 300.0, view.Totals.FinalTotal)
	assert.Equal(t, "EST-1-"+time.Now().Format("020106"), view.EstimateNumber)
	assert.NotEmpty(t, view.ShareToken)
	assert.Equal(t, "https://pos.example.com/public/estimate/"+view.ShareToken, view.ShareLink)
	assert.Equal(t, "Asha", view.Customer.Name)
	assert.False(t, view.IsExpired)
	assert.Equal(t, 89, view.DaysToExpiry)
}

func TestCreateEstimateSequencesWithinDay(t *testing.T) {
	f := newFixture()
	f.repo.latestNumber = "EST-3-" + time.Now().Format("020106")
	f.repo.latestErr = nil

	view, err := f.svc.Create(context.Background(), CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        []CreateEstimateItem{catalogItem(10, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, "EST-4-"+time.Now().Format("020106"), view.EstimateNumber)
}

func TestCreateEstimateNumberFallbackOnLookupFailure(t *testing.T) {
	f := newFixture()
	f.repo.latestErr = errors.New("store offline")

	view, err := f.svc.Create(context.Background(), CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        []CreateEstimateItem{catalogItem(10, 1)},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^EST-\d{3}-\d{6}$`, view.EstimateNumber)
}

func TestCreateEstimateItemCap(t *testing.T) {
	f := newFixture()

	items := make([]CreateEstimateItem, 0, 9)
	for i := 0; i < 9; i++ {
		items = append(items, CreateEstimateItem{
			Name:          fmt.Sprintf("Handmade Piece %d", i),
			Quantity:      1,
			OriginalPrice: 50,
		})
	}

	_, err := f.svc.Create(context.Background(), CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        items,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Contains(t, err.Error(), "maximum 8 items allowed")
}

func TestCreateEstimateDuplicateLinesMergeUnderCap(t *testing.T) {
	f := newFixture()

	items := make([]CreateEstimateItem, 0, 9)
	for i := 0; i < 9; i++ {
		items = append(items, catalogItem(10, 1))
	}

	view, err := f.svc.Create(context.Background(), CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        items,
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 9, view.Items[0].Quantity)
}

func TestEstimateExpiryDerivedAtRead(t *testing.T) {
	f := newFixture()

	view, err := f.svc.Create(context.Background(), CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        []CreateEstimateItem{catalogItem(10, 1)},
	})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(91 * 24 * time.Hour) }
	expired, err := f.svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.True(t, expired.IsExpired)
	assert.Zero(t, expired.DaysToExpiry)
	assert.Equal(t, StatusActive, expired.Status)

	err = f.svc.MarkConverted(context.Background(), view.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestMarkConverted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.svc.Create(ctx, CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        []CreateEstimateItem{catalogItem(10, 1)},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkConverted(ctx, view.ID))
	converted, err := f.svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConverted, converted.Status)

	err = f.svc.MarkConverted(ctx, view.ID)
	assert.ErrorIs(t, err, ErrConverted)
}

func TestUpdateStatusOverwrites(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.svc.Create(ctx, CreateEstimateRequest{
		CustomerID:   7,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        []CreateEstimateItem{catalogItem(10, 1)},
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, view.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
}

func TestEnrichFallsBackToPlaceholderCustomer(t *testing.T) {
	f := newFixture()

	view, err := f.svc.Create(context.Background(), CreateEstimateRequest{
		CustomerID:   404,
		BranchID:     1,
		BusinessType: pricing.Retail,
		Items:        []CreateEstimateItem{catalogItem(10, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Customer Not Found", view.Customer.Name)
}
