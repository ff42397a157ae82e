package advance

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrapos/terrapos/internal/pricing"
)

type fakeAnalyticsRepo struct {
	pending     []PendingOrder
	completed   int
	collected   float64
	byBranch    []GroupStat
	byBusiness  []GroupStat
	computeHits int
}

func (f *fakeAnalyticsRepo) PendingOrders(context.Context) ([]PendingOrder, error) {
	f.computeHits++
	return f.pending, nil
}

func (f *fakeAnalyticsRepo) CollectedTotals(context.Context) (int, float64, error) {
	return f.completed, f.collected, nil
}

func (f *fakeAnalyticsRepo) GroupStats(context.Context) ([]GroupStat, []GroupStat, error) {
	return f.byBranch, f.byBusiness, nil
}

func newCacheFixture(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, slog.Default()), mr
}

func TestSummaryComputation(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &fakeAnalyticsRepo{
		pending: []PendingOrder{
			{OrderID: 1, OrderNumber: "MS00000001", BusinessType: pricing.Retail,
				RemainingAmount: 600, CreatedAt: now.Add(-10 * 24 * time.Hour)},
			{OrderID: 2, OrderNumber: "MS00000002", BusinessType: pricing.Wholesale,
				RemainingAmount: 5000, CreatedAt: now.Add(-10 * 24 * time.Hour)},
			{OrderID: 3, OrderNumber: "MS00000003", BusinessType: pricing.Retail,
				RemainingAmount: 200, CreatedAt: now.Add(-2 * 24 * time.Hour)},
		},
		completed: 4,
		collected: 12500,
		byBranch:  []GroupStat{{Key: "Main Store", Count: 3, TotalAdvance: 900, AverageAdvance: 300}},
	}

	analytics := NewAnalytics(repo, nil, slog.Default())
	analytics.now = func() time.Time { return now }

	summary, err := analytics.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.PendingCount)
	assert.Equal(t, 4, summary.CompletedCount)
	assert.Equal(t, 5800.0, summary.OutstandingTotal)
	assert.Equal(t, 12500.0, summary.CollectedTotal)

	// retail 10 days old is 3 days past the 7-day window; wholesale 10
	// days old is within its 30-day window; retail 2 days old is not due
	require.Equal(t, 1, summary.OverdueCount)
	overdue := summary.OverdueOrders[0]
	assert.Equal(t, int64(1), overdue.OrderID)
	assert.Equal(t, 3, overdue.DaysOverdue)
	assert.Equal(t, overdue.CreatedAt.Add(7*24*time.Hour), overdue.DueDate)

	require.Len(t, summary.ByBranch, 1)
	assert.Equal(t, "Main Store", summary.ByBranch[0].Key)
}

func TestSummaryServedFromCache(t *testing.T) {
	cache, _ := newCacheFixture(t)
	repo := &fakeAnalyticsRepo{completed: 1}
	analytics := NewAnalytics(repo, cache, slog.Default())

	_, err := analytics.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.computeHits)

	_, err = analytics.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.computeHits, "second read should hit the cache")
}

func TestSummaryRecomputedAfterBump(t *testing.T) {
	cache, _ := newCacheFixture(t)
	repo := &fakeAnalyticsRepo{}
	analytics := NewAnalytics(repo, cache, slog.Default())
	ctx := context.Background()

	_, err := analytics.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.computeHits)

	cache.Bump(ctx)

	_, err = analytics.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.computeHits, "version bump should invalidate the cached summary")
}

func TestSummaryCacheExpires(t *testing.T) {
	cache, mr := newCacheFixture(t)
	repo := &fakeAnalyticsRepo{}
	analytics := NewAnalytics(repo, cache, slog.Default())
	ctx := context.Background()

	_, err := analytics.Summary(ctx)
	require.NoError(t, err)

	mr.FastForward(summaryTTL + time.Minute)

	_, err = analytics.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.computeHits)
}

func TestDueDateFor(t *testing.T) {
	createdAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, createdAt.Add(7*24*time.Hour), DueDateFor(createdAt, pricing.Retail))
	assert.Equal(t, createdAt.Add(30*24*time.Hour), DueDateFor(createdAt, pricing.Wholesale))
}
