package advance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Summary is the derived analytics view over advance orders. It is
// always recomputable from the order set and the ledger.
type Summary struct {
	PendingCount     int            `json:"pending_count"`
	CompletedCount   int            `json:"completed_count"`
	OutstandingTotal float64        `json:"outstanding_total"`
	CollectedTotal   float64        `json:"collected_total"`
	OverdueCount     int            `json:"overdue_count"`
	OverdueOrders    []OverdueOrder `json:"overdue_orders"`
	ByBranch         []GroupStat    `json:"by_branch"`
	ByBusinessType   []GroupStat    `json:"by_business_type"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// OverdueOrder is a pending advance past its due date.
type OverdueOrder struct {
	PendingOrder
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

const (
	summaryTTL      = 10 * time.Minute
	versionKey      = "advance:analytics:ver"
	summaryKeyShape = "advance:analytics:summary:v%d"
)

// Cache stores the computed summary in Redis under a versioned key.
// Writers bump the version; stale entries fall out via TTL instead of
// explicit deletes.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewCache builds the analytics cache.
func NewCache(rdb *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

// version defaults to zero when the key is absent so the very first
// Bump already moves readers to a fresh key.
func (c *Cache) version(ctx context.Context) int64 {
	v, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

// Bump invalidates the cached summary by moving to a fresh key.
func (c *Cache) Bump(ctx context.Context) {
	if err := c.rdb.Incr(ctx, versionKey).Err(); err != nil {
		c.logger.Warn("analytics cache bump failed", slog.Any("error", err))
	}
}

// GetSummary returns the cached summary when present and decodable.
func (c *Cache) GetSummary(ctx context.Context) (Summary, bool) {
	key := fmt.Sprintf(summaryKeyShape, c.version(ctx))
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return Summary{}, false
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.Warn("analytics cache decode failed", slog.Any("error", err))
		return Summary{}, false
	}
	return s, true
}

// SetSummary stores the summary under the current version.
func (c *Cache) SetSummary(ctx context.Context, s Summary) {
	raw, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("analytics cache encode failed", slog.Any("error", err))
		return
	}
	key := fmt.Sprintf(summaryKeyShape, c.version(ctx))
	if err := c.rdb.Set(ctx, key, raw, summaryTTL).Err(); err != nil {
		c.logger.Warn("analytics cache store failed", slog.Any("error", err))
	}
}

// Analytics computes the advance summary, serving from cache when the
// data has not changed since the last computation.
type Analytics struct {
	repo   AnalyticsRepository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewAnalytics wires the analytics service. cache may be nil; every
// request then recomputes.
func NewAnalytics(repo AnalyticsRepository, cache *Cache, logger *slog.Logger) *Analytics {
	return &Analytics{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Summary returns the current analytics view.
func (a *Analytics) Summary(ctx context.Context) (Summary, error) {
	if a.cache != nil {
		if cached, ok := a.cache.GetSummary(ctx); ok {
			return cached, nil
		}
	}

	summary, err := a.compute(ctx)
	if err != nil {
		return Summary{}, err
	}
	if a.cache != nil {
		a.cache.SetSummary(ctx, summary)
	}
	return summary, nil
}

func (a *Analytics) compute(ctx context.Context) (Summary, error) {
	now := a.now()

	pending, err := a.repo.PendingOrders(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("pending orders: %w", err)
	}
	completedCount, collected, err := a.repo.CollectedTotals(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("collected totals: %w", err)
	}
	byBranch, byBusinessType, err := a.repo.GroupStats(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("group stats: %w", err)
	}

	summary := Summary{
		PendingCount:   len(pending),
		CompletedCount: completedCount,
		CollectedTotal: collected,
		ByBranch:       byBranch,
		ByBusinessType: byBusinessType,
		GeneratedAt:    now,
	}
	for _, p := range pending {
		summary.OutstandingTotal += p.RemainingAmount
		due := DueDateFor(p.CreatedAt, p.BusinessType)
		if now.After(due) {
			summary.OverdueOrders = append(summary.OverdueOrders, OverdueOrder{
				PendingOrder: p,
				DueDate:      due,
				DaysOverdue:  int(now.Sub(due).Hours() / 24),
			})
		}
	}
	summary.OverdueCount = len(summary.OverdueOrders)
	return summary, nil
}

// Overdue returns only the overdue slice, for the reminder job.
func (a *Analytics) Overdue(ctx context.Context) ([]OverdueOrder, error) {
	summary, err := a.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return summary.OverdueOrders, nil
}
