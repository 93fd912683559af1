package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"golang.org/x/sync/singleflight"
)

// AnalyticsService builds monthly reports. Reports are cached per user and
// month when a cache is supplied; TransactionsChanged drops a user's entries.
type AnalyticsService struct {
	reader     storage.AnalyticsReader
	thresholds core.Thresholds
	cache      cache.Cache[core.AnalyticsReport]
	group      singleflight.Group
	logger     *log.Logger
	now        func() time.Time

	mu          sync.Mutex
	generations map[int64]uint64
}

var _ ChangeListener = (*AnalyticsService)(nil)

// NewAnalyticsService creates the service. A nil reportCache disables caching.
func NewAnalyticsService(reader storage.AnalyticsReader, thresholds core.Thresholds, reportCache cache.Cache[core.AnalyticsReport], logger *log.Logger) *AnalyticsService {
	return &AnalyticsService{
		reader:      reader,
		thresholds:  thresholds,
		cache:       reportCache,
		logger:      orDefault(logger).WithComponent(log.ComponentAnalytics),
		now:         time.Now,
		generations: make(map[int64]uint64),
	}
}

func (s *AnalyticsService) CurrentMonth() core.Month {
	return core.MonthOf(s.now())
}

// Compute returns the report of userID for month.
func (s *AnalyticsService) Compute(ctx context.Context, userID int64, month core.Month) (core.AnalyticsReport, error) {
	if s.cache == nil {
		return s.compute(ctx, userID, month)
	}

	key := cacheKey(userID, month)
	if report, ok := s.cache.Get(key); ok {
		return report, nil
	}

	// Callers arriving after a change never join a flight that read older data.
	gen := s.generation(userID)
	flight := key + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := s.group.Do(flight, func() (interface{}, error) {
		report, err := s.compute(ctx, userID, month)
		if err != nil {
			return nil, err
		}
		// The check and the write happen under mu so an invalidation cannot
		// land between them.
		s.mu.Lock()
		if s.generations[userID] == gen {
			s.cache.Set(key, report)
		}
		s.mu.Unlock()
		return report, nil
	})
	if err != nil {
		return core.AnalyticsReport{}, err
	}
	return v.(core.AnalyticsReport), nil
}

func (s *AnalyticsService) compute(ctx context.Context, userID int64, month core.Month) (core.AnalyticsReport, error) {
	start := time.Now()

	income, expenses, err := s.reader.MonthTotals(ctx, userID, month)
	if err != nil {
		return core.AnalyticsReport{}, fmt.Errorf("month totals: %w", err)
	}
	categories, err := s.reader.CategoryBreakdown(ctx, userID, month)
	if err != nil {
		return core.AnalyticsReport{}, fmt.Errorf("category breakdown: %w", err)
	}
	recent, err := s.reader.RecentExpenses(ctx, userID, core.RecentExpenseLimit)
	if err != nil {
		return core.AnalyticsReport{}, fmt.Errorf("recent expenses: %w", err)
	}

	summary := core.NewSummary(income, expenses)
	report := core.AnalyticsReport{
		Month:          month,
		Summary:        summary,
		Categories:     categories,
		RecentExpenses: recent,
		Insights:       core.GenerateInsights(summary, categories, s.thresholds),
	}

	s.logger.DebugContext(ctx, "Analytics computed",
		log.FieldUserID, userID,
		log.FieldMonth, month.String(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return report, nil
}

// TransactionsChanged invalidates every cached month of userID.
func (s *AnalyticsService) TransactionsChanged(_ context.Context, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID]++
	if s.cache != nil {
		s.cache.DeletePrefix(strconv.FormatInt(userID, 10) + ":")
	}
}

func (s *AnalyticsService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

func cacheKey(userID int64, month core.Month) string {
	return strconv.FormatInt(userID, 10) + ":" + month.String()
}
