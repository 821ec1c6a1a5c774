package service

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

type statsAggregator interface {
	ComputeGlobal(ctx context.Context, courseIDs []int) (*models.GlobalStats, error)
	ComputePerCourse(ctx context.Context, courseIDs []int) ([]models.CourseStats, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (time.Time, error)
	Set(ctx context.Context, key string, value interface{}) (time.Time, error)
	LastUpdated(ctx context.Context, key string) (*time.Time, error)
}

const (
	globalCacheKey  = "global"
	coursesCacheKey = "courses"
)

// StatsService serves statistics cache-first: a cached document is returned
// regardless of age, and only a miss triggers the expensive walk over the
// remote API. Freshness is the operator's call via the refresh endpoint.
type StatsService struct {
	aggregator statsAggregator
	cache      statsCache
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(aggregator statsAggregator, cache statsCache, metrics *MetricsService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{aggregator: aggregator, cache: cache, metrics: metrics, logger: logger}
}

// cacheKey derives the cache key for a base document and an optional course
// filter. Filtered requests get their own entries, with ids sorted
// numerically so equivalent filters share one key.
func cacheKey(base string, courseIDs []int) string {
	if len(courseIDs) == 0 {
		return base
	}
	ids := make([]int, len(courseIDs))
	copy(ids, courseIDs)
	sort.Ints(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return base + ":" + strings.Join(parts, ",")
}

// GetGlobal returns the global statistics document, from cache when present,
// computed and cached otherwise.
func (s *StatsService) GetGlobal(ctx context.Context, courseIDs []int) (*models.GlobalStatsResponse, error) {
	key := cacheKey(globalCacheKey, courseIDs)

	var cached models.GlobalStats
	ts, err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		s.metrics.RecordCacheOperation(true)
		s.logger.Debug("global stats served from cache", zap.String("key", key))
		return &models.GlobalStatsResponse{GlobalStats: cached, CachedAt: ts}, nil
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		return nil, appErrors.Wrap(err, "CACHE_ERROR", http.StatusInternalServerError, "Error fetching global statistics.")
	}
	s.metrics.RecordCacheOperation(false)

	stats, err := s.aggregator.ComputeGlobal(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, "AGGREGATION_ERROR", http.StatusInternalServerError, "Error fetching global statistics.")
	}

	ts, err = s.cache.Set(ctx, key, stats)
	if err != nil {
		return nil, appErrors.Wrap(err, "CACHE_ERROR", http.StatusInternalServerError, "Error fetching global statistics.")
	}

	return &models.GlobalStatsResponse{GlobalStats: *stats, CachedAt: ts}, nil
}

// GetPerCourse returns the per-course statistics list, from cache when
// present, computed and cached otherwise.
func (s *StatsService) GetPerCourse(ctx context.Context, courseIDs []int) ([]models.CourseStats, error) {
	key := cacheKey(coursesCacheKey, courseIDs)

	var cached []models.CourseStats
	if _, err := s.cache.Get(ctx, key, &cached); err == nil {
		s.metrics.RecordCacheOperation(true)
		s.logger.Debug("course stats served from cache", zap.String("key", key))
		return cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		return nil, appErrors.Wrap(err, "CACHE_ERROR", http.StatusInternalServerError, "Error fetching course statistics.")
	}
	s.metrics.RecordCacheOperation(false)

	stats, err := s.aggregator.ComputePerCourse(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, "AGGREGATION_ERROR", http.StatusInternalServerError, "Error fetching course statistics.")
	}

	if _, err := s.cache.Set(ctx, key, stats); err != nil {
		return nil, appErrors.Wrap(err, "CACHE_ERROR", http.StatusInternalServerError, "Error fetching course statistics.")
	}

	return stats, nil
}

// LastUpdated reports when the global document was last cached; the
// timestamp is null when nothing has been cached yet.
func (s *StatsService) LastUpdated(ctx context.Context) (*models.LastUpdatedResponse, error) {
	ts, err := s.cache.LastUpdated(ctx, globalCacheKey)
	if err != nil {
		return nil, appErrors.Wrap(err, "CACHE_ERROR", http.StatusInternalServerError, "Error fetching last update time.")
	}
	return &models.LastUpdatedResponse{LastUpdated: ts}, nil
}

// RefreshAll recomputes both unfiltered documents from the remote API and
// overwrites their cache entries, regardless of what is currently cached.
func (s *StatsService) RefreshAll(ctx context.Context) (*models.RefreshResponse, error) {
	start := time.Now()
	s.logger.Info("manual refresh started")

	global, err := s.aggregator.ComputeGlobal(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, "AGGREGATION_ERROR", http.StatusInternalServerError, "Error refreshing statistics.")
	}
	perCourse, err := s.aggregator.ComputePerCourse(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, "AGGREGATION_ERROR", http.StatusInternalServerError, "Error refreshing statistics.")
	}

	globalTS, err := s.cache.Set(ctx, globalCacheKey, global)
	if err != nil {
		return nil, appErrors.Wrap(err, "CACHE_ERROR", http.StatusInternalServerError, "Error refreshing statistics.")
	}
	if _, err := s.cache.Set(ctx, coursesCacheKey, perCourse); err != nil {
		return nil, appErrors.Wrap(err, "CACHE_ERROR", http.StatusInternalServerError, "Error refreshing statistics.")
	}

	s.logger.Info("manual refresh finished",
		zap.Int("courses", len(perCourse)),
		zap.Int("total", global.Total),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &models.RefreshResponse{
		Global:    models.GlobalStatsResponse{GlobalStats: *global, CachedAt: globalTS},
		Courses:   perCourse,
		UpdatedAt: globalTS,
	}, nil
}
