package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/types"
	"go.uber.org/zap"
)

// AccountCounter counts local accounts.
type AccountCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ResultAggregator exposes the aggregate queries of a result table.
type ResultAggregator interface {
	Count(ctx context.Context) (int64, error)
	CountByRiskLabel(ctx context.Context, label string) (int64, error)
	AverageScore(ctx context.Context) (float64, error)
}

// StatsCache holds a recently computed AdminStats.
type StatsCache interface {
	Get(ctx context.Context) (types.AdminStats, bool, error)
	Set(ctx context.Context, stats types.AdminStats) error
	Invalidate(ctx context.Context) error
}

// StatsInvalidator is notified when a write changes the statistics.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// SnapshotStore persists snapshot objects.
type SnapshotStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// StatsService aggregates admin dashboard statistics.
type StatsService struct {
	accounts AccountCounter
	burnout  ResultAggregator
	fatigue  ResultAggregator
	cache    StatsCache
	store    SnapshotStore
	log      *zap.Logger
	now      func() time.Time
}

// NewStatsService builds the aggregator. cache and store may be nil.
func NewStatsService(accounts AccountCounter, burnout, fatigue ResultAggregator, cache StatsCache, store SnapshotStore, log *zap.Logger) *StatsService {
	return &StatsService{
		accounts: accounts,
		burnout:  burnout,
		fatigue:  fatigue,
		cache:    cache,
		store:    store,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}

// Stats returns cached statistics when available, computing and caching
// them otherwise. Cache failures are logged and ignored.
func (s *StatsService) Stats(ctx context.Context) (types.AdminStats, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("stats cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return types.AdminStats{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.log.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Invalidate drops cached statistics. Failures are logged; the entry then
// expires with its TTL.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// Snapshot computes fresh statistics and stores them as a JSON object keyed
// by the UTC time they were taken.
func (s *StatsService) Snapshot(ctx context.Context) (types.SnapshotRef, error) {
	if s.store == nil {
		return types.SnapshotRef{}, ErrStorageUnavailable
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return types.SnapshotRef{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.log.Warn("stats cache write failed", zap.Error(err))
		}
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return types.SnapshotRef{}, fmt.Errorf("encode stats: %w", err)
	}

	takenAt := s.now().UTC()
	key := "stats/" + takenAt.Format("20060102T150405.000000000Z") + ".json"
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return types.SnapshotRef{}, fmt.Errorf("store snapshot: %w", err)
	}
	return types.SnapshotRef{Key: key, Bucket: s.store.Bucket(), TakenAt: takenAt}, nil
}

func (s *StatsService) compute(ctx context.Context) (types.AdminStats, error) {
	var (
		stats types.AdminStats
		err   error
	)

	if stats.TotalUsers, err = s.accounts.Count(ctx); err != nil {
		return types.AdminStats{}, err
	}

	if stats.BurnoutTotal, err = s.burnout.Count(ctx); err != nil {
		return types.AdminStats{}, err
	}
	if stats.BurnoutLow, err = s.burnout.CountByRiskLabel(ctx, types.RiskLow); err != nil {
		return types.AdminStats{}, err
	}
	if stats.BurnoutMedium, err = s.burnout.CountByRiskLabel(ctx, types.RiskMedium); err != nil {
		return types.AdminStats{}, err
	}
	if stats.BurnoutHigh, err = s.burnout.CountByRiskLabel(ctx, types.RiskHigh); err != nil {
		return types.AdminStats{}, err
	}
	if stats.AvgBurnoutScore, err = s.burnout.AverageScore(ctx); err != nil {
		return types.AdminStats{}, err
	}

	// Fatigue labels share the burnout scale: low is "alert", medium is
	// "non vigilant", high is "tired".
	if stats.FatigueTotal, err = s.fatigue.Count(ctx); err != nil {
		return types.AdminStats{}, err
	}
	if stats.FatigueAlert, err = s.fatigue.CountByRiskLabel(ctx, types.RiskLow); err != nil {
		return types.AdminStats{}, err
	}
	if stats.FatigueNonVigilant, err = s.fatigue.CountByRiskLabel(ctx, types.RiskMedium); err != nil {
		return types.AdminStats{}, err
	}
	if stats.FatigueTired, err = s.fatigue.CountByRiskLabel(ctx, types.RiskHigh); err != nil {
		return types.AdminStats{}, err
	}
	if stats.AvgFatigueScore, err = s.fatigue.AverageScore(ctx); err != nil {
		return types.AdminStats{}, err
	}

	return stats, nil
}
