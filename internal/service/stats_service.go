package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/policy"
	"github.com/eachn05-lang/Ea-desk/internal/repository"
	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

const statsCacheKey = "eadesk:stats:tickets"

// StatsService serves the admin dashboard aggregate. The counts come
// from a single store query, optionally fronted by a short-lived cache
// that ticket mutations invalidate. Cache trouble degrades to a store
// read, never to an error.
type StatsService struct {
	tickets repository.TicketRepository
	cache   repository.CacheRepository
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStatsService constructs the service. A nil cache disables caching.
func NewStatsService(tickets repository.TicketRepository, cache repository.CacheRepository, ttl time.Duration, logger *zap.Logger) *StatsService {
	return &StatsService{tickets: tickets, cache: cache, ttl: ttl, logger: logger}
}

// Summary returns the ticket counts by status. Admin only.
func (s *StatsService) Summary(ctx context.Context, principal domain.Principal) (*domain.TicketStats, error) {
	if !policy.CanViewStats(principal) {
		return nil, util.NewForbidden()
	}

	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	s.toCache(ctx, stats)
	return stats, nil
}

// Invalidate drops the cached snapshot. Called by ticket mutations.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *StatsService) fromCache(ctx context.Context) *domain.TicketStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, statsCacheKey)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
		return nil
	}
	var stats domain.TicketStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.logger.Warn("stats cache entry unreadable", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *StatsService) toCache(ctx context.Context, stats *domain.TicketStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, string(raw), s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
}
