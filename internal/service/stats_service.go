package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutorbid/tutorbid-api/internal/models"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

type bookingStatsReader interface {
	CountByStatus(ctx context.Context, instructorID string, status models.RequestStatus) (int, error)
	CountPaid(ctx context.Context, instructorID string) (int, error)
	SumPaidEarnings(ctx context.Context, instructorID string) (int64, error)
	PendingBidAggregate(ctx context.Context, instructorID string) (int, int64, error)
	CountUpcomingAccepted(ctx context.Context, instructorID string, now time.Time) (int, error)
	PopularStartHours(ctx context.Context, instructorID string, limit int) ([]models.PopularTimeSlot, error)
}

type windowLister interface {
	ListByInstructor(ctx context.Context, instructorID string) ([]models.AvailabilityWindow, error)
}

type windowSlotLister interface {
	ListByWindow(ctx context.Context, windowID string) ([]models.TimeSlot, error)
}

// StatsService computes the read-only projection over windows, slots and
// requests. Everything is recomputed on read and cached briefly; mutating
// services invalidate the cache.
type StatsService struct {
	requests bookingStatsReader
	windows  windowLister
	slots    windowSlotLister
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService builds the aggregator.
func NewStatsService(requests bookingStatsReader, windows windowLister, slots windowSlotLister, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &StatsService{
		requests: requests,
		windows:  windows,
		slots:    slots,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Overview computes the instructor's session statistics.
func (s *StatsService) Overview(ctx context.Context, instructorID string) (*models.SessionStats, error) {
	cacheKey := fmt.Sprintf("stats:%s:overview", instructorID)
	if s.cache != nil {
		var cached models.SessionStats
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	now := s.now().UTC()

	pendingCount, pendingSum, err := s.requests.PendingBidAggregate(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "aggregate pending bids")
	}
	earnings, err := s.requests.SumPaidEarnings(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sum earnings")
	}
	upcoming, err := s.requests.CountUpcomingAccepted(ctx, instructorID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count upcoming sessions")
	}
	accepted, err := s.requests.CountByStatus(ctx, instructorID, models.RequestStatusAccepted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count accepted requests")
	}
	paid, err := s.requests.CountPaid(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count paid requests")
	}
	popular, err := s.requests.PopularStartHours(ctx, instructorID, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list popular hours")
	}

	stats := &models.SessionStats{
		PendingRequests:  pendingCount,
		TotalEarnings:    earnings,
		UpcomingSessions: upcoming,
		PopularTimeSlots: popular,
	}
	if pendingCount > 0 {
		stats.AverageBid = float64(pendingSum) / float64(pendingCount)
	}
	if accepted > 0 {
		stats.CompletionRate = float64(paid) / float64(accepted) * 100
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Utilization reports the booked share of each window's generated slots.
// A window with no slots reports zero, never a division error.
func (s *StatsService) Utilization(ctx context.Context, instructorID string) ([]models.WindowUtilization, error) {
	cacheKey := fmt.Sprintf("stats:%s:utilization", instructorID)
	if s.cache != nil {
		var cached []models.WindowUtilization
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return cached, nil
		}
	}

	windows, err := s.windows.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list windows")
	}

	now := s.now().UTC()
	utilizations := make([]models.WindowUtilization, 0, len(windows))
	for _, window := range windows {
		slots, err := s.slots.ListByWindow(ctx, window.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list window slots")
		}

		booked := 0
		for i := range slots {
			if DeriveStatus(&slots[i], now) == models.SlotStatusBooked {
				booked++
			}
		}
		utilization := models.WindowUtilization{
			WindowID:    window.ID,
			TotalSlots:  len(slots),
			BookedSlots: booked,
		}
		if len(slots) > 0 {
			utilization.UtilizationRate = float64(booked) / float64(len(slots)) * 100
		}
		utilizations = append(utilizations, utilization)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, utilizations, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return utilizations, nil
}
