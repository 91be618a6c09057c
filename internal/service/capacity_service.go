package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tutorbid/tutorbid-api/internal/models"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

type capacityStore interface {
	Reserve(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// CapacityService owns slot status derivation and the capacity counters.
// It is the sole mutator of current_bookings.
type CapacityService struct {
	slots   capacityStore
	metrics *MetricsService
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*slotLock
}

// slotLock is reference-counted so idle entries can be dropped from the map
// instead of accumulating one per slot ever touched.
type slotLock struct {
	mu   sync.Mutex
	refs int
}

// NewCapacityService builds the capacity tracker.
func NewCapacityService(slots capacityStore, metrics *MetricsService, logger *zap.Logger) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{
		slots:   slots,
		metrics: metrics,
		logger:  logger,
		locks:   map[string]*slotLock{},
	}
}

// DeriveStatus computes a slot's status. Priority order matters: a blocked
// slot reports blocked even when also fully booked.
func DeriveStatus(slot *models.TimeSlot, now time.Time) models.SlotStatus {
	switch {
	case slot.IsBlocked:
		return models.SlotStatusBlocked
	case slot.CurrentBookings >= slot.MaxBookings:
		return models.SlotStatusBooked
	case !slot.StartTime.After(now):
		return models.SlotStatusPast
	default:
		return models.SlotStatusAvailable
	}
}

// AnnotateStatus stamps the derived status onto each slot in place.
func AnnotateStatus(slots []models.TimeSlot, now time.Time) {
	for i := range slots {
		slots[i].Status = DeriveStatus(&slots[i], now)
	}
}

// WithSlotLock runs fn while holding the in-process lock for a slot. The
// conditional SQL underneath keeps the capacity invariant across processes;
// the lock keeps a reserve and its lifecycle transition atomic in this one.
// A slot's entry is evicted once its last holder leaves, so the map tracks
// only slots with an accept in flight.
func (s *CapacityService) WithSlotLock(slotID string, fn func() error) error {
	s.mu.Lock()
	lock, ok := s.locks[slotID]
	if !ok {
		lock = &slotLock{}
		s.locks[slotID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	err := fn()
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, slotID)
	}
	s.mu.Unlock()
	return err
}

// Reserve claims one unit of slot capacity. A slot already at max_bookings
// yields ErrCapacityExceeded and no state change.
func (s *CapacityService) Reserve(ctx context.Context, slotID string) error {
	won, err := s.slots.Reserve(ctx, slotID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reserve slot capacity")
	}
	if !won {
		s.metrics.RecordCapacityRejection()
		s.logger.Info("capacity rejection", zap.String("slot_id", slotID))
		return appErrors.ErrCapacityExceeded
	}
	return nil
}

// Release returns one unit of slot capacity, never dropping below zero.
func (s *CapacityService) Release(ctx context.Context, slotID string) error {
	if err := s.slots.Release(ctx, slotID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "release slot capacity")
	}
	return nil
}
