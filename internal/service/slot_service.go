package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tutorbid/tutorbid-api/internal/models"
	"github.com/tutorbid/tutorbid-api/internal/notify"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

type slotStore interface {
	UpsertGenerated(ctx context.Context, slots []models.TimeSlot) error
	PruneStale(ctx context.Context, windowID string, keepStarts []time.Time) error
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	ListByWindow(ctx context.Context, windowID string) ([]models.TimeSlot, error)
	SetBlocked(ctx context.Context, id string, blocked bool, reason *string) error
}

// SlotService turns availability windows into discrete bookable slots and
// manages instructor blocks on them.
type SlotService struct {
	slots    slotStore
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewSlotService builds the slot generator service.
func NewSlotService(slots slotStore, notifier notify.Notifier, logger *zap.Logger) *SlotService {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{slots: slots, notifier: notifier, logger: logger, now: time.Now}
}

// GenerateSlots derives the ordered slot sequence for one window. The cursor
// starts at the window start and advances by duration plus buffer; a slot
// that would cross the window end is never emitted. Deterministic: the same
// window always yields the same sequence, so regeneration is safe as long as
// existing bookings are matched back by (window, start, end).
func GenerateSlots(window *models.AvailabilityWindow) ([]models.TimeSlot, error) {
	start, end, err := window.Bounds()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "window has unparsable bounds")
	}

	duration := time.Duration(window.SlotDurationMinutes) * time.Minute
	step := duration + time.Duration(window.BufferMinutes)*time.Minute

	var slots []models.TimeSlot
	for cursor := start; !cursor.Add(duration).After(end); cursor = cursor.Add(step) {
		slots = append(slots, models.TimeSlot{
			WindowID:        window.ID,
			StartTime:       cursor,
			EndTime:         cursor.Add(duration),
			DurationMinutes: window.SlotDurationMinutes,
			MaxBookings:     window.MaxBookingsPerSlot,
		})
	}
	return slots, nil
}

// Materialize persists the generated slot set for a window. Slots already
// holding bookings or blocks keep their counters; slots the regeneration no
// longer produces are pruned unless booked or blocked.
func (s *SlotService) Materialize(ctx context.Context, window *models.AvailabilityWindow) ([]models.TimeSlot, error) {
	slots, err := GenerateSlots(window)
	if err != nil {
		return nil, err
	}
	if err := s.slots.UpsertGenerated(ctx, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist generated slots")
	}

	keepStarts := make([]time.Time, len(slots))
	for i := range slots {
		keepStarts[i] = slots[i].StartTime
	}
	if err := s.slots.PruneStale(ctx, window.ID, keepStarts); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "prune stale slots")
	}

	s.logger.Info("slots materialized",
		zap.String("window_id", window.ID),
		zap.Int("count", len(slots)),
	)
	return slots, nil
}

// Get returns a slot with its derived status.
func (s *SlotService) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load slot")
	}
	if slot == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	slot.Status = DeriveStatus(slot, s.now())
	return slot, nil
}

// ListByWindow returns a window's slots with derived statuses.
func (s *SlotService) ListByWindow(ctx context.Context, windowID string) ([]models.TimeSlot, error) {
	slots, err := s.slots.ListByWindow(ctx, windowID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list slots")
	}
	AnnotateStatus(slots, s.now())
	return slots, nil
}

// Block marks a slot unavailable with an optional reason.
func (s *SlotService) Block(ctx context.Context, id, reason string) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := s.slots.SetBlocked(ctx, id, true, reasonPtr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "block slot")
	}
	s.notifier.Publish(notify.Event{Name: notify.EventSlotBlocked, SlotID: id})
	return nil
}

// Unblock lifts an instructor block.
func (s *SlotService) Unblock(ctx context.Context, id string) error {
	if err := s.slots.SetBlocked(ctx, id, false, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unblock slot")
	}
	s.notifier.Publish(notify.Event{Name: notify.EventSlotUnblocked, SlotID: id})
	return nil
}
