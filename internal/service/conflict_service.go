package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorbid/tutorbid-api/internal/models"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

type sessionReader interface {
	ListOverlapping(ctx context.Context, instructorID string, start, end time.Time) ([]models.Session, error)
}

type confirmedBookingReader interface {
	ListConfirmedOverlapping(ctx context.Context, instructorID string, start, end time.Time) ([]models.ConfirmedBooking, error)
}

type blockedSlotReader interface {
	ListBlockedOverlapping(ctx context.Context, start, end time.Time) ([]models.TimeSlot, error)
}

// ConflictService detects overlaps between a candidate interval and existing
// commitments.
type ConflictService struct {
	sessions sessionReader
	bookings confirmedBookingReader
	blocked  blockedSlotReader
}

// NewConflictService builds the detector.
func NewConflictService(sessions sessionReader, bookings confirmedBookingReader, blocked blockedSlotReader) *ConflictService {
	return &ConflictService{sessions: sessions, bookings: bookings, blocked: blocked}
}

// IntervalExclusion names commitments that must not count against the
// candidate interval: the slot a request is being accepted into, or the
// window being edited. Without it a slot would conflict with its own
// confirmed bookings and a window with its own blocked slots.
type IntervalExclusion struct {
	SlotID   string
	WindowID string
}

func (e IntervalExclusion) excludesBooking(b models.ConfirmedBooking) bool {
	return (e.SlotID != "" && b.SlotID == e.SlotID) ||
		(e.WindowID != "" && b.WindowID == e.WindowID)
}

func (e IntervalExclusion) excludesSlot(s models.TimeSlot) bool {
	return (e.SlotID != "" && s.ID == e.SlotID) ||
		(e.WindowID != "" && s.WindowID == e.WindowID)
}

// Overlaps reports whether [a1, a2) and [b1, b2) intersect. Touching
// endpoints are not overlaps.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && a2.After(b1)
}

// FindConflicts evaluates the candidate against all three collections and
// returns the union of matches. It never short-circuits, so the caller sees
// every reason at once. An empty result means the interval is free.
func FindConflicts(start, end time.Time, sessions []models.Session, bookings []models.ConfirmedBooking, blocked []models.TimeSlot) []models.Conflict {
	var conflicts []models.Conflict

	for _, session := range sessions {
		if Overlaps(start, end, session.StartTime, session.EndTime) {
			conflicts = append(conflicts, models.Conflict{
				Type:      models.ConflictTypeSession,
				RefID:     session.ID,
				StartTime: session.StartTime,
				EndTime:   session.EndTime,
				Reason:    fmt.Sprintf("overlaps scheduled session %q", session.Title),
			})
		}
	}

	for _, booking := range bookings {
		if Overlaps(start, end, booking.StartTime, booking.EndTime) {
			conflicts = append(conflicts, models.Conflict{
				Type:      models.ConflictTypeBooking,
				RefID:     booking.RequestID,
				StartTime: booking.StartTime,
				EndTime:   booking.EndTime,
				Reason:    "overlaps a confirmed booking",
			})
		}
	}

	for _, slot := range blocked {
		if Overlaps(start, end, slot.StartTime, slot.EndTime) {
			reason := "overlaps a blocked slot"
			if slot.BlockReason != nil && *slot.BlockReason != "" {
				reason = fmt.Sprintf("overlaps a blocked slot: %s", *slot.BlockReason)
			}
			conflicts = append(conflicts, models.Conflict{
				Type:      models.ConflictTypeBlocked,
				RefID:     slot.ID,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Reason:    reason,
			})
		}
	}

	return conflicts
}

// CheckInterval loads the instructor's commitments around [start, end) and
// returns ErrConflict carrying every conflict found, or nil when free.
func (s *ConflictService) CheckInterval(ctx context.Context, instructorID string, start, end time.Time) error {
	return s.CheckIntervalExcluding(ctx, instructorID, start, end, IntervalExclusion{})
}

// CheckIntervalExcluding is CheckInterval minus the commitments the
// exclusion names.
func (s *ConflictService) CheckIntervalExcluding(ctx context.Context, instructorID string, start, end time.Time, excl IntervalExclusion) error {
	sessions, err := s.sessions.ListOverlapping(ctx, instructorID, start, end)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load sessions for conflict check")
	}
	bookings, err := s.bookings.ListConfirmedOverlapping(ctx, instructorID, start, end)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load bookings for conflict check")
	}
	blocked, err := s.blocked.ListBlockedOverlapping(ctx, start, end)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load blocked slots for conflict check")
	}

	if excl != (IntervalExclusion{}) {
		kept := make([]models.ConfirmedBooking, 0, len(bookings))
		for _, b := range bookings {
			if !excl.excludesBooking(b) {
				kept = append(kept, b)
			}
		}
		bookings = kept

		keptSlots := make([]models.TimeSlot, 0, len(blocked))
		for _, slot := range blocked {
			if !excl.excludesSlot(slot) {
				keptSlots = append(keptSlots, slot)
			}
		}
		blocked = keptSlots
	}

	conflicts := FindConflicts(start, end, sessions, bookings, blocked)
	if len(conflicts) == 0 {
		return nil
	}
	return appErrors.Wrap(
		&models.ConflictError{Message: fmt.Sprintf("%d scheduling conflicts found", len(conflicts)), Conflicts: conflicts},
		appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, appErrors.ErrConflict.Message,
	)
}
