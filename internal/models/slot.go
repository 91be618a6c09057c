package models

import "time"

// SlotStatus is derived from a slot's block flag, capacity counters and
// start time. It is never stored.
type SlotStatus string

const (
	SlotStatusBlocked   SlotStatus = "blocked"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusPast      SlotStatus = "past"
	SlotStatusAvailable SlotStatus = "available"
)

// TimeSlot is a discrete bookable unit generated from an availability window.
// Capacity counters and block flags are persisted so they survive
// regeneration; everything else is derivable from the owning window.
type TimeSlot struct {
	ID              string    `db:"id" json:"id"`
	WindowID        string    `db:"window_id" json:"window_id"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	MaxBookings     int       `db:"max_bookings" json:"max_bookings"`
	CurrentBookings int       `db:"current_bookings" json:"current_bookings"`
	IsBlocked       bool      `db:"is_blocked" json:"is_blocked"`
	BlockReason     *string   `db:"block_reason" json:"block_reason,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`

	// Derived on read, not stored.
	Status SlotStatus `db:"-" json:"status,omitempty"`
}

// RemainingCapacity reports how many more bookings the slot accepts.
func (s *TimeSlot) RemainingCapacity() int {
	remaining := s.MaxBookings - s.CurrentBookings
	if remaining < 0 {
		return 0
	}
	return remaining
}
