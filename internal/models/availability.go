package models

import (
	"fmt"
	"time"
)

// AvailabilityWindow is an instructor-declared block of bookable time on a
// specific date. Windows are the source of truth; slots are derived from them.
type AvailabilityWindow struct {
	ID                  string    `db:"id" json:"id"`
	InstructorID        string    `db:"instructor_id" json:"instructor_id"`
	Date                string    `db:"date" json:"date"`
	StartTime           string    `db:"start_time" json:"start_time"`
	EndTime             string    `db:"end_time" json:"end_time"`
	SlotDurationMinutes int       `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	BufferMinutes       int       `db:"buffer_minutes" json:"buffer_minutes"`
	MaxBookingsPerSlot  int       `db:"max_bookings_per_slot" json:"max_bookings_per_slot"`
	MinAdvanceHours     int       `db:"min_advance_hours" json:"min_advance_hours"`
	MaxAdvanceHours     int       `db:"max_advance_hours" json:"max_advance_hours"`
	Title               string    `db:"title" json:"title"`
	Notes               string    `db:"notes" json:"notes"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

const (
	windowDateLayout = "2006-01-02"
	windowTimeLayout = "15:04"
)

// Bounds resolves the window's date plus time-of-day strings into concrete
// UTC instants.
func (w *AvailabilityWindow) Bounds() (start, end time.Time, err error) {
	day, err := time.ParseInLocation(windowDateLayout, w.Date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse window date %q: %w", w.Date, err)
	}
	startOfDay, err := time.Parse(windowTimeLayout, w.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse window start %q: %w", w.StartTime, err)
	}
	endOfDay, err := time.Parse(windowTimeLayout, w.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse window end %q: %w", w.EndTime, err)
	}

	start = day.Add(time.Duration(startOfDay.Hour())*time.Hour + time.Duration(startOfDay.Minute())*time.Minute)
	end = day.Add(time.Duration(endOfDay.Hour())*time.Hour + time.Duration(endOfDay.Minute())*time.Minute)
	return start, end, nil
}

// LengthMinutes returns the window span in minutes, zero when unparsable.
func (w *AvailabilityWindow) LengthMinutes() int {
	start, end, err := w.Bounds()
	if err != nil {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}
