package dto

// CreateAvailabilityRequest declares a new availability window.
type CreateAvailabilityRequest struct {
	Date                string `json:"date" binding:"required" validate:"required,datetime=2006-01-02"`
	StartTime           string `json:"start_time" binding:"required" validate:"required,datetime=15:04"`
	EndTime             string `json:"end_time" binding:"required" validate:"required,datetime=15:04"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" validate:"required,min=15"`
	BufferMinutes       int    `json:"buffer_minutes" validate:"min=0"`
	MaxBookingsPerSlot  int    `json:"max_bookings_per_slot" validate:"required,min=1"`
	MinAdvanceHours     int    `json:"min_advance_hours" validate:"required,min=1"`
	MaxAdvanceHours     int    `json:"max_advance_hours" validate:"min=0"`
	Title               string `json:"title"`
	Notes               string `json:"notes"`
}

// UpdateAvailabilityRequest edits an existing window.
type UpdateAvailabilityRequest struct {
	Date                string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime           string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string `json:"end_time" validate:"required,datetime=15:04"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" validate:"required,min=15"`
	BufferMinutes       int    `json:"buffer_minutes" validate:"min=0"`
	MaxBookingsPerSlot  int    `json:"max_bookings_per_slot" validate:"required,min=1"`
	MinAdvanceHours     int    `json:"min_advance_hours" validate:"required,min=1"`
	MaxAdvanceHours     int    `json:"max_advance_hours" validate:"min=0"`
	Title               string `json:"title"`
	Notes               string `json:"notes"`
	IsActive            *bool  `json:"is_active"`
}

// BlockSlotRequest blocks a slot with an optional reason.
type BlockSlotRequest struct {
	Reason string `json:"reason"`
}
