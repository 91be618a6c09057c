package models

// PopularTimeSlot counts accepted bookings per start hour of day.
type PopularTimeSlot struct {
	Hour  int `db:"hour" json:"hour"`
	Count int `db:"count" json:"count"`
}

// SessionStats is a read-only projection over windows, slots and requests.
// It is recomputed, never independently mutated.
type SessionStats struct {
	PendingRequests  int               `json:"pending_requests"`
	TotalEarnings    int64             `json:"total_earnings"`
	UpcomingSessions int               `json:"upcoming_sessions"`
	CompletionRate   float64           `json:"completion_rate"`
	AverageBid       float64           `json:"average_bid"`
	PopularTimeSlots []PopularTimeSlot `json:"popular_time_slots"`
}

// WindowUtilization reports the booked share of a window's generated slots.
type WindowUtilization struct {
	WindowID        string  `json:"window_id"`
	TotalSlots      int     `json:"total_slots"`
	BookedSlots     int     `json:"booked_slots"`
	UtilizationRate float64 `json:"utilization_rate"`
}
