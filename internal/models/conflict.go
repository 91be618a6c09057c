package models

import "time"

// ConflictType names the collection a candidate interval collided with.
type ConflictType string

const (
	ConflictTypeSession ConflictType = "session"
	ConflictTypeBooking ConflictType = "booking"
	ConflictTypeBlocked ConflictType = "blocked"
)

// Conflict describes a single overlap between a candidate interval and an
// existing commitment.
type Conflict struct {
	Type      ConflictType `json:"type"`
	RefID     string       `json:"ref_id"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Reason    string       `json:"reason"`
}

// ConflictError carries every conflict found for a candidate interval, not
// just the first.
type ConflictError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
