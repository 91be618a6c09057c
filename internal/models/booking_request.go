package models

import "time"

// RequestStatus tracks a booking request through its lifecycle. Transitions
// are one-directional: pending is the only non-terminal state.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusExpired  RequestStatus = "expired"
)

// PaymentStatus is the sub-state of an accepted request. It is meaningless
// for any other request status.
type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "none"
	PaymentStatusAwaiting PaymentStatus = "awaiting"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusExpired  PaymentStatus = "expired"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// BookingRequest is a learner's priced bid against a generated slot.
type BookingRequest struct {
	ID            string        `db:"id" json:"id"`
	SlotID        string        `db:"slot_id" json:"slot_id"`
	RequesterID   string        `db:"requester_id" json:"requester_id"`
	SessionType   string        `db:"session_type" json:"session_type"`
	OfferedPrice  int64         `db:"offered_price" json:"offered_price"`
	Message       string        `db:"message" json:"message"`
	Status        RequestStatus `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
	ExpiresAt     time.Time     `db:"expires_at" json:"expires_at"`
	ReleasedAt    *time.Time    `db:"released_at" json:"released_at,omitempty"`

	// Derived among pending requests for the same slot; informational only.
	IsHighestBid bool `db:"-" json:"is_highest_bid"`
}

// Terminal reports whether the request can no longer transition.
func (r *BookingRequest) Terminal() bool {
	return r.Status != RequestStatusPending
}

// ConfirmedBooking is an accepted request joined with its slot interval,
// as consumed by the conflict detector.
type ConfirmedBooking struct {
	RequestID string    `db:"request_id" json:"request_id"`
	SlotID    string    `db:"slot_id" json:"slot_id"`
	WindowID  string    `db:"window_id" json:"window_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
}

// BulkUpdateResult records the per-request outcome of a bulk transition.
// Failures never abort the batch.
type BulkUpdateResult struct {
	RequestID string        `json:"request_id"`
	Status    RequestStatus `json:"status,omitempty"`
	Error     string        `json:"error,omitempty"`
}
