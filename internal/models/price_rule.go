package models

import "time"

// PriceRule is the per session-type pricing policy gating auto-acceptance.
// One active rule exists per (instructor, session type).
type PriceRule struct {
	ID                  string    `db:"id" json:"id"`
	InstructorID        string    `db:"instructor_id" json:"instructor_id"`
	SessionType         string    `db:"session_type" json:"session_type"`
	BasePrice           int64     `db:"base_price" json:"base_price"`
	MinBidPrice         int64     `db:"min_bid_price" json:"min_bid_price"`
	MaxBidPrice         int64     `db:"max_bid_price" json:"max_bid_price"`
	AutoAcceptThreshold int64     `db:"auto_accept_threshold" json:"auto_accept_threshold"`
	LeadTimeCutoffHours int       `db:"lead_time_cutoff_hours" json:"lead_time_cutoff_hours"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// BidOutcome is the price rule evaluator's verdict for an incoming bid.
type BidOutcome string

const (
	BidOutcomeReject       BidOutcome = "reject"
	BidOutcomeAutoAccept   BidOutcome = "autoAccept"
	BidOutcomeManualReview BidOutcome = "manualReview"
)
