package dto

// UpsertPriceRuleRequest configures the pricing policy for a session type.
type UpsertPriceRuleRequest struct {
	SessionType         string `json:"session_type" validate:"required"`
	BasePrice           int64  `json:"base_price" validate:"required,gt=0"`
	MinBidPrice         int64  `json:"min_bid_price" validate:"required,gt=0"`
	MaxBidPrice         int64  `json:"max_bid_price" validate:"required,gt=0"`
	AutoAcceptThreshold int64  `json:"auto_accept_threshold" validate:"required,gt=0"`
	LeadTimeCutoffHours int    `json:"lead_time_cutoff_hours" validate:"min=0"`
}

// EvaluateBidRequest previews the evaluator verdict for a hypothetical bid.
type EvaluateBidRequest struct {
	SessionType       string  `json:"session_type" validate:"required"`
	OfferedPrice      int64   `json:"offered_price" validate:"required,gt=0"`
	HoursUntilSession float64 `json:"hours_until_session" validate:"min=0"`
}

// EvaluateBidResponse carries the verdict.
type EvaluateBidResponse struct {
	Outcome string `json:"outcome"`
}
