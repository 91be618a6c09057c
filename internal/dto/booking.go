package dto

// SubmitBidRequest is a learner's priced booking request against a slot.
type SubmitBidRequest struct {
	SlotID       string `json:"slot_id" validate:"required"`
	SessionType  string `json:"session_type" validate:"required"`
	OfferedPrice int64  `json:"offered_price" validate:"required,gt=0"`
	Message      string `json:"message"`
}

// BulkUpdateRequest applies accept or reject to a set of pending requests.
type BulkUpdateRequest struct {
	RequestIDs   []string `json:"request_ids" validate:"required,min=1,dive,required"`
	TargetStatus string   `json:"target_status" validate:"required,oneof=accepted rejected"`
}

// PaymentCallbackRequest is the payment collaborator's asynchronous signal.
type PaymentCallbackRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	Outcome   string `json:"outcome" validate:"required,oneof=paid failed expired"`
	Reference string `json:"reference"`
}
