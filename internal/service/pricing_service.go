package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/models"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

type priceRuleStore interface {
	Upsert(ctx context.Context, rule *models.PriceRule) error
	FindActive(ctx context.Context, instructorID, sessionType string) (*models.PriceRule, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.PriceRule, error)
	Delete(ctx context.Context, id string) error
}

// PricingService manages per session-type price rules and evaluates bids
// against them.
type PricingService struct {
	rules    priceRuleStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPricingService builds the pricing policy service.
func NewPricingService(rules priceRuleStore, logger *zap.Logger) *PricingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingService{rules: rules, validate: validator.New(), logger: logger}
}

// EvaluateBid is the pure evaluator verdict for one bid. A nil rule means no
// policy exists; every bid then needs manual review.
func EvaluateBid(offeredPrice int64, rule *models.PriceRule, hoursUntilSession float64) models.BidOutcome {
	if rule == nil {
		return models.BidOutcomeManualReview
	}
	if offeredPrice < rule.MinBidPrice || offeredPrice > rule.MaxBidPrice {
		return models.BidOutcomeReject
	}
	if offeredPrice >= rule.AutoAcceptThreshold && hoursUntilSession >= float64(rule.LeadTimeCutoffHours) {
		return models.BidOutcomeAutoAccept
	}
	return models.BidOutcomeManualReview
}

// Upsert writes the active rule for (instructor, session type) after
// validating the pricing invariants.
func (s *PricingService) Upsert(ctx context.Context, instructorID string, req dto.UpsertPriceRuleRequest) (*models.PriceRule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid price rule payload")
	}
	if req.MinBidPrice > req.BasePrice || req.BasePrice > req.MaxBidPrice {
		return nil, appErrors.Clone(appErrors.ErrValidation, "base price must lie between min and max bid prices")
	}
	if req.AutoAcceptThreshold < req.MinBidPrice || req.AutoAcceptThreshold > req.MaxBidPrice {
		return nil, appErrors.Clone(appErrors.ErrValidation, "auto-accept threshold must lie within the bid range")
	}

	rule := &models.PriceRule{
		InstructorID:        instructorID,
		SessionType:         req.SessionType,
		BasePrice:           req.BasePrice,
		MinBidPrice:         req.MinBidPrice,
		MaxBidPrice:         req.MaxBidPrice,
		AutoAcceptThreshold: req.AutoAcceptThreshold,
		LeadTimeCutoffHours: req.LeadTimeCutoffHours,
		IsActive:            true,
	}
	if err := s.rules.Upsert(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "save price rule")
	}
	s.logger.Info("price rule saved",
		zap.String("instructor_id", instructorID),
		zap.String("session_type", rule.SessionType),
	)
	return rule, nil
}

// List returns all of an instructor's rules.
func (s *PricingService) List(ctx context.Context, instructorID string) ([]models.PriceRule, error) {
	rules, err := s.rules.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list price rules")
	}
	return rules, nil
}

// Delete removes a rule by id.
func (s *PricingService) Delete(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete price rule")
	}
	return nil
}

// Preview evaluates a hypothetical bid against the instructor's active rule.
func (s *PricingService) Preview(ctx context.Context, instructorID string, req dto.EvaluateBidRequest) (*dto.EvaluateBidResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	rule, err := s.rules.FindActive(ctx, instructorID, req.SessionType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load price rule")
	}
	if rule == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no active price rule for session type %q", req.SessionType))
	}
	outcome := EvaluateBid(req.OfferedPrice, rule, req.HoursUntilSession)
	return &dto.EvaluateBidResponse{Outcome: string(outcome)}, nil
}
