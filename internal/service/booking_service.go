package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/models"
	"github.com/tutorbid/tutorbid-api/internal/notify"
	"github.com/tutorbid/tutorbid-api/internal/payment"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

type bookingRequestStore interface {
	Create(ctx context.Context, request *models.BookingRequest) error
	FindByID(ctx context.Context, id string) (*models.BookingRequest, error)
	ListBySlot(ctx context.Context, slotID string) ([]models.BookingRequest, error)
	ListPendingBySlot(ctx context.Context, slotID string) ([]models.BookingRequest, error)
	ListForInstructor(ctx context.Context, instructorID string) ([]models.BookingRequest, error)
	UpdateStatusIf(ctx context.Context, id string, from, to models.RequestStatus, payment models.PaymentStatus) (bool, error)
	UpdatePaymentStatusIf(ctx context.Context, id string, from, to models.PaymentStatus) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
	ExpireAwaitingBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	MarkReleased(ctx context.Context, id string) (bool, error)
}

type slotReader interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

type windowReader interface {
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
}

type activeRuleFinder interface {
	FindActive(ctx context.Context, instructorID, sessionType string) (*models.PriceRule, error)
}

// BookingService drives a booking request from submission through terminal
// resolution. Every transition commits through a status-guarded update, so
// whichever of two racing transitions lands first wins and the loser fails
// with an invalid-transition error.
type BookingService struct {
	requests  bookingRequestStore
	slots     slotReader
	windows   windowReader
	rules     activeRuleFinder
	conflicts *ConflictService
	capacity  *CapacityService
	gateway   payment.Gateway
	notifier  notify.Notifier
	cache     *CacheService
	metrics   *MetricsService
	validate  *validator.Validate
	logger    *zap.Logger

	paymentAwaitTTL time.Duration
	now             func() time.Time
}

// BookingServiceConfig carries the lifecycle knobs.
type BookingServiceConfig struct {
	PaymentAwaitTTL time.Duration
}

// NewBookingService wires the lifecycle service.
func NewBookingService(
	requests bookingRequestStore,
	slots slotReader,
	windows windowReader,
	rules activeRuleFinder,
	conflicts *ConflictService,
	capacity *CapacityService,
	gateway payment.Gateway,
	notifier notify.Notifier,
	cache *CacheService,
	metrics *MetricsService,
	cfg BookingServiceConfig,
	logger *zap.Logger,
) *BookingService {
	if gateway == nil {
		gateway = payment.NewLogGateway(logger)
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.PaymentAwaitTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BookingService{
		requests:        requests,
		slots:           slots,
		windows:         windows,
		rules:           rules,
		conflicts:       conflicts,
		capacity:        capacity,
		gateway:         gateway,
		notifier:        notifier,
		cache:           cache,
		metrics:         metrics,
		validate:        validator.New(),
		logger:          logger,
		paymentAwaitTTL: ttl,
		now:             time.Now,
	}
}

// Submit creates a pending request after price-range validation, then runs
// the auto-accept evaluation. A bid outside the active rule's range is
// rejected synchronously and nothing is written.
func (s *BookingService) Submit(ctx context.Context, requesterID string, req dto.SubmitBidRequest) (*models.BookingRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bid payload")
	}

	now := s.now().UTC()
	slot, window, err := s.loadSlotWindow(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}

	switch DeriveStatus(slot, now) {
	case models.SlotStatusBlocked:
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is blocked by the instructor")
	case models.SlotStatusPast:
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot has already started")
	}
	if !window.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability window is inactive")
	}

	hoursUntil := slot.StartTime.Sub(now).Hours()
	if hoursUntil < float64(window.MinAdvanceHours) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is inside the minimum advance booking period")
	}
	if window.MaxAdvanceHours > 0 && hoursUntil > float64(window.MaxAdvanceHours) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is beyond the maximum advance booking period")
	}

	rule, err := s.rules.FindActive(ctx, window.InstructorID, req.SessionType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load price rule")
	}
	if rule != nil && (req.OfferedPrice < rule.MinBidPrice || req.OfferedPrice > rule.MaxBidPrice) {
		return nil, appErrors.Clone(appErrors.ErrPriceOutOfRange,
			fmt.Sprintf("offered price must be between %d and %d", rule.MinBidPrice, rule.MaxBidPrice))
	}

	request := &models.BookingRequest{
		SlotID:        slot.ID,
		RequesterID:   requesterID,
		SessionType:   req.SessionType,
		OfferedPrice:  req.OfferedPrice,
		Message:       req.Message,
		Status:        models.RequestStatusPending,
		PaymentStatus: models.PaymentStatusNone,
		CreatedAt:     now,
		ExpiresAt:     requestExpiry(slot.StartTime, rule, now),
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "save booking request")
	}

	s.metrics.RecordBidSubmitted()
	s.notifier.Publish(notify.Event{Name: notify.EventRequestSubmitted, RequestID: request.ID, SlotID: slot.ID})
	s.invalidateStats(ctx, window.InstructorID)

	if EvaluateBid(req.OfferedPrice, rule, hoursUntil) == models.BidOutcomeAutoAccept {
		err := s.guardAcceptable(ctx, slot, window)
		if err == nil {
			err = s.commitAccept(ctx, request)
		}
		if err != nil {
			// The bid stays pending for manual review; auto-accept losing a
			// capacity race or hitting a schedule conflict is not a
			// submission failure.
			s.logger.Info("auto-accept not applied",
				zap.String("request_id", request.ID),
				zap.Error(err),
			)
		} else {
			s.metrics.RecordAutoAccept()
			s.afterAccept(ctx, request, window.InstructorID)
		}
	}

	return request, nil
}

// Accept transitions a pending request to accepted and reserves slot
// capacity atomically. The slot is re-checked first: a bid submitted before
// the slot was blocked, or before an overlapping commitment landed, must not
// be acceptable anymore. A reservation failure leaves the request pending.
func (s *BookingService) Accept(ctx context.Context, instructorID, requestID string) (*models.BookingRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	slot, window, err := s.loadSlotWindow(ctx, request.SlotID)
	if err != nil {
		return nil, err
	}
	if window.InstructorID != instructorID {
		return nil, appErrors.ErrForbidden
	}
	if request.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("request is already %s", request.Status))
	}
	if err := s.guardAcceptable(ctx, slot, window); err != nil {
		return nil, err
	}

	if err := s.commitAccept(ctx, request); err != nil {
		return nil, err
	}
	s.afterAccept(ctx, request, instructorID)
	return request, nil
}

// guardAcceptable re-derives the slot status and runs conflict detection
// over the slot interval. Fullness is left to the capacity reservation; the
// slot's own confirmed bookings are excluded from the conflict check for the
// same reason, otherwise no slot with max_bookings above one could take a
// second accept.
func (s *BookingService) guardAcceptable(ctx context.Context, slot *models.TimeSlot, window *models.AvailabilityWindow) error {
	switch DeriveStatus(slot, s.now().UTC()) {
	case models.SlotStatusBlocked:
		return appErrors.Clone(appErrors.ErrConflict, "slot is blocked by the instructor")
	case models.SlotStatusPast:
		return appErrors.Clone(appErrors.ErrInvalidTransition, "slot has already started")
	}
	if s.conflicts == nil {
		return nil
	}
	return s.conflicts.CheckIntervalExcluding(ctx, window.InstructorID,
		slot.StartTime, slot.EndTime, IntervalExclusion{SlotID: slot.ID})
}

// commitAccept is the critical section: reserve capacity, then flip the
// status under its pending guard. Either both land or neither does.
func (s *BookingService) commitAccept(ctx context.Context, request *models.BookingRequest) error {
	err := s.capacity.WithSlotLock(request.SlotID, func() error {
		if err := s.capacity.Reserve(ctx, request.SlotID); err != nil {
			return err
		}
		ok, err := s.requests.UpdateStatusIf(ctx, request.ID,
			models.RequestStatusPending, models.RequestStatusAccepted, models.PaymentStatusAwaiting)
		if err != nil {
			if releaseErr := s.capacity.Release(ctx, request.SlotID); releaseErr != nil {
				s.logger.Error("capacity release after failed accept", zap.String("slot_id", request.SlotID), zap.Error(releaseErr))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit accept transition")
		}
		if !ok {
			if releaseErr := s.capacity.Release(ctx, request.SlotID); releaseErr != nil {
				s.logger.Error("capacity release after lost accept race", zap.String("slot_id", request.SlotID), zap.Error(releaseErr))
			}
			return appErrors.Clone(appErrors.ErrInvalidTransition, "request is no longer pending")
		}
		return nil
	})
	if err != nil {
		return err
	}
	request.Status = models.RequestStatusAccepted
	request.PaymentStatus = models.PaymentStatusAwaiting
	return nil
}

// afterAccept runs the accept side effects that need no lock.
func (s *BookingService) afterAccept(ctx context.Context, request *models.BookingRequest, instructorID string) {
	if err := s.gateway.RequestPayment(ctx, request.ID, request.OfferedPrice); err != nil {
		// The request stays awaiting; the payment sweep times it out if the
		// provider never responds.
		s.logger.Error("payment request failed", zap.String("request_id", request.ID), zap.Error(err))
	}
	s.notifier.Publish(notify.Event{Name: notify.EventRequestAccepted, RequestID: request.ID, SlotID: request.SlotID})
	s.invalidateStats(ctx, instructorID)
}

// Reject transitions a pending request to rejected. No capacity changes.
func (s *BookingService) Reject(ctx context.Context, instructorID, requestID string) (*models.BookingRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	_, window, err := s.loadSlotWindow(ctx, request.SlotID)
	if err != nil {
		return nil, err
	}
	if window.InstructorID != instructorID {
		return nil, appErrors.ErrForbidden
	}

	ok, err := s.requests.UpdateStatusIf(ctx, request.ID,
		models.RequestStatusPending, models.RequestStatusRejected, models.PaymentStatusNone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit reject transition")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is no longer pending")
	}
	request.Status = models.RequestStatusRejected

	s.notifier.Publish(notify.Event{Name: notify.EventRequestRejected, RequestID: request.ID, SlotID: request.SlotID})
	s.invalidateStats(ctx, window.InstructorID)
	return request, nil
}

// Withdraw lets the submitter pull a still-pending request. It is a
// rejected-equivalent transition with no capacity side effect.
func (s *BookingService) Withdraw(ctx context.Context, requesterID, requestID string) (*models.BookingRequest, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != requesterID {
		return nil, appErrors.ErrForbidden
	}

	ok, err := s.requests.UpdateStatusIf(ctx, request.ID,
		models.RequestStatusPending, models.RequestStatusRejected, models.PaymentStatusNone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit withdraw transition")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is no longer pending")
	}
	request.Status = models.RequestStatusRejected

	s.notifier.Publish(notify.Event{Name: notify.EventRequestWithdrawn, RequestID: request.ID, SlotID: request.SlotID})
	s.invalidateStats(ctx, "")
	return request, nil
}

// BulkUpdate applies accept or reject to each id, collecting per-item
// outcomes. A failing item never aborts the batch.
func (s *BookingService) BulkUpdate(ctx context.Context, instructorID string, req dto.BulkUpdateRequest) ([]models.BulkUpdateResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}

	results := make([]models.BulkUpdateResult, 0, len(req.RequestIDs))
	for _, id := range req.RequestIDs {
		var err error
		target := models.RequestStatus(req.TargetStatus)
		switch target {
		case models.RequestStatusAccepted:
			_, err = s.Accept(ctx, instructorID, id)
		case models.RequestStatusRejected:
			_, err = s.Reject(ctx, instructorID, id)
		}
		result := models.BulkUpdateResult{RequestID: id}
		if err != nil {
			result.Error = appErrors.FromError(err).Message
		} else {
			result.Status = target
		}
		results = append(results, result)
	}
	return results, nil
}

// ExpireDue sweeps overdue pending requests into expired and reports how
// many flipped.
func (s *BookingService) ExpireDue(ctx context.Context) (int, error) {
	ids, err := s.requests.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "expire due requests")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	s.metrics.RecordExpired(len(ids))
	for _, id := range ids {
		s.notifier.Publish(notify.Event{Name: notify.EventRequestExpired, RequestID: id})
	}
	s.invalidateStats(ctx, "")
	s.logger.Info("expired pending requests", zap.Int("count", len(ids)))
	return len(ids), nil
}

// ExpireAwaitingPayments times out accepted requests stuck in awaiting
// longer than the configured TTL. The slot reservation is kept; releasing it
// is the explicit compensating action.
func (s *BookingService) ExpireAwaitingPayments(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.paymentAwaitTTL)
	ids, err := s.requests.ExpireAwaitingBefore(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "expire awaiting payments")
	}
	for _, id := range ids {
		s.metrics.RecordPaymentFailure()
		s.notifier.Publish(notify.Event{Name: notify.EventPaymentExpired, RequestID: id})
	}
	if len(ids) > 0 {
		s.invalidateStats(ctx, "")
		s.logger.Info("expired awaiting payments", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// HandlePaymentCallback applies the provider's asynchronous verdict to the
// payment sub-machine. Only awaiting requests can move.
func (s *BookingService) HandlePaymentCallback(ctx context.Context, req dto.PaymentCallbackRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment callback")
	}

	var target models.PaymentStatus
	var event string
	switch req.Outcome {
	case "paid":
		target, event = models.PaymentStatusPaid, notify.EventPaymentPaid
	case "failed":
		target, event = models.PaymentStatusFailed, notify.EventPaymentFailed
	case "expired":
		target, event = models.PaymentStatusExpired, notify.EventPaymentExpired
	}

	ok, err := s.requests.UpdatePaymentStatusIf(ctx, req.RequestID, models.PaymentStatusAwaiting, target)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit payment transition")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "request is not awaiting payment")
	}

	if target != models.PaymentStatusPaid {
		s.metrics.RecordPaymentFailure()
	}
	s.notifier.Publish(notify.Event{Name: event, RequestID: req.RequestID,
		Fields: map[string]interface{}{"reference": req.Reference}})
	s.invalidateStats(ctx, "")
	return nil
}

// ReleaseReservation is the explicit compensating action after a failed or
// timed-out payment: it frees the slot capacity exactly once.
func (s *BookingService) ReleaseReservation(ctx context.Context, instructorID, requestID string) error {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return err
	}
	_, window, err := s.loadSlotWindow(ctx, request.SlotID)
	if err != nil {
		return err
	}
	if window.InstructorID != instructorID {
		return appErrors.ErrForbidden
	}

	ok, err := s.requests.MarkReleased(ctx, request.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "mark reservation released")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "reservation is not releasable")
	}
	if err := s.capacity.Release(ctx, request.SlotID); err != nil {
		return err
	}
	s.invalidateStats(ctx, window.InstructorID)
	return nil
}

// Get returns one request.
func (s *BookingService) Get(ctx context.Context, requestID string) (*models.BookingRequest, error) {
	return s.getRequest(ctx, requestID)
}

// ListForInstructor returns requests against the instructor's slots, with
// highest-bid flags stamped on pending ones.
func (s *BookingService) ListForInstructor(ctx context.Context, instructorID string) ([]models.BookingRequest, error) {
	requests, err := s.requests.ListForInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list booking requests")
	}
	AnnotateHighestBids(requests)
	return requests, nil
}

// ListBySlot returns a slot's requests with highest-bid flags.
func (s *BookingService) ListBySlot(ctx context.Context, slotID string) ([]models.BookingRequest, error) {
	requests, err := s.requests.ListBySlot(ctx, slotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list booking requests")
	}
	AnnotateHighestBids(requests)
	return requests, nil
}

// AnnotateHighestBids flags, per slot, the pending request with the greatest
// offered price; ties resolve to the earliest created. Informational only;
// it never gates a transition.
func AnnotateHighestBids(requests []models.BookingRequest) {
	best := map[string]int{}
	for i := range requests {
		requests[i].IsHighestBid = false
		if requests[i].Status != models.RequestStatusPending {
			continue
		}
		current, ok := best[requests[i].SlotID]
		if !ok {
			best[requests[i].SlotID] = i
			continue
		}
		if requests[i].OfferedPrice > requests[current].OfferedPrice ||
			(requests[i].OfferedPrice == requests[current].OfferedPrice &&
				requests[i].CreatedAt.Before(requests[current].CreatedAt)) {
			best[requests[i].SlotID] = i
		}
	}
	for _, i := range best {
		requests[i].IsHighestBid = true
	}
}

// requestExpiry derives expires_at from the rule's lead-time cutoff relative
// to the slot start, clamped to the slot start so it always lands after the
// submission instant.
func requestExpiry(slotStart time.Time, rule *models.PriceRule, now time.Time) time.Time {
	expiry := slotStart
	if rule != nil && rule.LeadTimeCutoffHours > 0 {
		candidate := slotStart.Add(-time.Duration(rule.LeadTimeCutoffHours) * time.Hour)
		if candidate.After(now) {
			expiry = candidate
		}
	}
	return expiry
}

func (s *BookingService) getRequest(ctx context.Context, requestID string) (*models.BookingRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load booking request")
	}
	if request == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking request not found")
	}
	return request, nil
}

func (s *BookingService) loadSlotWindow(ctx context.Context, slotID string) (*models.TimeSlot, *models.AvailabilityWindow, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load slot")
	}
	if slot == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	window, err := s.windows.FindByID(ctx, slot.WindowID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load window")
	}
	if window == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}
	return slot, window, nil
}

func (s *BookingService) invalidateStats(ctx context.Context, instructorID string) {
	if s.cache == nil {
		return
	}
	pattern := "stats:*"
	if instructorID != "" {
		pattern = fmt.Sprintf("stats:%s:*", instructorID)
	}
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
