package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/models"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

// stubRequestStore mirrors the repository's guarded-update semantics in
// memory so transition races behave like the SQL they stand in for.
type stubRequestStore struct {
	mu       sync.Mutex
	requests map[string]*models.BookingRequest
}

func newStubRequestStore() *stubRequestStore {
	return &stubRequestStore{requests: map[string]*models.BookingRequest{}}
}

func (s *stubRequestStore) Create(_ context.Context, request *models.BookingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	clone := *request
	s.requests[request.ID] = &clone
	return nil
}

func (s *stubRequestStore) FindByID(_ context.Context, id string) (*models.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	clone := *request
	return &clone, nil
}

func (s *stubRequestStore) ListBySlot(_ context.Context, slotID string) ([]models.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BookingRequest
	for _, r := range s.requests {
		if r.SlotID == slotID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRequestStore) ListPendingBySlot(_ context.Context, slotID string) ([]models.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BookingRequest
	for _, r := range s.requests {
		if r.SlotID == slotID && r.Status == models.RequestStatusPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRequestStore) ListForInstructor(context.Context, string) ([]models.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BookingRequest
	for _, r := range s.requests {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubRequestStore) UpdateStatusIf(_ context.Context, id string, from, to models.RequestStatus, payment models.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok || request.Status != from {
		return false, nil
	}
	request.Status = to
	request.PaymentStatus = payment
	request.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *stubRequestStore) UpdatePaymentStatusIf(_ context.Context, id string, from, to models.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok || request.Status != models.RequestStatusAccepted || request.PaymentStatus != from {
		return false, nil
	}
	request.PaymentStatus = to
	request.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *stubRequestStore) ExpireDue(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, r := range s.requests {
		if r.Status == models.RequestStatusPending && r.ExpiresAt.Before(now) {
			r.Status = models.RequestStatusExpired
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (s *stubRequestStore) ExpireAwaitingBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, r := range s.requests {
		if r.Status == models.RequestStatusAccepted && r.PaymentStatus == models.PaymentStatusAwaiting && r.UpdatedAt.Before(cutoff) {
			r.PaymentStatus = models.PaymentStatusExpired
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (s *stubRequestStore) MarkReleased(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok || request.Status != models.RequestStatusAccepted || request.ReleasedAt != nil {
		return false, nil
	}
	if request.PaymentStatus != models.PaymentStatusFailed && request.PaymentStatus != models.PaymentStatusExpired {
		return false, nil
	}
	now := time.Now().UTC()
	request.ReleasedAt = &now
	return true, nil
}

// stubSlotAccess serves slot reads and capacity counters for one slot.
type stubSlotAccess struct {
	mu   sync.Mutex
	slot models.TimeSlot
}

func (s *stubSlotAccess) FindByID(_ context.Context, id string) (*models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot.ID != id {
		return nil, nil
	}
	clone := s.slot
	return &clone, nil
}

func (s *stubSlotAccess) Reserve(_ context.Context, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot.CurrentBookings >= s.slot.MaxBookings {
		return false, nil
	}
	s.slot.CurrentBookings++
	return true, nil
}

func (s *stubSlotAccess) Release(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot.CurrentBookings > 0 {
		s.slot.CurrentBookings--
	}
	return nil
}

type stubWindowAccess struct{ window models.AvailabilityWindow }

func (s *stubWindowAccess) FindByID(_ context.Context, id string) (*models.AvailabilityWindow, error) {
	if s.window.ID != id {
		return nil, nil
	}
	clone := s.window
	return &clone, nil
}

type stubRuleAccess struct{ rule *models.PriceRule }

func (s *stubRuleAccess) FindActive(context.Context, string, string) (*models.PriceRule, error) {
	return s.rule, nil
}

type bookingFixture struct {
	svc      *BookingService
	requests *stubRequestStore
	slots    *stubSlotAccess
	now      time.Time
}

func newBookingFixture(t *testing.T, rule *models.PriceRule) *bookingFixture {
	t.Helper()
	now := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)

	slots := &stubSlotAccess{slot: models.TimeSlot{
		ID:          "slot-1",
		WindowID:    "win-1",
		StartTime:   now.Add(48 * time.Hour),
		EndTime:     now.Add(48*time.Hour + 30*time.Minute),
		MaxBookings: 1,
	}}
	windows := &stubWindowAccess{window: models.AvailabilityWindow{
		ID:                 "win-1",
		InstructorID:       "inst-1",
		IsActive:           true,
		MinAdvanceHours:    1,
		MaxBookingsPerSlot: 1,
	}}
	requests := newStubRequestStore()
	capacity := NewCapacityService(slots, nil, nil)

	svc := NewBookingService(requests, slots, windows, &stubRuleAccess{rule: rule},
		nil, capacity, nil, nil, nil, nil, BookingServiceConfig{PaymentAwaitTTL: 24 * time.Hour}, nil)
	svc.now = func() time.Time { return now }

	return &bookingFixture{svc: svc, requests: requests, slots: slots, now: now}
}

func (f *bookingFixture) submitPending(t *testing.T, requester string, price int64) *models.BookingRequest {
	t.Helper()
	request, err := f.svc.Submit(context.Background(), requester, dto.SubmitBidRequest{
		SlotID:       "slot-1",
		SessionType:  "lesson",
		OfferedPrice: price,
	})
	require.NoError(t, err)
	return request
}

func TestSubmitRejectsPriceOutOfRange(t *testing.T) {
	f := newBookingFixture(t, testRule())

	_, err := f.svc.Submit(context.Background(), "learner-1", dto.SubmitBidRequest{
		SlotID:       "slot-1",
		SessionType:  "lesson",
		OfferedPrice: 1000,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPriceOutOfRange.Code, appErr.Code)
	assert.Empty(t, f.requests.requests)
}

func TestSubmitSetsExpiryFromLeadTimeCutoff(t *testing.T) {
	f := newBookingFixture(t, testRule())

	request := f.submitPending(t, "learner-1", 5000)

	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, models.PaymentStatusNone, request.PaymentStatus)
	// 24h cutoff before a slot 48h out.
	assert.True(t, request.ExpiresAt.Equal(f.slots.slot.StartTime.Add(-24*time.Hour)))
	assert.True(t, request.ExpiresAt.After(request.CreatedAt))
}

func TestSubmitExpiryClampedToSlotStart(t *testing.T) {
	rule := testRule()
	rule.LeadTimeCutoffHours = 72 // cutoff lands before now
	f := newBookingFixture(t, rule)

	request := f.submitPending(t, "learner-1", 5000)
	assert.True(t, request.ExpiresAt.Equal(f.slots.slot.StartTime))
	assert.True(t, request.ExpiresAt.After(request.CreatedAt))
}

func TestSubmitAutoAcceptsAboveThreshold(t *testing.T) {
	f := newBookingFixture(t, testRule())

	request := f.submitPending(t, "learner-1", 12000)

	assert.Equal(t, models.RequestStatusAccepted, request.Status)
	assert.Equal(t, models.PaymentStatusAwaiting, request.PaymentStatus)
	assert.Equal(t, 1, f.slots.slot.CurrentBookings)
}

func TestSubmitAutoAcceptLosingCapacityStaysPending(t *testing.T) {
	f := newBookingFixture(t, testRule())
	f.slots.slot.CurrentBookings = 1 // already full

	request := f.submitPending(t, "learner-1", 12000)

	assert.Equal(t, models.RequestStatusPending, request.Status)
	stored, err := f.requests.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, stored.Status)
}

func TestSubmitRejectsBlockedSlot(t *testing.T) {
	f := newBookingFixture(t, nil)
	f.slots.slot.IsBlocked = true

	_, err := f.svc.Submit(context.Background(), "learner-1", dto.SubmitBidRequest{
		SlotID:       "slot-1",
		SessionType:  "lesson",
		OfferedPrice: 5000,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAcceptRefusesSlotBlockedAfterSubmission(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)

	// The instructor blocks the slot while the bid sits pending.
	f.slots.mu.Lock()
	f.slots.slot.IsBlocked = true
	f.slots.mu.Unlock()

	_, err := f.svc.Accept(context.Background(), "inst-1", request.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 0, f.slots.slot.CurrentBookings)

	stored, err := f.requests.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, stored.Status)
}

func TestAcceptRefusesOverlappingCommitment(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)

	// An external session lands over the slot interval before the accept.
	f.svc.conflicts = NewConflictService(
		fixedSessionReader{sessions: []models.Session{
			{ID: "sess-1", Title: "Lecture", StartTime: ts(12, 0), EndTime: ts(13, 0)},
		}},
		fixedBookingReader{}, fixedBlockedReader{},
	)

	_, err := f.svc.Accept(context.Background(), "inst-1", request.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 0, f.slots.slot.CurrentBookings)
}

func TestAcceptIgnoresOwnSlotBookings(t *testing.T) {
	f := newBookingFixture(t, nil)
	f.slots.slot.MaxBookings = 2
	f.slots.slot.CurrentBookings = 1
	f.svc.conflicts = NewConflictService(
		fixedSessionReader{},
		fixedBookingReader{bookings: []models.ConfirmedBooking{
			{RequestID: "req-0", SlotID: "slot-1", StartTime: ts(12, 0), EndTime: ts(12, 30)},
		}},
		fixedBlockedReader{},
	)

	request := f.submitPending(t, "learner-2", 5000)
	accepted, err := f.svc.Accept(context.Background(), "inst-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, accepted.Status)
	assert.Equal(t, 2, f.slots.slot.CurrentBookings)
}

func TestConcurrentAcceptsExactlyOneWinner(t *testing.T) {
	f := newBookingFixture(t, nil)
	first := f.submitPending(t, "learner-1", 5000)
	second := f.submitPending(t, "learner-2", 6000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.svc.Accept(context.Background(), "inst-1", id)
		}(i, id)
	}
	wg.Wait()

	var successes, capacityFailures int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		if appErr.Code == appErrors.ErrCapacityExceeded.Code {
			capacityFailures++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, capacityFailures)
	assert.Equal(t, 1, f.slots.slot.CurrentBookings)

	// The loser is still pending, free to bid elsewhere.
	var pending int
	for _, id := range []string{first.ID, second.ID} {
		stored, err := f.requests.FindByID(context.Background(), id)
		require.NoError(t, err)
		if stored.Status == models.RequestStatusPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
}

func TestExpireSweepThenAcceptFails(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)

	// Force the request overdue, then sweep.
	f.requests.mu.Lock()
	f.requests.requests[request.ID].ExpiresAt = f.now.Add(-time.Hour)
	f.requests.mu.Unlock()

	count, err := f.svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = f.svc.Accept(context.Background(), "inst-1", request.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, 0, f.slots.slot.CurrentBookings)
}

func TestRejectLeavesCapacityUntouched(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)

	rejected, err := f.svc.Reject(context.Background(), "inst-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	assert.Equal(t, 0, f.slots.slot.CurrentBookings)
}

func TestAcceptRequiresOwnership(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)

	_, err := f.svc.Accept(context.Background(), "other-instructor", request.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestWithdrawOnlyBySubmitter(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)

	_, err := f.svc.Withdraw(context.Background(), "learner-2", request.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	withdrawn, err := f.svc.Withdraw(context.Background(), "learner-1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, withdrawn.Status)
	assert.Equal(t, 0, f.slots.slot.CurrentBookings)
}

func TestBulkUpdateCollectsPartialFailures(t *testing.T) {
	f := newBookingFixture(t, nil)
	first := f.submitPending(t, "learner-1", 5000)
	second := f.submitPending(t, "learner-2", 6000)

	results, err := f.svc.BulkUpdate(context.Background(), "inst-1", dto.BulkUpdateRequest{
		RequestIDs:   []string{first.ID, second.ID, "missing-id"},
		TargetStatus: "accepted",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	var accepted, failed int
	for _, result := range results {
		if result.Error == "" {
			accepted++
			assert.Equal(t, models.RequestStatusAccepted, result.Status)
		} else {
			failed++
		}
	}
	// Capacity is 1: one accept wins, one fails on capacity, one on lookup.
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 2, failed)
}

func TestPaymentCallbackDrivesSubMachine(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)
	_, err := f.svc.Accept(context.Background(), "inst-1", request.ID)
	require.NoError(t, err)

	err = f.svc.HandlePaymentCallback(context.Background(), dto.PaymentCallbackRequest{
		RequestID: request.ID,
		Outcome:   "paid",
		Reference: "txn-1",
	})
	require.NoError(t, err)

	stored, err := f.requests.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)

	// A second callback finds nothing awaiting.
	err = f.svc.HandlePaymentCallback(context.Background(), dto.PaymentCallbackRequest{
		RequestID: request.ID,
		Outcome:   "failed",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}

func TestPaymentFailureKeepsReservationUntilReleased(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)
	_, err := f.svc.Accept(context.Background(), "inst-1", request.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandlePaymentCallback(context.Background(), dto.PaymentCallbackRequest{
		RequestID: request.ID,
		Outcome:   "failed",
	}))
	assert.Equal(t, 1, f.slots.slot.CurrentBookings, "failure alone must not release capacity")

	require.NoError(t, f.svc.ReleaseReservation(context.Background(), "inst-1", request.ID))
	assert.Equal(t, 0, f.slots.slot.CurrentBookings)

	// Releasing twice is refused.
	err = f.svc.ReleaseReservation(context.Background(), "inst-1", request.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, 0, f.slots.slot.CurrentBookings)
}

func TestExpireAwaitingPayments(t *testing.T) {
	f := newBookingFixture(t, nil)
	request := f.submitPending(t, "learner-1", 5000)
	_, err := f.svc.Accept(context.Background(), "inst-1", request.ID)
	require.NoError(t, err)

	// Age the awaiting request past the TTL.
	f.requests.mu.Lock()
	f.requests.requests[request.ID].UpdatedAt = f.now.Add(-48 * time.Hour)
	f.requests.mu.Unlock()

	count, err := f.svc.ExpireAwaitingPayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := f.requests.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusExpired, stored.PaymentStatus)
	assert.Equal(t, models.RequestStatusAccepted, stored.Status)
}

func TestAnnotateHighestBids(t *testing.T) {
	base := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	requests := []models.BookingRequest{
		{ID: "a", SlotID: "slot-1", Status: models.RequestStatusPending, OfferedPrice: 5000, CreatedAt: base},
		{ID: "b", SlotID: "slot-1", Status: models.RequestStatusPending, OfferedPrice: 7000, CreatedAt: base.Add(time.Minute)},
		{ID: "c", SlotID: "slot-1", Status: models.RequestStatusAccepted, OfferedPrice: 9000, CreatedAt: base},
		{ID: "d", SlotID: "slot-2", Status: models.RequestStatusPending, OfferedPrice: 4000, CreatedAt: base.Add(time.Hour)},
		{ID: "e", SlotID: "slot-2", Status: models.RequestStatusPending, OfferedPrice: 4000, CreatedAt: base},
	}

	AnnotateHighestBids(requests)

	flags := map[string]bool{}
	for _, r := range requests {
		flags[r.ID] = r.IsHighestBid
	}
	assert.False(t, flags["a"])
	assert.True(t, flags["b"], "highest pending price wins")
	assert.False(t, flags["c"], "accepted requests never carry the flag")
	assert.False(t, flags["d"])
	assert.True(t, flags["e"], "price tie resolves to the earliest submission")
}
