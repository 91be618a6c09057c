package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbid/tutorbid-api/internal/dto"
	"github.com/tutorbid/tutorbid-api/internal/models"
	appErrors "github.com/tutorbid/tutorbid-api/pkg/errors"
)

type memWindowStore struct {
	windows map[string]*models.AvailabilityWindow
	deleted []string
}

func newMemWindowStore() *memWindowStore {
	return &memWindowStore{windows: map[string]*models.AvailabilityWindow{}}
}

func (s *memWindowStore) Create(_ context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	clone := *window
	s.windows[window.ID] = &clone
	return nil
}

func (s *memWindowStore) Update(_ context.Context, window *models.AvailabilityWindow) error {
	clone := *window
	s.windows[window.ID] = &clone
	return nil
}

func (s *memWindowStore) FindByID(_ context.Context, id string) (*models.AvailabilityWindow, error) {
	window, ok := s.windows[id]
	if !ok {
		return nil, nil
	}
	clone := *window
	return &clone, nil
}

func (s *memWindowStore) ListByInstructor(context.Context, string) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, w := range s.windows {
		out = append(out, *w)
	}
	return out, nil
}

func (s *memWindowStore) Delete(_ context.Context, id string) error {
	delete(s.windows, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *memWindowStore) SetActive(_ context.Context, id string, active bool) error {
	if w, ok := s.windows[id]; ok {
		w.IsActive = active
	}
	return nil
}

type memMaterializer struct{ calls int }

func (m *memMaterializer) Materialize(_ context.Context, window *models.AvailabilityWindow) ([]models.TimeSlot, error) {
	m.calls++
	return GenerateSlots(window)
}

func validCreateRequest() dto.CreateAvailabilityRequest {
	return dto.CreateAvailabilityRequest{
		Date:                "2024-06-10",
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
		BufferMinutes:       0,
		MaxBookingsPerSlot:  2,
		MinAdvanceHours:     1,
		Title:               "Morning lessons",
	}
}

func TestCreateWindowMaterializesSlots(t *testing.T) {
	store := newMemWindowStore()
	materializer := &memMaterializer{}
	svc := NewAvailabilityService(store, materializer, nil, nil, nil)

	window, err := svc.Create(context.Background(), "inst-1", validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, window.ID)
	assert.True(t, window.IsActive)
	assert.Equal(t, 1, materializer.calls)
	assert.Len(t, store.windows, 1)
}

func TestCreateWindowValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateAvailabilityRequest)
	}{
		{"start after end", func(r *dto.CreateAvailabilityRequest) { r.StartTime = "13:00" }},
		{"start equals end", func(r *dto.CreateAvailabilityRequest) { r.EndTime = "09:00" }},
		{"duration below 15", func(r *dto.CreateAvailabilityRequest) { r.SlotDurationMinutes = 10 }},
		{"negative buffer", func(r *dto.CreateAvailabilityRequest) { r.BufferMinutes = -5 }},
		{"zero max per slot", func(r *dto.CreateAvailabilityRequest) { r.MaxBookingsPerSlot = 0 }},
		{"zero min advance", func(r *dto.CreateAvailabilityRequest) { r.MinAdvanceHours = 0 }},
		{"max advance below min", func(r *dto.CreateAvailabilityRequest) { r.MinAdvanceHours = 48; r.MaxAdvanceHours = 24 }},
		{"missing date", func(r *dto.CreateAvailabilityRequest) { r.Date = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemWindowStore()
			materializer := &memMaterializer{}
			svc := NewAvailabilityService(store, materializer, nil, nil, nil)

			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), "inst-1", req)
			require.Error(t, err)

			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

			// Nothing is partially applied.
			assert.Empty(t, store.windows)
			assert.Zero(t, materializer.calls)
		})
	}
}

func TestUpdateWindowEnforcesOwnership(t *testing.T) {
	store := newMemWindowStore()
	svc := NewAvailabilityService(store, &memMaterializer{}, nil, nil, nil)

	window, err := svc.Create(context.Background(), "inst-1", validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "inst-2", window.ID, dto.UpdateAvailabilityRequest{
		Date: "2024-06-10", StartTime: "09:00", EndTime: "12:00",
		SlotDurationMinutes: 30, MaxBookingsPerSlot: 2, MinAdvanceHours: 1,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestUpdateWindowRefusesConflictingInterval(t *testing.T) {
	store := newMemWindowStore()
	materializer := &memMaterializer{}
	svc := NewAvailabilityService(store, materializer, nil, nil, nil)

	window, err := svc.Create(context.Background(), "inst-1", validCreateRequest())
	require.NoError(t, err)

	// A session at 13:00 falls inside the stretched window.
	svc.conflicts = NewConflictService(
		fixedSessionReader{sessions: []models.Session{
			{ID: "sess-1", Title: "Seminar", StartTime: ts(13, 0), EndTime: ts(14, 0)},
		}},
		fixedBookingReader{}, fixedBlockedReader{},
	)

	_, err = svc.Update(context.Background(), "inst-1", window.ID, dto.UpdateAvailabilityRequest{
		Date: "2024-06-10", StartTime: "09:00", EndTime: "14:00",
		SlotDurationMinutes: 30, MaxBookingsPerSlot: 2, MinAdvanceHours: 1,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	// Nothing is applied and no rematerialization runs.
	stored, err := store.FindByID(context.Background(), window.ID)
	require.NoError(t, err)
	assert.Equal(t, "12:00", stored.EndTime)
	assert.Equal(t, 1, materializer.calls)
}

func TestUpdateWindowIgnoresItsOwnCommitments(t *testing.T) {
	store := newMemWindowStore()
	svc := NewAvailabilityService(store, &memMaterializer{}, nil, nil, nil)

	window, err := svc.Create(context.Background(), "inst-1", validCreateRequest())
	require.NoError(t, err)

	svc.conflicts = NewConflictService(
		fixedSessionReader{},
		fixedBookingReader{bookings: []models.ConfirmedBooking{
			{RequestID: "req-1", WindowID: window.ID, StartTime: ts(10, 0), EndTime: ts(10, 30)},
		}},
		fixedBlockedReader{blocked: []models.TimeSlot{
			{ID: "slot-9", WindowID: window.ID, IsBlocked: true, StartTime: ts(11, 0), EndTime: ts(11, 30)},
		}},
	)

	updated, err := svc.Update(context.Background(), "inst-1", window.ID, dto.UpdateAvailabilityRequest{
		Date: "2024-06-10", StartTime: "09:00", EndTime: "13:00",
		SlotDurationMinutes: 30, MaxBookingsPerSlot: 2, MinAdvanceHours: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "13:00", updated.EndTime)
}

func TestDeleteWindow(t *testing.T) {
	store := newMemWindowStore()
	svc := NewAvailabilityService(store, &memMaterializer{}, nil, nil, nil)

	window, err := svc.Create(context.Background(), "inst-1", validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "inst-1", window.ID))
	assert.Equal(t, []string{window.ID}, store.deleted)

	err = svc.Delete(context.Background(), "inst-1", window.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
