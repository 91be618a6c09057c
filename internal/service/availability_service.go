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

type availabilityStore interface {
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	Update(ctx context.Context, window *models.AvailabilityWindow) error
	FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.AvailabilityWindow, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

type slotMaterializer interface {
	Materialize(ctx context.Context, window *models.AvailabilityWindow) ([]models.TimeSlot, error)
}

// AvailabilityService manages instructor availability windows. Windows are
// the source of truth; each mutation rematerializes the derived slot set.
type AvailabilityService struct {
	windows   availabilityStore
	slots     slotMaterializer
	conflicts *ConflictService
	cache     *CacheService
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService builds the availability service.
func NewAvailabilityService(windows availabilityStore, slots slotMaterializer, conflicts *ConflictService, cache *CacheService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		windows:   windows,
		slots:     slots,
		conflicts: conflicts,
		cache:     cache,
		validate:  validator.New(),
		logger:    logger,
	}
}

// validateWindow enforces the semantic invariants a tag-level validator
// cannot express. Violations reject the whole operation; nothing is
// partially applied.
func validateWindow(window *models.AvailabilityWindow) error {
	start, end, err := window.Bounds()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window date or times")
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "window start must precede its end")
	}
	if window.SlotDurationMinutes < 15 {
		return appErrors.Clone(appErrors.ErrValidation, "slot duration must be at least 15 minutes")
	}
	if window.BufferMinutes < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "buffer minutes cannot be negative")
	}
	if window.MaxBookingsPerSlot < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "max bookings per slot must be at least 1")
	}
	if window.MinAdvanceHours < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "min advance hours must be at least 1")
	}
	if window.MaxAdvanceHours != 0 && window.MaxAdvanceHours < window.MinAdvanceHours {
		return appErrors.Clone(appErrors.ErrValidation, "max advance hours cannot be below min advance hours")
	}
	return nil
}

// Create validates and stores a new window, then materializes its slots.
func (s *AvailabilityService) Create(ctx context.Context, instructorID string, req dto.CreateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	window := &models.AvailabilityWindow{
		InstructorID:        instructorID,
		Date:                req.Date,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		BufferMinutes:       req.BufferMinutes,
		MaxBookingsPerSlot:  req.MaxBookingsPerSlot,
		MinAdvanceHours:     req.MinAdvanceHours,
		MaxAdvanceHours:     req.MaxAdvanceHours,
		Title:               req.Title,
		Notes:               req.Notes,
		IsActive:            true,
	}
	if err := validateWindow(window); err != nil {
		return nil, err
	}

	if s.conflicts != nil {
		start, end, _ := window.Bounds()
		if err := s.conflicts.CheckInterval(ctx, instructorID, start, end); err != nil {
			return nil, err
		}
	}

	if err := s.windows.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "save availability window")
	}
	if _, err := s.slots.Materialize(ctx, window); err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, instructorID)
	s.logger.Info("availability window created",
		zap.String("window_id", window.ID),
		zap.String("instructor_id", instructorID),
		zap.String("date", window.Date),
	)
	return window, nil
}

// Update rewrites a window's declared fields and rematerializes slots.
// Only the owning instructor may edit.
func (s *AvailabilityService) Update(ctx context.Context, instructorID, id string, req dto.UpdateAvailabilityRequest) (*models.AvailabilityWindow, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	window, err := s.windows.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load availability window")
	}
	if window == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}
	if window.InstructorID != instructorID {
		return nil, appErrors.ErrForbidden
	}

	intervalChanged := window.Date != req.Date || window.StartTime != req.StartTime || window.EndTime != req.EndTime
	window.Date = req.Date
	window.StartTime = req.StartTime
	window.EndTime = req.EndTime
	window.SlotDurationMinutes = req.SlotDurationMinutes
	window.BufferMinutes = req.BufferMinutes
	window.MaxBookingsPerSlot = req.MaxBookingsPerSlot
	window.MinAdvanceHours = req.MinAdvanceHours
	window.MaxAdvanceHours = req.MaxAdvanceHours
	window.Title = req.Title
	window.Notes = req.Notes
	if req.IsActive != nil {
		window.IsActive = *req.IsActive
	}
	if err := validateWindow(window); err != nil {
		return nil, err
	}

	// An edited interval gets the same conflict check as a new window. The
	// window's own slots and bookings are excluded, they move with it.
	if intervalChanged && s.conflicts != nil {
		start, end, _ := window.Bounds()
		if err := s.conflicts.CheckIntervalExcluding(ctx, instructorID, start, end, IntervalExclusion{WindowID: window.ID}); err != nil {
			return nil, err
		}
	}

	if err := s.windows.Update(ctx, window); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update availability window")
	}
	if _, err := s.slots.Materialize(ctx, window); err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, instructorID)
	return window, nil
}

// Get returns one window.
func (s *AvailabilityService) Get(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	window, err := s.windows.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load availability window")
	}
	if window == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}
	return window, nil
}

// List returns an instructor's windows ordered by date and start.
func (s *AvailabilityService) List(ctx context.Context, instructorID string) ([]models.AvailabilityWindow, error) {
	windows, err := s.windows.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list availability windows")
	}
	return windows, nil
}

// Delete removes a window owned by the instructor.
func (s *AvailabilityService) Delete(ctx context.Context, instructorID, id string) error {
	window, err := s.windows.FindByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load availability window")
	}
	if window == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}
	if window.InstructorID != instructorID {
		return appErrors.ErrForbidden
	}

	if err := s.windows.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete availability window")
	}
	s.invalidateStats(ctx, instructorID)
	return nil
}

// SetActive toggles a window without touching its declared fields.
func (s *AvailabilityService) SetActive(ctx context.Context, instructorID, id string, active bool) error {
	window, err := s.windows.FindByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load availability window")
	}
	if window == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}
	if window.InstructorID != instructorID {
		return appErrors.ErrForbidden
	}

	if err := s.windows.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "toggle availability window")
	}
	s.invalidateStats(ctx, instructorID)
	return nil
}

func (s *AvailabilityService) invalidateStats(ctx context.Context, instructorID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("stats:%s:*", instructorID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.String("instructor_id", instructorID), zap.Error(err))
	}
}
