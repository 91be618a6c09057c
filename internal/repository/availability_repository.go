package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbid/tutorbid-api/internal/models"
)

// AvailabilityRepository persists instructor availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository builds repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = `id, instructor_id, date, start_time, end_time, slot_duration_minutes, buffer_minutes,
max_bookings_per_slot, min_advance_hours, max_advance_hours, title, notes, is_active, created_at, updated_at`

// Create inserts a new window.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	window.CreatedAt = now
	window.UpdatedAt = now

	const query = `
INSERT INTO availability_windows (id, instructor_id, date, start_time, end_time, slot_duration_minutes, buffer_minutes,
	max_bookings_per_slot, min_advance_hours, max_advance_hours, title, notes, is_active, created_at, updated_at)
VALUES (:id, :instructor_id, :date, :start_time, :end_time, :slot_duration_minutes, :buffer_minutes,
	:max_bookings_per_slot, :min_advance_hours, :max_advance_hours, :title, :notes, :is_active, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("insert availability window: %w", err)
	}
	return nil
}

// Update rewrites a window's declared fields.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	window.UpdatedAt = time.Now().UTC()

	const query = `
UPDATE availability_windows
SET date = :date, start_time = :start_time, end_time = :end_time, slot_duration_minutes = :slot_duration_minutes,
	buffer_minutes = :buffer_minutes, max_bookings_per_slot = :max_bookings_per_slot,
	min_advance_hours = :min_advance_hours, max_advance_hours = :max_advance_hours,
	title = :title, notes = :notes, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, window)
	if err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update availability window rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID returns a window or nil when absent.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_windows WHERE id = $1`, availabilityColumns)
	var window models.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find availability window: %w", err)
	}
	return &window, nil
}

// ListByInstructor returns the instructor's windows ordered by date and start.
func (r *AvailabilityRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.AvailabilityWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_windows WHERE instructor_id = $1 ORDER BY date ASC, start_time ASC`, availabilityColumns)
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, instructorID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// Delete removes a window.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM availability_windows WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete availability window rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetActive toggles a window without touching its other fields.
func (r *AvailabilityRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE availability_windows SET is_active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set availability window active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set availability window active rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
