package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tutorbid/tutorbid-api/internal/models"
)

// SlotRepository persists generated time slots. Capacity counters use
// conditional updates so concurrent writers cannot push a slot past its
// bounds, regardless of how many processes share the database.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository builds repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, window_id, start_time, end_time, duration_minutes, max_bookings, current_bookings,
is_blocked, block_reason, created_at`

// UpsertGenerated writes a freshly generated slot set. Regeneration matches
// on (window_id, start_time, end_time) and leaves current_bookings and the
// block flag untouched so existing bookings carry forward.
func (r *SlotRepository) UpsertGenerated(ctx context.Context, slots []models.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	now := time.Now().UTC()

	const query = `
INSERT INTO time_slots (id, window_id, start_time, end_time, duration_minutes, max_bookings, current_bookings,
	is_blocked, block_reason, created_at)
VALUES (:id, :window_id, :start_time, :end_time, :duration_minutes, :max_bookings, :current_bookings,
	:is_blocked, :block_reason, :created_at)
ON CONFLICT (window_id, start_time, end_time) DO UPDATE
SET duration_minutes = EXCLUDED.duration_minutes,
    max_bookings = EXCLUDED.max_bookings`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
			return fmt.Errorf("upsert time slot: %w", err)
		}
	}
	return nil
}

// PruneStale removes slots a regeneration no longer produces. Slots holding
// bookings or an explicit block survive regardless.
func (r *SlotRepository) PruneStale(ctx context.Context, windowID string, keepStarts []time.Time) error {
	const query = `
DELETE FROM time_slots
WHERE window_id = $1 AND current_bookings = 0 AND NOT is_blocked AND NOT (start_time = ANY($2))`

	if _, err := r.db.ExecContext(ctx, query, windowID, pq.Array(keepStarts)); err != nil {
		return fmt.Errorf("prune stale time slots: %w", err)
	}
	return nil
}

// FindByID returns a slot or nil when absent.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE id = $1`, slotColumns)
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find time slot: %w", err)
	}
	return &slot, nil
}

// ListByWindow returns a window's slots ordered by start time.
func (r *SlotRepository) ListByWindow(ctx context.Context, windowID string) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE window_id = $1 ORDER BY start_time ASC`, slotColumns)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, windowID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// SetBlocked flips the instructor block flag on a slot.
func (r *SlotRepository) SetBlocked(ctx context.Context, id string, blocked bool, reason *string) error {
	const query = `UPDATE time_slots SET is_blocked = $2, block_reason = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, blocked, reason)
	if err != nil {
		return fmt.Errorf("set time slot blocked: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set time slot blocked rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reserve increments current_bookings only while below max_bookings. It
// reports false when the slot was already at capacity.
func (r *SlotRepository) Reserve(ctx context.Context, id string) (bool, error) {
	const query = `
UPDATE time_slots SET current_bookings = current_bookings + 1
WHERE id = $1 AND current_bookings < max_bookings`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("reserve time slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve time slot rows: %w", err)
	}
	return affected > 0, nil
}

// Release decrements current_bookings, never below zero.
func (r *SlotRepository) Release(ctx context.Context, id string) error {
	const query = `
UPDATE time_slots SET current_bookings = current_bookings - 1
WHERE id = $1 AND current_bookings > 0`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("release time slot: %w", err)
	}
	return nil
}

// ListBlockedOverlapping returns blocked slots intersecting [start, end).
func (r *SlotRepository) ListBlockedOverlapping(ctx context.Context, start, end time.Time) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`
SELECT %s FROM time_slots
WHERE is_blocked AND start_time < $2 AND end_time > $1
ORDER BY start_time ASC`, slotColumns)

	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, start, end); err != nil {
		return nil, fmt.Errorf("list blocked time slots: %w", err)
	}
	return slots, nil
}
