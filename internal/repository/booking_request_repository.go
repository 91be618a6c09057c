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

// BookingRequestRepository persists booking requests. Every lifecycle
// transition is a conditional update guarded on the current status, so a
// raced transition observes zero affected rows instead of overwriting a
// terminal state.
type BookingRequestRepository struct {
	db *sqlx.DB
}

// NewBookingRequestRepository builds repository.
func NewBookingRequestRepository(db *sqlx.DB) *BookingRequestRepository {
	return &BookingRequestRepository{db: db}
}

const requestColumns = `id, slot_id, requester_id, session_type, offered_price, message, status, payment_status,
created_at, updated_at, expires_at, released_at`

// Create inserts a new pending request.
func (r *BookingRequestRepository) Create(ctx context.Context, request *models.BookingRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = request.CreatedAt

	const query = `
INSERT INTO booking_requests (id, slot_id, requester_id, session_type, offered_price, message, status, payment_status,
	created_at, updated_at, expires_at)
VALUES (:id, :slot_id, :requester_id, :session_type, :offered_price, :message, :status, :payment_status,
	:created_at, :updated_at, :expires_at)`

	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("insert booking request: %w", err)
	}
	return nil
}

// FindByID returns a request or nil when absent.
func (r *BookingRequestRepository) FindByID(ctx context.Context, id string) (*models.BookingRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM booking_requests WHERE id = $1`, requestColumns)
	var request models.BookingRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking request: %w", err)
	}
	return &request, nil
}

// ListBySlot returns every request referencing a slot, newest first.
func (r *BookingRequestRepository) ListBySlot(ctx context.Context, slotID string) ([]models.BookingRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM booking_requests WHERE slot_id = $1 ORDER BY created_at DESC`, requestColumns)
	var requests []models.BookingRequest
	if err := r.db.SelectContext(ctx, &requests, query, slotID); err != nil {
		return nil, fmt.Errorf("list booking requests by slot: %w", err)
	}
	return requests, nil
}

// ListPendingBySlot returns a slot's pending requests for bid comparison.
func (r *BookingRequestRepository) ListPendingBySlot(ctx context.Context, slotID string) ([]models.BookingRequest, error) {
	query := fmt.Sprintf(`
SELECT %s FROM booking_requests
WHERE slot_id = $1 AND status = 'pending'
ORDER BY offered_price DESC, created_at ASC`, requestColumns)

	var requests []models.BookingRequest
	if err := r.db.SelectContext(ctx, &requests, query, slotID); err != nil {
		return nil, fmt.Errorf("list pending booking requests: %w", err)
	}
	return requests, nil
}

// ListForInstructor returns requests against any of an instructor's slots.
func (r *BookingRequestRepository) ListForInstructor(ctx context.Context, instructorID string) ([]models.BookingRequest, error) {
	const query = `
SELECT br.id, br.slot_id, br.requester_id, br.session_type, br.offered_price, br.message, br.status,
	br.payment_status, br.created_at, br.updated_at, br.expires_at, br.released_at
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1
ORDER BY br.created_at DESC`

	var requests []models.BookingRequest
	if err := r.db.SelectContext(ctx, &requests, query, instructorID); err != nil {
		return nil, fmt.Errorf("list booking requests for instructor: %w", err)
	}
	return requests, nil
}

// UpdateStatusIf commits a lifecycle transition only when the request still
// holds the expected source status. It reports whether the commit won.
func (r *BookingRequestRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.RequestStatus, payment models.PaymentStatus) (bool, error) {
	const query = `
UPDATE booking_requests SET status = $3, payment_status = $4, updated_at = $5
WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to, payment, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update booking request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking request status rows: %w", err)
	}
	return affected > 0, nil
}

// UpdatePaymentStatusIf advances the payment sub-machine. Only accepted
// requests carry a meaningful payment status.
func (r *BookingRequestRepository) UpdatePaymentStatusIf(ctx context.Context, id string, from, to models.PaymentStatus) (bool, error) {
	const query = `
UPDATE booking_requests SET payment_status = $3, updated_at = $4
WHERE id = $1 AND status = 'accepted' AND payment_status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update booking request payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking request payment status rows: %w", err)
	}
	return affected > 0, nil
}

// ExpireDue flips every overdue pending request to expired and returns the
// affected ids.
func (r *BookingRequestRepository) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
UPDATE booking_requests SET status = 'expired', updated_at = $1
WHERE status = 'pending' AND expires_at < $1
RETURNING id`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, now.UTC()); err != nil {
		return nil, fmt.Errorf("expire due booking requests: %w", err)
	}
	return ids, nil
}

// ExpireAwaitingBefore times out payment-awaiting requests untouched since
// the cutoff and returns the affected ids.
func (r *BookingRequestRepository) ExpireAwaitingBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `
UPDATE booking_requests SET payment_status = 'expired', updated_at = $2
WHERE status = 'accepted' AND payment_status = 'awaiting' AND updated_at < $1
RETURNING id`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, cutoff.UTC(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("expire awaiting payments: %w", err)
	}
	return ids, nil
}

// MarkReleased records the compensating capacity release for a failed or
// timed-out payment. The released_at guard makes the release idempotent.
func (r *BookingRequestRepository) MarkReleased(ctx context.Context, id string) (bool, error) {
	const query = `
UPDATE booking_requests SET released_at = $2, updated_at = $2
WHERE id = $1 AND status = 'accepted' AND payment_status IN ('failed', 'expired') AND released_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark booking request released: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark booking request released rows: %w", err)
	}
	return affected > 0, nil
}

// ListConfirmedOverlapping returns accepted requests whose slot intersects
// [start, end); they count as confirmed bookings for conflict detection.
func (r *BookingRequestRepository) ListConfirmedOverlapping(ctx context.Context, instructorID string, start, end time.Time) ([]models.ConfirmedBooking, error) {
	const query = `
SELECT br.id AS request_id, br.slot_id, ts.window_id, ts.start_time, ts.end_time
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1 AND br.status = 'accepted' AND ts.start_time < $3 AND ts.end_time > $2
ORDER BY ts.start_time ASC`

	var bookings []models.ConfirmedBooking
	if err := r.db.SelectContext(ctx, &bookings, query, instructorID, start, end); err != nil {
		return nil, fmt.Errorf("list confirmed overlapping bookings: %w", err)
	}
	return bookings, nil
}

// CountPaid counts an instructor's accepted requests that completed payment.
func (r *BookingRequestRepository) CountPaid(ctx context.Context, instructorID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1 AND br.payment_status = 'paid'`

	var count int
	if err := r.db.GetContext(ctx, &count, query, instructorID); err != nil {
		return 0, fmt.Errorf("count paid booking requests: %w", err)
	}
	return count, nil
}

// CountByStatus tallies an instructor's requests for one status.
func (r *BookingRequestRepository) CountByStatus(ctx context.Context, instructorID string, status models.RequestStatus) (int, error) {
	const query = `
SELECT COUNT(*)
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1 AND br.status = $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, instructorID, status); err != nil {
		return 0, fmt.Errorf("count booking requests: %w", err)
	}
	return count, nil
}

// SumPaidEarnings totals offered prices of paid requests.
func (r *BookingRequestRepository) SumPaidEarnings(ctx context.Context, instructorID string) (int64, error) {
	const query = `
SELECT COALESCE(SUM(br.offered_price), 0)
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1 AND br.payment_status = 'paid'`

	var total int64
	if err := r.db.GetContext(ctx, &total, query, instructorID); err != nil {
		return 0, fmt.Errorf("sum paid earnings: %w", err)
	}
	return total, nil
}

// PendingBidAggregate returns the count and price sum of pending requests.
func (r *BookingRequestRepository) PendingBidAggregate(ctx context.Context, instructorID string) (count int, sum int64, err error) {
	const query = `
SELECT COUNT(*), COALESCE(SUM(br.offered_price), 0)
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1 AND br.status = 'pending'`

	row := r.db.QueryRowxContext(ctx, query, instructorID)
	if err := row.Scan(&count, &sum); err != nil {
		return 0, 0, fmt.Errorf("aggregate pending bids: %w", err)
	}
	return count, sum, nil
}

// CountUpcomingAccepted counts accepted requests whose slot starts after now.
func (r *BookingRequestRepository) CountUpcomingAccepted(ctx context.Context, instructorID string, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1 AND br.status = 'accepted' AND ts.start_time > $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, instructorID, now.UTC()); err != nil {
		return 0, fmt.Errorf("count upcoming accepted requests: %w", err)
	}
	return count, nil
}

// PopularStartHours returns the most-booked start hours for accepted
// requests, busiest first.
func (r *BookingRequestRepository) PopularStartHours(ctx context.Context, instructorID string, limit int) ([]models.PopularTimeSlot, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `
SELECT EXTRACT(HOUR FROM ts.start_time)::int AS hour, COUNT(*)::int AS count
FROM booking_requests br
JOIN time_slots ts ON ts.id = br.slot_id
JOIN availability_windows aw ON aw.id = ts.window_id
WHERE aw.instructor_id = $1 AND br.status = 'accepted'
GROUP BY hour
ORDER BY count DESC, hour ASC
LIMIT $2`

	var slots []models.PopularTimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, instructorID, limit); err != nil {
		return nil, fmt.Errorf("list popular start hours: %w", err)
	}
	return slots, nil
}
