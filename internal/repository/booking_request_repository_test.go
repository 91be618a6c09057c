package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbid/tutorbid-api/internal/models"
)

func newBookingRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBookingRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBookingRequestRepoMock(t)
	defer cleanup()
	repo := NewBookingRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_requests")).
		WithArgs(sqlmock.AnyArg(), "slot-1", "learner-1", "conversation", int64(12000), "hi", "pending", "none",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.BookingRequest{
		SlotID:        "slot-1",
		RequesterID:   "learner-1",
		SessionType:   "conversation",
		OfferedPrice:  12000,
		Message:       "hi",
		Status:        models.RequestStatusPending,
		PaymentStatus: models.PaymentStatusNone,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}

	require.NoError(t, repo.Create(context.Background(), request))
	assert.NotEmpty(t, request.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRequestRepositoryUpdateStatusIfWins(t *testing.T) {
	db, mock, cleanup := newBookingRequestRepoMock(t)
	defer cleanup()
	repo := NewBookingRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_requests SET status = $3, payment_status = $4")).
		WithArgs("req-1", "pending", "accepted", "awaiting", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.UpdateStatusIf(context.Background(), "req-1", models.RequestStatusPending, models.RequestStatusAccepted, models.PaymentStatusAwaiting)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRequestRepositoryUpdateStatusIfLosesRace(t *testing.T) {
	db, mock, cleanup := newBookingRequestRepoMock(t)
	defer cleanup()
	repo := NewBookingRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_requests SET status = $3, payment_status = $4")).
		WithArgs("req-1", "pending", "accepted", "awaiting", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.UpdateStatusIf(context.Background(), "req-1", models.RequestStatusPending, models.RequestStatusAccepted, models.PaymentStatusAwaiting)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRequestRepositoryExpireDue(t *testing.T) {
	db, mock, cleanup := newBookingRequestRepoMock(t)
	defer cleanup()
	repo := NewBookingRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id"}).AddRow("req-1").AddRow("req-2")
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE booking_requests SET status = 'expired'")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	ids, err := repo.ExpireDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"req-1", "req-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRequestRepositoryUpdatePaymentStatusIf(t *testing.T) {
	db, mock, cleanup := newBookingRequestRepoMock(t)
	defer cleanup()
	repo := NewBookingRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_requests SET payment_status = $3")).
		WithArgs("req-1", "awaiting", "paid", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.UpdatePaymentStatusIf(context.Background(), "req-1", models.PaymentStatusAwaiting, models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRequestRepositoryMarkReleasedIdempotent(t *testing.T) {
	db, mock, cleanup := newBookingRequestRepoMock(t)
	defer cleanup()
	repo := NewBookingRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_requests SET released_at = $2")).
		WithArgs("req-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	released, err := repo.MarkReleased(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRequestRepositoryPendingBidAggregate(t *testing.T) {
	db, mock, cleanup := newBookingRequestRepoMock(t)
	defer cleanup()
	repo := NewBookingRequestRepository(db)

	rows := sqlmock.NewRows([]string{"count", "coalesce"}).AddRow(3, int64(36000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COALESCE(SUM(br.offered_price), 0)")).
		WithArgs("instructor-1").
		WillReturnRows(rows)

	count, sum, err := repo.PendingBidAggregate(context.Background(), "instructor-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(36000), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}
