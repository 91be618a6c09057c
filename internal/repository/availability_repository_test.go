package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbid/tutorbid-api/internal/models"
)

func newAvailabilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_windows")).
		WithArgs(sqlmock.AnyArg(), "instructor-1", "2024-06-10", "09:00", "17:00", 60, 15, 1, 2, 336,
			"Weekday coaching", "", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	window := &models.AvailabilityWindow{
		InstructorID:        "instructor-1",
		Date:                "2024-06-10",
		StartTime:           "09:00",
		EndTime:             "17:00",
		SlotDurationMinutes: 60,
		BufferMinutes:       15,
		MaxBookingsPerSlot:  1,
		MinAdvanceHours:     2,
		MaxAdvanceHours:     336,
		Title:               "Weekday coaching",
		IsActive:            true,
	}

	require.NoError(t, repo.Create(context.Background(), window))
	assert.NotEmpty(t, window.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_windows WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	window, err := repo.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, window)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryListByInstructor(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "instructor_id", "date", "start_time", "end_time", "slot_duration_minutes", "buffer_minutes",
		"max_bookings_per_slot", "min_advance_hours", "max_advance_hours", "title", "notes", "is_active",
		"created_at", "updated_at",
	}).AddRow("win-1", "instructor-1", "2024-06-10", "09:00", "10:00", 30, 0, 1, 2, 336, "", "", true, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_windows WHERE instructor_id = $1 ORDER BY date ASC, start_time ASC")).
		WithArgs("instructor-1").
		WillReturnRows(rows)

	windows, err := repo.ListByInstructor(context.Background(), "instructor-1")
	require.NoError(t, err)
	assert.Len(t, windows, 1)
	assert.Equal(t, "09:00", windows[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_windows SET is_active = $2")).
		WithArgs("win-1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), "win-1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}
