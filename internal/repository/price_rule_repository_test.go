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

func newPriceRuleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPriceRuleRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newPriceRuleRepoMock(t)
	defer cleanup()
	repo := NewPriceRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_rules")).
		WithArgs(sqlmock.AnyArg(), "instructor-1", "conversation", int64(8000), int64(3000), int64(15000),
			int64(10000), 24, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rule := &models.PriceRule{
		InstructorID:        "instructor-1",
		SessionType:         "conversation",
		BasePrice:           8000,
		MinBidPrice:         3000,
		MaxBidPrice:         15000,
		AutoAcceptThreshold: 10000,
		LeadTimeCutoffHours: 24,
		IsActive:            true,
	}

	require.NoError(t, repo.Upsert(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRuleRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newPriceRuleRepoMock(t)
	defer cleanup()
	repo := NewPriceRuleRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "instructor_id", "session_type", "base_price", "min_bid_price", "max_bid_price",
		"auto_accept_threshold", "lead_time_cutoff_hours", "is_active", "created_at", "updated_at",
	}).AddRow("rule-1", "instructor-1", "conversation", int64(8000), int64(3000), int64(15000), int64(10000), 24, true, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM price_rules")).
		WithArgs("instructor-1", "conversation").
		WillReturnRows(rows)

	rule, err := repo.FindActive(context.Background(), "instructor-1", "conversation")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, int64(10000), rule.AutoAcceptThreshold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRuleRepositoryFindActiveMissing(t *testing.T) {
	db, mock, cleanup := newPriceRuleRepoMock(t)
	defer cleanup()
	repo := NewPriceRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM price_rules")).
		WithArgs("instructor-1", "unknown").
		WillReturnError(sql.ErrNoRows)

	rule, err := repo.FindActive(context.Background(), "instructor-1", "unknown")
	require.NoError(t, err)
	assert.Nil(t, rule)
	assert.NoError(t, mock.ExpectationsWereMet())
}
