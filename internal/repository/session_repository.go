package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorbid/tutorbid-api/internal/models"
)

// SessionRepository reads already-scheduled sessions. The table is owned by
// the session data collaborator; this engine never writes to it.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository builds repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, instructor_id, title, start_time, end_time, created_at`

// ListOverlapping returns an instructor's sessions intersecting [start, end).
func (r *SessionRepository) ListOverlapping(ctx context.Context, instructorID string, start, end time.Time) ([]models.Session, error) {
	query := fmt.Sprintf(`
SELECT %s FROM sessions
WHERE instructor_id = $1 AND start_time < $3 AND end_time > $2
ORDER BY start_time ASC`, sessionColumns)

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, instructorID, start, end); err != nil {
		return nil, fmt.Errorf("list overlapping sessions: %w", err)
	}
	return sessions, nil
}

// ListByInstructor returns all of an instructor's sessions.
func (r *SessionRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE instructor_id = $1 ORDER BY start_time ASC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, instructorID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
