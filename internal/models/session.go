package models

import "time"

// Session is an already-scheduled lesson supplied by the session data
// collaborator. The engine reads sessions only to detect conflicts.
type Session struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Title        string    `db:"title" json:"title"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
