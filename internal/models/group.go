package models

import (
	"time"

	"github.com/lib/pq"
)

// Group ties a training to a cohort of students with a weekly schedule slot,
// e.g. "Groupe A" meeting Mondays 14:00-16:00.
type Group struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	TrainingID string         `db:"training_id" json:"training_id"`
	DayOfWeek  string         `db:"day_of_week" json:"day_of_week"`
	StartTime  string         `db:"start_time" json:"start_time"`
	EndTime    string         `db:"end_time" json:"end_time"`
	StudentIDs pq.StringArray `db:"student_ids" json:"student_ids"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}
