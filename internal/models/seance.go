package models

import "time"

// SeanceStatus enumerates the seance lifecycle states.
type SeanceStatus string

const (
	SeanceStatusPlanned    SeanceStatus = "PLANNED"
	SeanceStatusInProgress SeanceStatus = "IN_PROGRESS"
	SeanceStatusCompleted  SeanceStatus = "COMPLETED"
	SeanceStatusCancelled  SeanceStatus = "CANCELLED"
	SeanceStatusReported   SeanceStatus = "REPORTED"
)

// Valid returns true when the status is a supported value.
func (s SeanceStatus) Valid() bool {
	switch s {
	case SeanceStatusPlanned, SeanceStatusInProgress, SeanceStatusCompleted, SeanceStatusCancelled, SeanceStatusReported:
		return true
	default:
		return false
	}
}

// Seance is a concrete occurrence of one curriculum session, bound to a
// date, a time interval, a trainer and a group. Times are zero-padded
// "HH:MM" strings so interval comparisons are plain string comparisons.
type Seance struct {
	ID            string       `db:"id" json:"id"`
	TrainingID    string       `db:"training_id" json:"training_id"`
	SessionID     string       `db:"session_id" json:"session_id"`
	GroupID       string       `db:"group_id" json:"group_id"`
	TrainerID     string       `db:"trainer_id" json:"trainer_id"`
	Date          time.Time    `db:"date" json:"date"`
	StartTime     string       `db:"start_time" json:"start_time"`
	EndTime       string       `db:"end_time" json:"end_time"`
	Status        SeanceStatus `db:"status" json:"status"`
	LevelNumber   int          `db:"level_number" json:"level_number"`
	SessionNumber int          `db:"session_number" json:"session_number"`
	Title         string       `db:"title" json:"title"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// Overlaps applies the half-open interval test against another time range.
func (s *Seance) Overlaps(start, end string) bool {
	return s.StartTime < end && s.EndTime > start
}

// SeanceDetail decorates a seance with display names resolved from related
// entities. Enrichment is best effort: a missing relation leaves the field
// empty.
type SeanceDetail struct {
	Seance
	TrainingTitle string `json:"training_title,omitempty"`
	GroupName     string `json:"group_name,omitempty"`
	TrainerName   string `json:"trainer_name,omitempty"`
}

// SeanceFilter describes query params for listing seances.
type SeanceFilter struct {
	TrainerID  string
	GroupID    string
	TrainingID string
	Date       *time.Time
	DateFrom   *time.Time
	DateTo     *time.Time
}

// TrainerConflict describes the existing seance that blocks a booking.
type TrainerConflict struct {
	SeanceID  string    `json:"seance_id"`
	TrainerID string    `json:"trainer_id"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Title     string    `json:"title"`
}

// TrainerConflictError is returned when a booking overlaps an existing
// seance for the same trainer and date.
type TrainerConflictError struct {
	Message  string          `json:"message"`
	Conflict TrainerConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *TrainerConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
