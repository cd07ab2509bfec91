package models

import "time"

// ReportStatus tracks the review state of a session report.
type ReportStatus string

const (
	ReportStatusPending ReportStatus = "PENDING"
)

// SessionReport is a trainer's postponement/incident report filed against a
// seance. Reports are immutable once created.
type SessionReport struct {
	ID            string       `db:"id" json:"id"`
	SeanceID      string       `db:"seance_id" json:"seance_id"`
	TrainerID     string       `db:"trainer_id" json:"trainer_id"`
	Reason        string       `db:"reason" json:"reason"`
	SuggestedDate *time.Time   `db:"suggested_date" json:"suggested_date,omitempty"`
	ReportStatus  ReportStatus `db:"report_status" json:"report_status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// SessionReportDetail decorates a report with the trainer's display name.
type SessionReportDetail struct {
	SessionReport
	TrainerName string `json:"trainer_name,omitempty"`
}
