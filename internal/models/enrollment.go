package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttendanceStatus represents the status for a single attendance entry.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceEntry is one marked attendance for a curriculum session.
type AttendanceEntry struct {
	Status   AttendanceStatus `json:"status"`
	MarkedAt time.Time        `json:"marked_at"`
}

// AttendanceMap maps sessionID to the student's attendance entry, stored as
// a JSONB column. At most one entry exists per session.
type AttendanceMap map[string]AttendanceEntry

// Value implements driver.Valuer.
func (m AttendanceMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *AttendanceMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported attendance source %T", src)
	}
	return json.Unmarshal(raw, m)
}

// ProgressSnapshot is the externally computed completion state for an
// enrollment, stored as a JSONB column. CertificateIssuedAt, once set, is
// never overwritten.
type ProgressSnapshot struct {
	CompletedSessions      int        `json:"completed_sessions"`
	TotalSessions          int        `json:"total_sessions"`
	ProgressPercent        float64    `json:"progress_percent"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	CertificateIssuedAt    *time.Time `json:"certificate_issued_at,omitempty"`
	EligibleForCertificate bool       `json:"eligible_for_certificate"`
}

// Value implements driver.Valuer.
func (p ProgressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *ProgressSnapshot) Scan(src interface{}) error {
	if src == nil {
		*p = ProgressSnapshot{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported snapshot source %T", src)
	}
	return json.Unmarshal(raw, p)
}

// Enrollment registers a student into a training. At most one enrollment
// exists per (student, training) pair.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	TrainingID string           `db:"training_id" json:"training_id"`
	GroupID    string           `db:"group_id" json:"group_id"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Attendance AttendanceMap    `db:"attendance" json:"attendance"`
	Progress   ProgressSnapshot `db:"progress_snapshot" json:"progress_snapshot"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord pairs a student with a status inside a bulk mark request.
type AttendanceRecord struct {
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
}

// AttendanceMarkRequest is the bulk attendance write keyed by
// (training, session, date): one record per listed student, replacing any
// existing entry for that session.
type AttendanceMarkRequest struct {
	TrainingID string             `json:"training_id"`
	SessionID  string             `json:"session_id"`
	Date       time.Time          `json:"date"`
	Records    []AttendanceRecord `json:"records"`
}
