package service

import (
	"time"

	"github.com/astba/training-api/internal/models"
)

// ProgressCalculator derives a progress snapshot from an enrollment's
// attendance against the curriculum.
type ProgressCalculator interface {
	Compute(enrollment *models.Enrollment, training *models.Training) models.ProgressSnapshot
}

// AttendanceProgressCalculator counts PRESENT and EXCUSED attendance entries
// over the curriculum's total sessions. An enrollment is complete when every
// session is covered, and completion makes it eligible for a certificate.
type AttendanceProgressCalculator struct{}

// NewAttendanceProgressCalculator constructs the default calculator.
func NewAttendanceProgressCalculator() *AttendanceProgressCalculator {
	return &AttendanceProgressCalculator{}
}

// Compute builds a fresh snapshot. CompletedAt and CertificateIssuedAt are
// carried over from the previous snapshot once set.
func (c *AttendanceProgressCalculator) Compute(enrollment *models.Enrollment, training *models.Training) models.ProgressSnapshot {
	total := training.TotalSessions()

	completed := 0
	for _, entry := range enrollment.Attendance {
		if entry.Status == models.AttendanceStatusPresent || entry.Status == models.AttendanceStatusExcused {
			completed++
		}
	}
	if completed > total {
		completed = total
	}

	snapshot := models.ProgressSnapshot{
		CompletedSessions:   completed,
		TotalSessions:       total,
		CompletedAt:         enrollment.Progress.CompletedAt,
		CertificateIssuedAt: enrollment.Progress.CertificateIssuedAt,
	}
	if total > 0 {
		snapshot.ProgressPercent = float64(completed) / float64(total) * 100
	}

	if total > 0 && completed == total {
		snapshot.EligibleForCertificate = true
		if snapshot.CompletedAt == nil {
			now := time.Now().UTC()
			snapshot.CompletedAt = &now
		}
	}
	return snapshot
}
