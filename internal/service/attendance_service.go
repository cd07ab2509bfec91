package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type attendanceEnrollmentRepository interface {
	ListByTraining(ctx context.Context, trainingID string) ([]models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
}

type curriculumReader interface {
	FindByID(ctx context.Context, id string) (*models.Training, error)
}

// AttendanceService records attendance marks against enrollments and keeps
// their progress snapshots current.
type AttendanceService struct {
	enrollments attendanceEnrollmentRepository
	trainings   curriculumReader
	progress    ProgressCalculator
	logger      *zap.Logger
}

// NewAttendanceService instantiates AttendanceService.
func NewAttendanceService(enrollments attendanceEnrollmentRepository, trainings curriculumReader, progress ProgressCalculator, logger *zap.Logger) *AttendanceService {
	if progress == nil {
		progress = NewAttendanceProgressCalculator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{enrollments: enrollments, trainings: trainings, progress: progress, logger: logger}
}

// Mark applies a bulk attendance write keyed by (training, session, date).
// Each listed student's entry for the session is set or replaced, then the
// enrollment's progress snapshot is recomputed. Students without an
// enrollment in the training are skipped with a log line.
func (s *AttendanceService) Mark(ctx context.Context, req models.AttendanceMarkRequest) error {
	if req.TrainingID == "" || req.SessionID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "training_id and session_id are required")
	}
	if len(req.Records) == 0 {
		return nil
	}
	for _, record := range req.Records {
		if record.StudentID == "" || !record.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "each record needs a student_id and a valid status")
		}
	}

	training, err := s.trainings.FindByID(ctx, req.TrainingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}

	enrollments, err := s.enrollments.ListByTraining(ctx, req.TrainingID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	byStudent := make(map[string]*models.Enrollment, len(enrollments))
	for i := range enrollments {
		byStudent[enrollments[i].StudentID] = &enrollments[i]
	}

	now := time.Now().UTC()
	for _, record := range req.Records {
		enrollment, ok := byStudent[record.StudentID]
		if !ok {
			s.logger.Warn("attendance mark for unenrolled student",
				zap.String("student_id", record.StudentID),
				zap.String("training_id", req.TrainingID))
			continue
		}
		if enrollment.Attendance == nil {
			enrollment.Attendance = models.AttendanceMap{}
		}
		enrollment.Attendance[req.SessionID] = models.AttendanceEntry{Status: record.Status, MarkedAt: now}
		enrollment.Progress = s.progress.Compute(enrollment, training)

		if err := s.enrollments.Update(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
		}
	}
	return nil
}
