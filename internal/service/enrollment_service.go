package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsByStudentAndTraining(ctx context.Context, studentID, trainingID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	ListByTraining(ctx context.Context, trainingID string) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

// CreateEnrollmentRequest registers a student into a training group.
type CreateEnrollmentRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	TrainingID string `json:"training_id" validate:"required"`
	GroupID    string `json:"group_id" validate:"required"`
}

// EnrollmentService registers students into trainings. Sessions already past
// at enrollment time are excused so they never count against the student.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	trainings curriculumReader
	groups    groupReader
	progress  ProgressCalculator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService instantiates EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, trainings curriculumReader, groups groupReader, progress ProgressCalculator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if progress == nil {
		progress = NewAttendanceProgressCalculator()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		trainings: trainings,
		groups:    groups,
		progress:  progress,
		validator: validate,
		logger:    logger,
	}
}

// Create enrolls a student into a training. At most one enrollment may exist
// per (student, training) pair.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	training, err := s.trainings.FindByID(ctx, req.TrainingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	if _, err := s.groups.FindByID(ctx, req.GroupID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	exists, err := s.repo.ExistsByStudentAndTraining(ctx, req.StudentID, req.TrainingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this training")
	}

	enrollment := models.Enrollment{
		StudentID:  req.StudentID,
		TrainingID: req.TrainingID,
		GroupID:    req.GroupID,
		Attendance: excusePastSessions(training, time.Now().UTC()),
	}
	enrollment.Progress = s.progress.Compute(&enrollment, training)

	if err := s.repo.Create(ctx, &enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return &enrollment, nil
}

// Get loads an enrollment by id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// List returns enrollments filtered by student or training.
func (s *EnrollmentService) List(ctx context.Context, studentID, trainingID string) ([]models.Enrollment, error) {
	switch {
	case studentID != "":
		enrollments, err := s.repo.ListByStudent(ctx, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
		}
		return enrollments, nil
	case trainingID != "":
		enrollments, err := s.repo.ListByTraining(ctx, trainingID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
		}
		return enrollments, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id or training_id filter is required")
	}
}

// excusePastSessions marks curriculum sessions whose planned date already
// passed as EXCUSED for a late enrollment.
func excusePastSessions(training *models.Training, now time.Time) models.AttendanceMap {
	attendance := models.AttendanceMap{}
	for _, level := range training.Levels {
		for _, session := range level.Sessions {
			if session.PlannedAt != nil && session.PlannedAt.Before(now) {
				attendance[session.SessionID] = models.AttendanceEntry{
					Status:   models.AttendanceStatusExcused,
					MarkedAt: now,
				}
			}
		}
	}
	return attendance
}
