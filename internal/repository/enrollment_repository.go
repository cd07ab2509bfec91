package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/astba/training-api/internal/models"
)

const enrollmentColumns = "id, student_id, training_id, group_id, enrolled_at, attendance, progress_snapshot, created_at, updated_at"

// EnrollmentRepository provides persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID loads an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndTraining loads the unique enrollment for a pair.
func (r *EnrollmentRepository) FindByStudentAndTraining(ctx context.Context, studentID, trainingID string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 AND training_id = $2", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, trainingID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsByStudentAndTraining reports whether the pair is already enrolled.
func (r *EnrollmentRepository) ExistsByStudentAndTraining(ctx context.Context, studentID, trainingID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND training_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, trainingID); err != nil {
		return false, fmt.Errorf("check enrollment exists: %w", err)
	}
	return exists, nil
}

// ListByStudent returns a student's enrollments.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// ListByTraining returns all enrollments into a training.
func (r *EnrollmentRepository) ListByTraining(ctx context.Context, trainingID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE training_id = $1 ORDER BY enrolled_at DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, trainingID); err != nil {
		return nil, fmt.Errorf("list enrollments by training: %w", err)
	}
	return enrollments, nil
}

// Create stores a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, student_id, training_id, group_id, enrolled_at, attendance, progress_snapshot, created_at, updated_at) VALUES (:id, :student_id, :training_id, :group_id, :enrolled_at, :attendance, :progress_snapshot, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update persists attendance and snapshot changes.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET group_id = :group_id, attendance = :attendance, progress_snapshot = :progress_snapshot, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}
