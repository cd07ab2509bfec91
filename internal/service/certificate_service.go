package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	"github.com/astba/training-api/pkg/certificate"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type certificateEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type certificateRenderer interface {
	Render(doc certificate.Document) ([]byte, error)
}

// CertificateMeta describes an enrollment's certificate eligibility state.
type CertificateMeta struct {
	EnrollmentID      string     `json:"enrollment_id"`
	StudentName       string     `json:"student_name"`
	TrainingTitle     string     `json:"training_title"`
	Eligible          bool       `json:"eligible"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	IssuedAt          *time.Time `json:"issued_at,omitempty"`
	CertificateNumber string     `json:"certificate_number"`
}

// IssuedCertificate carries a rendered certificate document.
type IssuedCertificate struct {
	Number   string
	FileName string
	PDF      []byte
}

// CertificateService gates certificate issuance on the enrollment's progress
// snapshot and stamps the issuance time exactly once.
type CertificateService struct {
	enrollments certificateEnrollmentRepository
	students    studentReader
	trainings   curriculumReader
	renderer    certificateRenderer
	prefix      string
	loc         *time.Location
	logger      *zap.Logger
}

// NewCertificateService instantiates CertificateService.
func NewCertificateService(enrollments certificateEnrollmentRepository, students studentReader, trainings curriculumReader, renderer certificateRenderer, prefix string, loc *time.Location, logger *zap.Logger) *CertificateService {
	if prefix == "" {
		prefix = "ASTBA"
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		enrollments: enrollments,
		students:    students,
		trainings:   trainings,
		renderer:    renderer,
		prefix:      prefix,
		loc:         loc,
		logger:      logger,
	}
}

// GetMeta reports the enrollment's eligibility, completion and prior
// issuance without mutating anything.
func (s *CertificateService) GetMeta(ctx context.Context, enrollmentID string) (*CertificateMeta, error) {
	enrollment, student, training, err := s.resolve(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	return &CertificateMeta{
		EnrollmentID:      enrollment.ID,
		StudentName:       student.FullName(),
		TrainingTitle:     training.Title,
		Eligible:          enrollment.Progress.EligibleForCertificate,
		CompletedAt:       enrollment.Progress.CompletedAt,
		IssuedAt:          enrollment.Progress.CertificateIssuedAt,
		CertificateNumber: s.certificateNumber(enrollment.ID),
	}, nil
}

// Issue renders the certificate for an eligible enrollment. The first
// successful issuance stamps certificateIssuedAt; later calls render again
// without touching the stamp.
func (s *CertificateService) Issue(ctx context.Context, enrollmentID string) (*IssuedCertificate, error) {
	enrollment, student, training, err := s.resolve(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if !enrollment.Progress.EligibleForCertificate {
		return nil, appErrors.Clone(appErrors.ErrConflict, "not eligible, curriculum not completed")
	}

	completedDate := time.Now().In(s.loc)
	if enrollment.Progress.CompletedAt != nil {
		completedDate = enrollment.Progress.CompletedAt.In(s.loc)
	}

	number := s.certificateNumber(enrollment.ID)
	pdf, err := s.renderer.Render(certificate.Document{
		StudentName:   student.FullName(),
		TrainingTitle: training.Title,
		CompletedDate: completedDate,
		Number:        number,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	if enrollment.Progress.CertificateIssuedAt == nil {
		now := time.Now().UTC()
		enrollment.Progress.CertificateIssuedAt = &now
		if err := s.enrollments.Update(ctx, enrollment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record certificate issuance")
		}
	}

	return &IssuedCertificate{
		Number:   number,
		FileName: fmt.Sprintf("certificate-%s.pdf", strings.ToLower(number)),
		PDF:      pdf,
	}, nil
}

func (s *CertificateService) resolve(ctx context.Context, enrollmentID string) (*models.Enrollment, *models.Student, *models.Training, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	student, err := s.students.FindByID(ctx, enrollment.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	training, err := s.trainings.FindByID(ctx, enrollment.TrainingID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	return enrollment, student, training, nil
}

// certificateNumber is deterministic for an enrollment and year, e.g.
// ASTBA-2026-AB12.
func (s *CertificateService) certificateNumber(enrollmentID string) string {
	suffix := enrollmentID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("%s-%d-%s", s.prefix, time.Now().In(s.loc).Year(), strings.ToUpper(suffix))
}
