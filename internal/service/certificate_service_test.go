package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	"github.com/astba/training-api/pkg/certificate"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type mockCertEnrollments struct {
	enrollments map[string]models.Enrollment
	updates     int
}

func (m *mockCertEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		copied := e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCertEnrollments) Update(ctx context.Context, enrollment *models.Enrollment) error {
	m.enrollments[enrollment.ID] = *enrollment
	m.updates++
	return nil
}

type mockStudentStore struct {
	students map[string]*models.Student
}

func (m *mockStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type stubRenderer struct {
	calls int
}

func (r *stubRenderer) Render(doc certificate.Document) ([]byte, error) {
	r.calls++
	return []byte("%PDF " + doc.Number), nil
}

func certFixture(progress models.ProgressSnapshot) (*CertificateService, *mockCertEnrollments, *stubRenderer) {
	enrollments := &mockCertEnrollments{enrollments: map[string]models.Enrollment{
		"en-ab12": {ID: "en-ab12", StudentID: "s1", TrainingID: "tr1", Progress: progress},
	}}
	students := &mockStudentStore{students: map[string]*models.Student{
		"s1": {ID: "s1", FirstName: "Yassine", LastName: "Mabrouk"},
	}}
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{
		"tr1": {ID: "tr1", Title: "Robotics"},
	}}
	renderer := &stubRenderer{}
	svc := NewCertificateService(enrollments, students, trainings, renderer, "ASTBA", time.UTC, zap.NewNop())
	return svc, enrollments, renderer
}

func TestCertificateServiceGetMeta(t *testing.T) {
	completed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, enrollments, _ := certFixture(models.ProgressSnapshot{
		EligibleForCertificate: true,
		CompletedAt:            &completed,
	})

	meta, err := svc.GetMeta(context.Background(), "en-ab12")
	require.NoError(t, err)
	assert.True(t, meta.Eligible)
	assert.Equal(t, "Yassine Mabrouk", meta.StudentName)
	assert.Equal(t, "Robotics", meta.TrainingTitle)
	assert.Equal(t, &completed, meta.CompletedAt)
	assert.Nil(t, meta.IssuedAt)
	assert.Equal(t, fmt.Sprintf("ASTBA-%d-AB12", time.Now().UTC().Year()), meta.CertificateNumber)
	assert.Zero(t, enrollments.updates)
}

func TestCertificateServiceIssueIneligible(t *testing.T) {
	svc, enrollments, renderer := certFixture(models.ProgressSnapshot{EligibleForCertificate: false})

	_, err := svc.Issue(context.Background(), "en-ab12")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Zero(t, renderer.calls)
	assert.Zero(t, enrollments.updates)
}

func TestCertificateServiceIssueIdempotentStamp(t *testing.T) {
	completed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, enrollments, renderer := certFixture(models.ProgressSnapshot{
		EligibleForCertificate: true,
		CompletedAt:            &completed,
	})

	first, err := svc.Issue(context.Background(), "en-ab12")
	require.NoError(t, err)
	assert.NotEmpty(t, first.PDF)
	assert.Equal(t, 1, enrollments.updates)
	stamp := enrollments.enrollments["en-ab12"].Progress.CertificateIssuedAt
	require.NotNil(t, stamp)

	second, err := svc.Issue(context.Background(), "en-ab12")
	require.NoError(t, err)
	assert.NotEmpty(t, second.PDF)
	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, 2, renderer.calls)

	// The stamp was written exactly once.
	assert.Equal(t, 1, enrollments.updates)
	assert.Equal(t, stamp, enrollments.enrollments["en-ab12"].Progress.CertificateIssuedAt)
}

func TestCertificateServiceIssueNotFound(t *testing.T) {
	svc, _, _ := certFixture(models.ProgressSnapshot{})

	_, err := svc.Issue(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
