package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type mockEnrollmentStore struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
}

func (m *mockEnrollmentStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) ExistsByStudentAndTraining(ctx context.Context, studentID, trainingID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.TrainingID == trainingID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentStore) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockEnrollmentStore) ListByTraining(ctx context.Context, trainingID string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range m.enrollments {
		if e.TrainingID == trainingID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockEnrollmentStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func enrollmentFixture(training *models.Training) (*EnrollmentService, *mockEnrollmentStore) {
	repo := &mockEnrollmentStore{}
	students := &mockStudentStore{students: map[string]*models.Student{
		"s1": {ID: "s1", FirstName: "Yassine", LastName: "Mabrouk"},
	}}
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{training.ID: training}}
	groups := &mockGroupStore{groups: map[string]*models.Group{
		"g1": {ID: "g1", Name: "Groupe A", TrainingID: training.ID},
	}}
	svc := NewEnrollmentService(repo, students, trainings, groups, nil, validator.New(), zap.NewNop())
	return svc, repo
}

func TestEnrollmentServiceCreate(t *testing.T) {
	svc, repo := enrollmentFixture(twoSessionTraining())

	enrollment, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "s1", TrainingID: "tr1", GroupID: "g1"})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Empty(t, enrollment.Attendance)
	assert.Equal(t, 2, enrollment.Progress.TotalSessions)
	assert.Equal(t, 0, enrollment.Progress.CompletedSessions)
	assert.False(t, enrollment.Progress.EligibleForCertificate)
}

func TestEnrollmentServiceCreateDuplicate(t *testing.T) {
	svc, _ := enrollmentFixture(twoSessionTraining())

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "s1", TrainingID: "tr1", GroupID: "g1"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "s1", TrainingID: "tr1", GroupID: "g1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCreateExcusesPastSessions(t *testing.T) {
	past := time.Now().UTC().AddDate(0, 0, -7)
	future := time.Now().UTC().AddDate(0, 0, 7)
	training := &models.Training{
		ID: "tr1",
		Levels: models.LevelList{
			{LevelNumber: 1, Sessions: []models.Session{
				{SessionID: "sess-1", SessionNumber: 1, PlannedAt: &past},
				{SessionID: "sess-2", SessionNumber: 2, PlannedAt: &future},
				{SessionID: "sess-3", SessionNumber: 3},
			}},
		},
	}
	svc, _ := enrollmentFixture(training)

	enrollment, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "s1", TrainingID: "tr1", GroupID: "g1"})
	require.NoError(t, err)
	require.Contains(t, enrollment.Attendance, "sess-1")
	assert.Equal(t, models.AttendanceStatusExcused, enrollment.Attendance["sess-1"].Status)
	assert.NotContains(t, enrollment.Attendance, "sess-2")
	assert.NotContains(t, enrollment.Attendance, "sess-3")
	assert.Equal(t, 1, enrollment.Progress.CompletedSessions)
}

func TestEnrollmentServiceCreateMissingReferences(t *testing.T) {
	svc, _ := enrollmentFixture(twoSessionTraining())

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "missing", TrainingID: "tr1", GroupID: "g1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "s1", TrainingID: "missing", GroupID: "g1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceListRequiresFilter(t *testing.T) {
	svc, _ := enrollmentFixture(twoSessionTraining())

	_, err := svc.List(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
