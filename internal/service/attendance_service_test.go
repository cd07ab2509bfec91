package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type mockAttendanceEnrollments struct {
	enrollments map[string]models.Enrollment
	updates     int
}

func (m *mockAttendanceEnrollments) ListByTraining(ctx context.Context, trainingID string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range m.enrollments {
		if e.TrainingID == trainingID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockAttendanceEnrollments) Update(ctx context.Context, enrollment *models.Enrollment) error {
	m.enrollments[enrollment.ID] = *enrollment
	m.updates++
	return nil
}

func twoSessionTraining() *models.Training {
	return &models.Training{
		ID:    "tr1",
		Title: "Robotics",
		Levels: models.LevelList{
			{LevelNumber: 1, Title: "Basics", Sessions: []models.Session{
				{SessionID: "sess-1", SessionNumber: 1, Title: "Intro"},
				{SessionID: "sess-2", SessionNumber: 2, Title: "Sensors"},
			}},
		},
	}
}

func TestAttendanceServiceMark(t *testing.T) {
	enrollments := &mockAttendanceEnrollments{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", TrainingID: "tr1"},
		"e2": {ID: "e2", StudentID: "s2", TrainingID: "tr1"},
	}}
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{"tr1": twoSessionTraining()}}
	svc := NewAttendanceService(enrollments, trainings, nil, zap.NewNop())

	err := svc.Mark(context.Background(), models.AttendanceMarkRequest{
		TrainingID: "tr1",
		SessionID:  "sess-1",
		Date:       time.Now().UTC(),
		Records: []models.AttendanceRecord{
			{StudentID: "s1", Status: models.AttendanceStatusPresent},
			{StudentID: "s2", Status: models.AttendanceStatusAbsent},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, enrollments.updates)

	e1 := enrollments.enrollments["e1"]
	require.Contains(t, e1.Attendance, "sess-1")
	assert.Equal(t, models.AttendanceStatusPresent, e1.Attendance["sess-1"].Status)
	assert.Equal(t, 1, e1.Progress.CompletedSessions)
	assert.Equal(t, 2, e1.Progress.TotalSessions)
	assert.False(t, e1.Progress.EligibleForCertificate)

	// ABSENT does not advance progress.
	e2 := enrollments.enrollments["e2"]
	assert.Equal(t, 0, e2.Progress.CompletedSessions)
}

func TestAttendanceServiceMarkReplacesEntry(t *testing.T) {
	enrollments := &mockAttendanceEnrollments{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", TrainingID: "tr1", Attendance: models.AttendanceMap{
			"sess-1": {Status: models.AttendanceStatusAbsent, MarkedAt: time.Now().UTC()},
		}},
	}}
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{"tr1": twoSessionTraining()}}
	svc := NewAttendanceService(enrollments, trainings, nil, zap.NewNop())

	err := svc.Mark(context.Background(), models.AttendanceMarkRequest{
		TrainingID: "tr1",
		SessionID:  "sess-1",
		Date:       time.Now().UTC(),
		Records:    []models.AttendanceRecord{{StudentID: "s1", Status: models.AttendanceStatusPresent}},
	})
	require.NoError(t, err)

	e1 := enrollments.enrollments["e1"]
	require.Len(t, e1.Attendance, 1)
	assert.Equal(t, models.AttendanceStatusPresent, e1.Attendance["sess-1"].Status)
}

func TestAttendanceServiceMarkCompletesCurriculum(t *testing.T) {
	enrollments := &mockAttendanceEnrollments{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", TrainingID: "tr1", Attendance: models.AttendanceMap{
			"sess-1": {Status: models.AttendanceStatusPresent, MarkedAt: time.Now().UTC()},
		}},
	}}
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{"tr1": twoSessionTraining()}}
	svc := NewAttendanceService(enrollments, trainings, nil, zap.NewNop())

	err := svc.Mark(context.Background(), models.AttendanceMarkRequest{
		TrainingID: "tr1",
		SessionID:  "sess-2",
		Date:       time.Now().UTC(),
		Records:    []models.AttendanceRecord{{StudentID: "s1", Status: models.AttendanceStatusExcused}},
	})
	require.NoError(t, err)

	progress := enrollments.enrollments["e1"].Progress
	assert.Equal(t, 2, progress.CompletedSessions)
	assert.True(t, progress.EligibleForCertificate)
	assert.NotNil(t, progress.CompletedAt)
	assert.InDelta(t, 100, progress.ProgressPercent, 0.01)
}

func TestAttendanceServiceMarkSkipsUnenrolled(t *testing.T) {
	enrollments := &mockAttendanceEnrollments{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", TrainingID: "tr1"},
	}}
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{"tr1": twoSessionTraining()}}
	svc := NewAttendanceService(enrollments, trainings, nil, zap.NewNop())

	err := svc.Mark(context.Background(), models.AttendanceMarkRequest{
		TrainingID: "tr1",
		SessionID:  "sess-1",
		Date:       time.Now().UTC(),
		Records: []models.AttendanceRecord{
			{StudentID: "s1", Status: models.AttendanceStatusAbsent},
			{StudentID: "ghost", Status: models.AttendanceStatusAbsent},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, enrollments.updates)
}

func TestAttendanceServiceMarkValidation(t *testing.T) {
	trainings := &mockTrainingStore{trainings: map[string]*models.Training{"tr1": twoSessionTraining()}}
	svc := NewAttendanceService(&mockAttendanceEnrollments{}, trainings, nil, zap.NewNop())

	err := svc.Mark(context.Background(), models.AttendanceMarkRequest{SessionID: "sess-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.Mark(context.Background(), models.AttendanceMarkRequest{
		TrainingID: "tr1",
		SessionID:  "sess-1",
		Records:    []models.AttendanceRecord{{StudentID: "s1", Status: "LATE"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// No records is a no-op.
	require.NoError(t, svc.Mark(context.Background(), models.AttendanceMarkRequest{TrainingID: "tr1", SessionID: "sess-1"}))
}
